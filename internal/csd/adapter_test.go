package csd

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dpo-global/issuance-backend/pkg/config"
	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testHTTPClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

func testRecord(units string) *models.SettlementRecord {
	return &models.SettlementRecord{
		Units:             decimal.RequireFromString(units),
		ExternalReference: "REF-100",
		SettledAt:         time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
		Status:            enums.SettlementStatusPending,
	}
}

func testMapping(system enums.CSDSystem, metadata map[string]string) *models.CSDMapping {
	mapping := &models.CSDMapping{
		CSDSystem:  system,
		SecurityID: "SEC-001",
		Active:     true,
	}
	if metadata != nil {
		raw, _ := json.Marshal(metadata)
		mapping.Metadata = raw
	}
	return mapping
}

func TestRegistryCoversAllSystems(t *testing.T) {
	registry := NewRegistry(config.CSDConfig{})

	for _, system := range []enums.CSDSystem{
		enums.CSDSystemClearstream,
		enums.CSDSystemEuroclear,
		enums.CSDSystemDTCC,
		enums.CSDSystemDPOGlobal,
	} {
		verifier, ok := registry[system]
		if !ok {
			t.Fatalf("missing verifier for %s", system)
		}
		if verifier.System() != system {
			t.Fatalf("verifier for %s reports %s", system, verifier.System())
		}
	}
}

func TestUnconfiguredProvidersAnswerWithoutCalling(t *testing.T) {
	called := false
	client := testHTTPClient(func(req *http.Request) (*http.Response, error) {
		called = true
		return nil, nil
	})

	registry := NewRegistry(config.CSDConfig{}, WithHTTPClient(client))
	record := testRecord("100")
	mapping := testMapping(enums.CSDSystemClearstream, nil)

	for system, verifier := range registry {
		outcome := verifier.Verify(context.Background(), record, mapping)
		if outcome.Status != enums.VerificationNotConfigured {
			t.Fatalf("%s: expected NOT_CONFIGURED, got %s", system, outcome.Status)
		}
	}
	if called {
		t.Fatal("unconfigured verifier must not issue requests")
	}
}
