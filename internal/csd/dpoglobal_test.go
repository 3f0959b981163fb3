package csd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
)

func newDPOGlobalForTest(rt roundTripFunc) *DPOGlobalVerifier {
	cred := Credential{Endpoint: "http://dpo.test", APIKey: "dpo-key"}
	return NewDPOGlobalVerifier(cred, WithHTTPClient(testHTTPClient(rt)))
}

func TestDPOGlobalVerifyVerified(t *testing.T) {
	var capturedURL string
	var capturedBody map[string]any

	verifier := newDPOGlobalForTest(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(raw, &capturedBody); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"verified": true}`)),
			Header:     http.Header{},
		}, nil
	})

	record := testRecord("75")
	record.Investor = &models.Investor{WalletAddress: "0xinvestor01"}

	outcome := verifier.Verify(context.Background(), record, testMapping(enums.CSDSystemDPOGlobal, nil))
	if outcome.Status != enums.VerificationReconciled {
		t.Fatalf("expected RECONCILED, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if capturedURL != "http://dpo.test/api/v1/settlements/verify" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedBody["settlement_id"] != "REF-100" {
		t.Fatalf("unexpected settlement id %v", capturedBody["settlement_id"])
	}
	if capturedBody["investor"] != "0xinvestor01" {
		t.Fatalf("unexpected investor %v", capturedBody["investor"])
	}
}

func TestDPOGlobalVerifyRejected(t *testing.T) {
	verifier := newDPOGlobalForTest(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"verified": false, "error": "units out of range"}`)),
			Header:     http.Header{},
		}, nil
	})

	outcome := verifier.Verify(context.Background(), testRecord("75"), testMapping(enums.CSDSystemDPOGlobal, nil))
	if outcome.Status != enums.VerificationMismatch {
		t.Fatalf("expected MISMATCH, got %s", outcome.Status)
	}
	if outcome.Reason != "units out of range" {
		t.Fatalf("unexpected reason %q", outcome.Reason)
	}
}
