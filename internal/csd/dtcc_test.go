package csd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/dpo-global/issuance-backend/pkg/enums"
)

func newDTCCForTest(rt roundTripFunc) *DTCCVerifier {
	cred := Credential{Endpoint: "http://dtcc.test", APIKey: "dtcc-key"}
	return NewDTCCVerifier(cred, WithHTTPClient(testHTTPClient(rt)))
}

func TestDTCCVerifyConfirmed(t *testing.T) {
	var capturedURL string
	var capturedBody map[string]any

	verifier := newDTCCForTest(func(req *http.Request) (*http.Response, error) {
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
			Body:       io.NopCloser(strings.NewReader(`{"status": "CONFIRMED"}`)),
			Header:     http.Header{},
		}, nil
	})

	mapping := testMapping(enums.CSDSystemDTCC, map[string]string{"cusip": "037833100"})
	outcome := verifier.Verify(context.Background(), testRecord("500"), mapping)
	if outcome.Status != enums.VerificationReconciled {
		t.Fatalf("expected RECONCILED, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if capturedURL != "http://dtcc.test/api/v2/settlements/confirmations" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedBody["cusip"] != "037833100" {
		t.Fatalf("unexpected cusip %v", capturedBody["cusip"])
	}
}

func TestDTCCVerifyCUSIPFallsBackToSecurityID(t *testing.T) {
	var capturedBody map[string]any

	verifier := newDTCCForTest(func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &capturedBody)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"status": "CONFIRMED"}`)),
			Header:     http.Header{},
		}, nil
	})

	outcome := verifier.Verify(context.Background(), testRecord("500"), testMapping(enums.CSDSystemDTCC, nil))
	if outcome.Status != enums.VerificationReconciled {
		t.Fatalf("expected RECONCILED, got %s", outcome.Status)
	}
	if capturedBody["cusip"] != "SEC-001" {
		t.Fatalf("expected security id fallback, got %v", capturedBody["cusip"])
	}
}

func TestDTCCVerifyUnconfirmedStatus(t *testing.T) {
	verifier := newDTCCForTest(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"status": "REJECTED"}`)),
			Header:     http.Header{},
		}, nil
	})

	outcome := verifier.Verify(context.Background(), testRecord("500"), testMapping(enums.CSDSystemDTCC, nil))
	if outcome.Status != enums.VerificationMismatch {
		t.Fatalf("expected MISMATCH, got %s", outcome.Status)
	}
	if !strings.Contains(outcome.Reason, "REJECTED") {
		t.Fatalf("reason should carry the reported status, got %q", outcome.Reason)
	}
}
