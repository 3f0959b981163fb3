package csd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// EuroclearVerifier checks settlement instructions against Euroclear. The
// depository answers with a matched verdict and an optional reason.
type EuroclearVerifier struct {
	cred       Credential
	httpClient *http.Client
}

// NewEuroclearVerifier builds the Euroclear adapter.
func NewEuroclearVerifier(cred Credential, opts ...Option) *EuroclearVerifier {
	s := applyOptions(opts)
	return &EuroclearVerifier{cred: cred, httpClient: s.httpClient}
}

// System identifies the depository this verifier serves.
func (v *EuroclearVerifier) System() enums.CSDSystem {
	return enums.CSDSystemEuroclear
}

// Verify posts the instruction details to Euroclear's verification endpoint.
func (v *EuroclearVerifier) Verify(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) Outcome {
	if !v.cred.configured() {
		return NotConfigured()
	}

	body := struct {
		InstructionReference string          `json:"instruction_reference"`
		ISIN                 string          `json:"isin"`
		SettlementDate       string          `json:"settlement_date"`
		Quantity             decimal.Decimal `json:"quantity"`
	}{
		InstructionReference: record.ExternalReference,
		ISIN:                 mapping.MetadataValue("isin"),
		SettlementDate:       record.SettledAt.UTC().Format(time.RFC3339),
		Quantity:             record.Units,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Unavailable("marshal euroclear request: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cred.url("v1/settlement/verify"), bytes.NewReader(payload))
	if err != nil {
		return Unavailable("build euroclear request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", v.cred.APIKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Unavailable("euroclear request failed: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp) {
		return unavailableStatus(resp)
	}

	var verdict struct {
		Matched bool   `json:"matched"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return Unavailable("decode euroclear response: " + err.Error())
	}

	if !verdict.Matched {
		reason := verdict.Reason
		if reason == "" {
			reason = "depository reported mismatch"
		}
		return Mismatch(reason)
	}
	return Reconciled()
}
