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

// DTCCVerifier checks settlement confirmations against DTCC. The CUSIP is
// taken from the mapping metadata, falling back to the mapping's security id.
type DTCCVerifier struct {
	cred       Credential
	httpClient *http.Client
}

// NewDTCCVerifier builds the DTCC adapter.
func NewDTCCVerifier(cred Credential, opts ...Option) *DTCCVerifier {
	s := applyOptions(opts)
	return &DTCCVerifier{cred: cred, httpClient: s.httpClient}
}

// System identifies the depository this verifier serves.
func (v *DTCCVerifier) System() enums.CSDSystem {
	return enums.CSDSystemDTCC
}

// Verify posts the confirmation request to DTCC.
func (v *DTCCVerifier) Verify(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) Outcome {
	if !v.cred.configured() {
		return NotConfigured()
	}

	cusip := mapping.MetadataValue("cusip")
	if cusip == "" {
		cusip = mapping.SecurityID
	}

	body := struct {
		Reference      string          `json:"reference"`
		CUSIP          string          `json:"cusip"`
		Units          decimal.Decimal `json:"units"`
		SettlementDate string          `json:"settlement_date"`
	}{
		Reference:      record.ExternalReference,
		CUSIP:          cusip,
		Units:          record.Units,
		SettlementDate: record.SettledAt.UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Unavailable("marshal dtcc request: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cred.url("api/v2/settlements/confirmations"), bytes.NewReader(payload))
	if err != nil {
		return Unavailable("build dtcc request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.cred.APIKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Unavailable("dtcc request failed: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp) {
		return unavailableStatus(resp)
	}

	var confirmation struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&confirmation); err != nil {
		return Unavailable("decode dtcc response: " + err.Error())
	}

	if confirmation.Status != "CONFIRMED" {
		return Mismatch("dtcc reported status " + confirmation.Status)
	}
	return Reconciled()
}
