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

// DPOGlobalVerifier checks settlements against the in-house DPO Global
// settlement service.
type DPOGlobalVerifier struct {
	cred       Credential
	httpClient *http.Client
}

// NewDPOGlobalVerifier builds the DPO Global adapter.
func NewDPOGlobalVerifier(cred Credential, opts ...Option) *DPOGlobalVerifier {
	s := applyOptions(opts)
	return &DPOGlobalVerifier{cred: cred, httpClient: s.httpClient}
}

// System identifies the depository this verifier serves.
func (v *DPOGlobalVerifier) System() enums.CSDSystem {
	return enums.CSDSystemDPOGlobal
}

// Verify posts the settlement details to the DPO Global verification endpoint.
func (v *DPOGlobalVerifier) Verify(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) Outcome {
	if !v.cred.configured() {
		return NotConfigured()
	}

	investor := ""
	if record.Investor != nil {
		investor = record.Investor.WalletAddress
	}

	body := struct {
		SettlementID string          `json:"settlement_id"`
		Investor     string          `json:"investor"`
		Units        decimal.Decimal `json:"units"`
		Timestamp    string          `json:"timestamp"`
	}{
		SettlementID: record.ExternalReference,
		Investor:     investor,
		Units:        record.Units,
		Timestamp:    record.SettledAt.UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Unavailable("marshal dpo global request: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cred.url("api/v1/settlements/verify"), bytes.NewReader(payload))
	if err != nil {
		return Unavailable("build dpo global request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.cred.APIKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Unavailable("dpo global request failed: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp) {
		return unavailableStatus(resp)
	}

	var verdict struct {
		Verified bool   `json:"verified"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return Unavailable("decode dpo global response: " + err.Error())
	}

	if !verdict.Verified {
		reason := verdict.Error
		if reason == "" {
			reason = "settlement not verified"
		}
		return Mismatch(reason)
	}
	return Reconciled()
}
