package csd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// ClearstreamVerifier checks settlement instructions against Clearstream's
// verification endpoint. The depository reports the settled quantity and the
// match is numeric equality with the on-chain unit count.
type ClearstreamVerifier struct {
	cred       Credential
	httpClient *http.Client
}

// NewClearstreamVerifier builds the Clearstream adapter.
func NewClearstreamVerifier(cred Credential, opts ...Option) *ClearstreamVerifier {
	s := applyOptions(opts)
	return &ClearstreamVerifier{cred: cred, httpClient: s.httpClient}
}

// System identifies the depository this verifier serves.
func (v *ClearstreamVerifier) System() enums.CSDSystem {
	return enums.CSDSystemClearstream
}

// Verify queries Clearstream for the record's external reference.
func (v *ClearstreamVerifier) Verify(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) Outcome {
	if !v.cred.configured() {
		return NotConfigured()
	}

	query := url.Values{}
	query.Set("reference", record.ExternalReference)
	query.Set("security_id", mapping.SecurityID)
	query.Set("date", record.SettledAt.UTC().Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cred.url("settlements/verify")+"?"+query.Encode(), nil)
	if err != nil {
		return Unavailable("build clearstream request: " + err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+v.cred.APIKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Unavailable("clearstream request failed: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp) {
		return unavailableStatus(resp)
	}

	var payload struct {
		Quantity decimal.Decimal `json:"quantity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Unavailable("decode clearstream response: " + err.Error())
	}

	if !payload.Quantity.Equal(record.Units) {
		return Mismatch(unitMismatch(record.Units, payload.Quantity))
	}
	return Reconciled()
}
