package csd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dpo-global/issuance-backend/pkg/db/models"
	"github.com/dpo-global/issuance-backend/pkg/enums"
)

const (
	defaultVerifyTimeout        = 30 * time.Second
	responseBodyReadLimit int64 = 1024
)

// Outcome is the classified result of one verification attempt. Provider
// failures are carried as values; Go errors never cross this boundary.
type Outcome struct {
	Status enums.VerificationStatus
	Reason string
}

// Reconciled reports a confirmed match.
func Reconciled() Outcome {
	return Outcome{Status: enums.VerificationReconciled}
}

// Mismatch reports a depository record that disagrees with the ledger.
func Mismatch(reason string) Outcome {
	return Outcome{Status: enums.VerificationMismatch, Reason: reason}
}

// Unavailable reports a provider that could not answer; the record is left
// for the next sweep.
func Unavailable(reason string) Outcome {
	return Outcome{Status: enums.VerificationProviderUnavailable, Reason: reason}
}

// NotConfigured reports a provider with no endpoint or credential.
func NotConfigured() Outcome {
	return Outcome{Status: enums.VerificationNotConfigured, Reason: "provider not configured"}
}

// Unsupported reports a settlement system no verifier is registered for.
func Unsupported(system enums.CSDSystem) Outcome {
	return Outcome{
		Status: enums.VerificationUnsupportedProvider,
		Reason: fmt.Sprintf("unsupported settlement system: %s", system),
	}
}

// Verifier checks one settlement record against its depository.
type Verifier interface {
	System() enums.CSDSystem
	Verify(ctx context.Context, record *models.SettlementRecord, mapping *models.CSDMapping) Outcome
}

// Credential is one provider's endpoint and API key.
type Credential struct {
	Endpoint string
	APIKey   string
}

func (c Credential) configured() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.APIKey) != ""
}

func (c Credential) url(path string) string {
	return strings.TrimRight(strings.TrimSpace(c.Endpoint), "/") + "/" + strings.TrimLeft(path, "/")
}

// Option configures optional adapter behavior.
type Option func(*settings)

type settings struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the default HTTP client shared by an adapter.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{httpClient: &http.Client{Timeout: defaultVerifyTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: defaultVerifyTimeout}
	}
	return s
}

// unavailableStatus formats a non-2xx response into an Outcome reason,
// keeping at most the first kilobyte of the provider's body.
func unavailableStatus(resp *http.Response) Outcome {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	return Unavailable(fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
}

func success(resp *http.Response) bool {
	return resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
}

func unitMismatch(onChain, reported fmt.Stringer) string {
	return fmt.Sprintf("unit mismatch: on-chain=%s csd=%s", onChain.String(), reported.String())
}
