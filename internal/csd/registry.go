package csd

import (
	"github.com/dpo-global/issuance-backend/pkg/config"
	"github.com/dpo-global/issuance-backend/pkg/enums"
)

// NewRegistry builds one verifier per depository from configuration. Every
// supported system is always present; providers without credentials answer
// NotConfigured rather than being absent.
func NewRegistry(cfg config.CSDConfig, opts ...Option) map[enums.CSDSystem]Verifier {
	verifiers := []Verifier{
		NewClearstreamVerifier(Credential{Endpoint: cfg.ClearstreamEndpoint, APIKey: cfg.ClearstreamAPIKey}, opts...),
		NewEuroclearVerifier(Credential{Endpoint: cfg.EuroclearEndpoint, APIKey: cfg.EuroclearAPIKey}, opts...),
		NewDTCCVerifier(Credential{Endpoint: cfg.DTCCEndpoint, APIKey: cfg.DTCCAPIKey}, opts...),
		NewDPOGlobalVerifier(Credential{Endpoint: cfg.DPOGlobalEndpoint, APIKey: cfg.DPOGlobalAPIKey}, opts...),
	}

	registry := make(map[enums.CSDSystem]Verifier, len(verifiers))
	for _, verifier := range verifiers {
		registry[verifier.System()] = verifier
	}
	return registry
}
