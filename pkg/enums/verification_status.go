package enums

// VerificationStatus classifies the result of one verification attempt
// against a depository. Every adapter response, including transport
// failures, collapses into one of these values.
type VerificationStatus string

const (
	VerificationReconciled          VerificationStatus = "RECONCILED"
	VerificationMismatch            VerificationStatus = "MISMATCH"
	VerificationProviderUnavailable VerificationStatus = "PROVIDER_UNAVAILABLE"
	VerificationNotConfigured       VerificationStatus = "NOT_CONFIGURED"
	VerificationUnsupportedProvider VerificationStatus = "UNSUPPORTED_PROVIDER"
)

// String implements fmt.Stringer.
func (s VerificationStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationReconciled,
		VerificationMismatch,
		VerificationProviderUnavailable,
		VerificationNotConfigured,
		VerificationUnsupportedProvider:
		return true
	}
	return false
}
