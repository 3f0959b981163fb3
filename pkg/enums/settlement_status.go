package enums

import "fmt"

// SettlementStatus tracks where a settlement record stands in the
// reconciliation lifecycle. Records start PENDING; each verification sweep
// moves them according to the classified outcome.
type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "PENDING"
	SettlementStatusReconciled SettlementStatus = "RECONCILED"
	SettlementStatusDiscrepant SettlementStatus = "DISCREPANT"
	SettlementStatusFailed     SettlementStatus = "FAILED"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusPending,
	SettlementStatusReconciled,
	SettlementStatusDiscrepant,
	SettlementStatusFailed,
}

// String implements fmt.Stringer.
func (s SettlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s SettlementStatus) IsValid() bool {
	for _, candidate := range validSettlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementStatus converts a raw string into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	for _, candidate := range validSettlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement status %q", value)
}
