package enums

import "fmt"

// LedgerEventType names a lifecycle event emitted by the issuance ledger.
// Values match the `event` field on the wire.
type LedgerEventType string

const (
	EventOfferingConfigured  LedgerEventType = "OfferingConfigured"
	EventInvestorWhitelisted LedgerEventType = "InvestorWhitelisted"
	EventCommitmentRecorded  LedgerEventType = "CommitmentRecorded"
	EventUnitsIssued         LedgerEventType = "UnitsIssued"
	EventSettlementRecorded  LedgerEventType = "SettlementRecorded"
	EventFinalized           LedgerEventType = "Finalized"
)

var validLedgerEventTypes = []LedgerEventType{
	EventOfferingConfigured,
	EventInvestorWhitelisted,
	EventCommitmentRecorded,
	EventUnitsIssued,
	EventSettlementRecorded,
	EventFinalized,
}

// String implements fmt.Stringer.
func (t LedgerEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a recognized ledger event.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
