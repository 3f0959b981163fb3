package enums

import "fmt"

// CSDSystem identifies the central securities depository a settlement
// record is verified against.
type CSDSystem string

const (
	CSDSystemClearstream CSDSystem = "CLEARSTREAM"
	CSDSystemEuroclear   CSDSystem = "EUROCLEAR"
	CSDSystemDTCC        CSDSystem = "DTCC"
	CSDSystemDPOGlobal   CSDSystem = "DPO_GLOBAL"
)

var validCSDSystems = []CSDSystem{
	CSDSystemClearstream,
	CSDSystemEuroclear,
	CSDSystemDTCC,
	CSDSystemDPOGlobal,
}

// String implements fmt.Stringer.
func (s CSDSystem) String() string {
	return string(s)
}

// IsValid reports whether the depository is recognized.
func (s CSDSystem) IsValid() bool {
	for _, candidate := range validCSDSystems {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCSDSystem converts a raw string into a CSDSystem.
func ParseCSDSystem(value string) (CSDSystem, error) {
	for _, candidate := range validCSDSystems {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid csd system %q", value)
}
