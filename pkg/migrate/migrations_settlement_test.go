package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSettlementMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_settlement_records.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no settlement records migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS settlement_records",
		"FOREIGN KEY (investor_id) REFERENCES investors(id) ON DELETE RESTRICT",
		"CHECK (units >= 0)",
		"CHECK (status IN ('PENDING', 'RECONCILED', 'DISCREPANT', 'FAILED'))",
		"CREATE INDEX IF NOT EXISTS settlement_records_system_idx",
		"CREATE INDEX IF NOT EXISTS settlement_records_external_reference_idx",
		"DROP TABLE IF EXISTS settlement_records",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
