package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMappingsMigrationContainsSchemas(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_csd_mappings.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no csd mappings migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS csd_mappings",
		"metadata JSONB",
		"FOREIGN KEY (identifier_id) REFERENCES identifiers(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS csd_mappings_identifier_id_key",
		"CREATE INDEX IF NOT EXISTS csd_mappings_system_idx",
		"DROP TABLE IF EXISTS csd_mappings",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
