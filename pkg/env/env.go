// Package env reads process environment variables with fallbacks, for the
// few knobs that live outside the typed config (platform-injected values
// read before config loads).
package env

import (
	"os"
	"strings"
)

// Get returns the named variable, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
