package instance

import "github.com/dpo-global/issuance-backend/pkg/env"

// GetID resolves the identifier logged by each running process. Explicit
// WORKER_ID wins, the platform-assigned DYNO name is next, and anything
// without either is a local run.
func GetID() string {
	return env.Get("WORKER_ID", env.Get("DYNO", "local"))
}
