package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dpo-global/issuance-backend/api/responses"
	"github.com/dpo-global/issuance-backend/pkg/config"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

const dependencyPingTimeout = 2 * time.Second

// Pinger is the probe surface the health endpoint expects from the
// database and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness plus the state of the hard dependencies. Any
// failed ping degrades the response to 503 so schedulers stop routing here.
func Health(cfg *config.Config, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Issuance-Env", cfg.App.Env)

		checks := map[string]string{
			"database": pingStatus(r.Context(), logg, "database", dbP),
			"redis":    pingStatus(r.Context(), logg, "redis", redisP),
		}

		status := "ok"
		httpStatus := http.StatusOK
		for _, state := range checks {
			if state != "ok" {
				status = "degraded"
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}

		responses.WriteSuccessStatus(w, httpStatus, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}

func pingStatus(ctx context.Context, logg *logger.Logger, name string, p Pinger) string {
	if p == nil {
		return "not configured"
	}

	pingCtx, cancel := context.WithTimeout(ctx, dependencyPingTimeout)
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "dependency", name), "health.ping failed", err)
		}
		return err.Error()
	}
	return "ok"
}
