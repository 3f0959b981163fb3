package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dpo-global/issuance-backend/api/responses"
	"github.com/dpo-global/issuance-backend/internal/ingest"
	pkgerrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

// EventDispatcher routes one raw ledger event envelope to its reducer.
type EventDispatcher interface {
	Dispatch(ctx context.Context, raw []byte) error
}

// IngestLedgerEvent applies one ledger event synchronously. Events the
// service does not recognize are acknowledged as ignored so newer ledger
// versions can emit types this deployment has not learned yet.
func IngestLedgerEvent(dispatcher EventDispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if dispatcher == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event dispatcher unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}
		if len(payload) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event payload is required"))
			return
		}

		var probe struct {
			Event string `json:"event"`
		}
		// Best effort only; Dispatch rejects malformed JSON itself.
		_ = json.Unmarshal(payload, &probe)
		eventName := strings.TrimSpace(probe.Event)

		if err := dispatcher.Dispatch(ctx, payload); err != nil {
			if errors.Is(err, ingest.ErrUnknownEvent) {
				body := map[string]string{"status": "ignored"}
				if eventName != "" {
					body["event"] = eventName
				}
				responses.WriteSuccess(w, body)
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"status": "applied",
			"event":  eventName,
		})
	}
}
