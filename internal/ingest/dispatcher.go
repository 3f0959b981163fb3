package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dpo-global/issuance-backend/internal/issuance"
	"github.com/dpo-global/issuance-backend/pkg/enums"
	apperrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
)

// ErrUnknownEvent marks payloads whose event name is missing or has no
// registered handler. Callers treat it as a no-op, never as a failure:
// newer ledger versions may emit event types this service does not know.
var ErrUnknownEvent = errors.New("unknown ledger event")

// Handler applies one decoded ledger event to the issuance state.
type Handler interface {
	Handle(ctx context.Context, envelope Envelope, payload any) error
}

// Envelope carries the parsed event type alongside the raw payload.
type Envelope struct {
	Event   enums.LedgerEventType
	EventID string
	Raw     json.RawMessage
}

type handlerEntry struct {
	factory func() any
	handler Handler
}

// Dispatcher routes inbound ledger events to the reducer registered for
// their type. The registry is fixed at construction.
type Dispatcher struct {
	handlers map[enums.LedgerEventType]handlerEntry
	logg     *logger.Logger
}

// NewDispatcher wires the default reducers and allows overrides for specific events.
func NewDispatcher(repo issuance.Repository, logg *logger.Logger, overrides map[enums.LedgerEventType]Handler) (*Dispatcher, error) {
	if repo == nil {
		return nil, errors.New("issuance repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	entries := map[enums.LedgerEventType]handlerEntry{
		enums.EventOfferingConfigured: {
			factory: func() any { return &OfferingConfiguredEvent{} },
			handler: newOfferingConfiguredHandler(repo, logg),
		},
		enums.EventInvestorWhitelisted: {
			factory: func() any { return &InvestorWhitelistedEvent{} },
			handler: newInvestorWhitelistedHandler(repo, logg),
		},
		enums.EventCommitmentRecorded: {
			factory: func() any { return &CommitmentRecordedEvent{} },
			handler: newCommitmentRecordedHandler(repo, logg),
		},
		enums.EventUnitsIssued: {
			factory: func() any { return &UnitsIssuedEvent{} },
			handler: newUnitsIssuedHandler(repo, logg),
		},
		enums.EventSettlementRecorded: {
			factory: func() any { return &SettlementRecordedEvent{} },
			handler: newSettlementRecordedHandler(repo, logg),
		},
		enums.EventFinalized: {
			factory: func() any { return &FinalizedEvent{} },
			handler: newFinalizedHandler(repo, logg),
		},
	}

	for event, custom := range overrides {
		entry, ok := entries[event]
		if !ok || custom == nil {
			continue
		}
		entry.handler = custom
		entries[event] = entry
	}

	return &Dispatcher{handlers: entries, logg: logg}, nil
}

// Dispatch parses the raw payload's event name and invokes the matching
// reducer. Exactly one reducer runs per call; there is no retry or
// buffering here. Unknown events return ErrUnknownEvent after logging.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) error {
	if len(raw) == 0 {
		return apperrors.New(apperrors.CodeValidation, "empty event payload")
	}

	var probe struct {
		Event   string `json:"event"`
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "malformed event payload")
	}

	name := strings.TrimSpace(probe.Event)
	if name == "" {
		d.logg.Info(ctx, "ignoring payload without event name")
		return ErrUnknownEvent
	}

	eventType, err := enums.ParseLedgerEventType(name)
	if err != nil {
		d.logg.Info(d.logg.WithField(ctx, "event", name), "ignoring unrecognized ledger event")
		return ErrUnknownEvent
	}

	entry, ok := d.handlers[eventType]
	if !ok {
		d.logg.Info(d.logg.WithField(ctx, "event", name), "no reducer registered for ledger event")
		return ErrUnknownEvent
	}

	payload := entry.factory()
	if err := json.Unmarshal(raw, payload); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "decode "+name+" payload")
	}

	return entry.handler.Handle(ctx, Envelope{Event: eventType, EventID: probe.EventID, Raw: raw}, payload)
}
