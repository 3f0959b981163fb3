package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	apperrors "github.com/dpo-global/issuance-backend/pkg/errors"
	"github.com/dpo-global/issuance-backend/pkg/logger"
	"github.com/google/uuid"
)

const ledgerConsumerName = "ledger-ingest"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer applies ledger events from Pub/Sub while honoring Redis idempotency.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	dispatcher   *Dispatcher
	manager      idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds a new ledger event consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, dispatcher *Dispatcher, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("ledger subscription is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	return &Consumer{
		subscription: subscription,
		dispatcher:   dispatcher,
		manager:      manager,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming ledger messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
	})
	c.logg.Debug(logCtx, "ledger message received")

	eventID, err := c.eventID(msg)
	if err != nil {
		c.logg.Warn(logCtx, "ledger message without usable event id")
		return processResult{}
	}
	logCtx = c.logg.WithEventID(logCtx, eventID.String())

	already, err := c.manager.CheckAndMarkProcessed(logCtx, ledgerConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := c.dispatcher.Dispatch(logCtx, msg.Data); err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			c.logg.Info(logCtx, "event not handled by ledger consumer")
			return processResult{}
		}
		if appErr := apperrors.As(err); appErr != nil && appErr.Code() == apperrors.CodeValidation {
			c.logg.Warn(logCtx, "discarding malformed ledger event")
			_ = c.manager.Delete(logCtx, ledgerConsumerName, eventID)
			return processResult{}
		}
		c.logg.Error(logCtx, "failed to apply ledger event", err)
		_ = c.manager.Delete(logCtx, ledgerConsumerName, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "ledger event applied")
	return processResult{}
}

// eventID prefers the envelope body and falls back to the message
// attribute set by the chain publisher.
func (c *Consumer) eventID(msg *gcppubsub.Message) (uuid.UUID, error) {
	var probe struct {
		EventID string `json:"event_id"`
	}
	_ = json.Unmarshal(msg.Data, &probe)

	raw := strings.TrimSpace(probe.EventID)
	if raw == "" {
		raw = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if raw == "" {
		return uuid.Nil, errors.New("event_id missing")
	}
	return uuid.Parse(raw)
}
