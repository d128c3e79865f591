package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/harborwell/stockroom-backend/pkg/catalog"
	"github.com/harborwell/stockroom-backend/pkg/enums"
	"github.com/harborwell/stockroom-backend/pkg/logger"
	"github.com/harborwell/stockroom-backend/pkg/outbox"
	"github.com/harborwell/stockroom-backend/pkg/outbox/idempotency"
	"github.com/harborwell/stockroom-backend/pkg/outbox/payloads"
)

const availabilitySyncConsumer = "sync-worker"

type repository interface {
	MarkSynced(ctx context.Context, variantID uuid.UUID, at time.Time) error
}

type availabilityPusher interface {
	PushAvailability(ctx context.Context, update catalog.AvailabilityUpdate) error
}

// Consumer mirrors projected availability into the CMS. The ledger never
// waits on the CMS, it only feeds this worker.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	cms          availabilityPusher
	logg         *logger.Logger
}

// NewConsumer builds an availability sync consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, cms availabilityPusher, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("sync repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("stock sync subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if cms == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		cms:          cms,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	// the stock sync topic carries the whole ledger stream; only the
	// availability projection is ours to act on
	if eventType != string(enums.EventAvailabilityProjected) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, availabilitySyncConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.AvailabilityProjectedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, availabilitySyncConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithVariantID(logCtx, payload.VariantID.String())

	if payload.ExternalKey == "" {
		// variant not linked to the CMS yet; nothing to mirror
		c.logg.Info(logCtx, "variant has no external key")
		return processResult{ack: true}
	}

	if err := c.handlePayload(ctx, payload); err != nil {
		c.logg.Error(logCtx, "availability sync failed", err)
		_ = c.idempotency.Delete(ctx, availabilitySyncConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "availability mirrored to cms")
	return processResult{ack: true}
}

func (c *Consumer) handlePayload(ctx context.Context, payload payloads.AvailabilityProjectedEvent) error {
	update := catalog.AvailabilityUpdate{
		ExternalKey:       payload.ExternalKey,
		AvailableQuantity: payload.Available,
		AsOf:              payload.ProjectedAt,
	}
	if err := c.cms.PushAvailability(ctx, update); err != nil {
		return err
	}
	return c.repo.MarkSynced(ctx, payload.VariantID, time.Now().UTC())
}
