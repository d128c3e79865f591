package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
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

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, error) {
	return s.data[key], nil
}

func (s *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *fakeStore) IdempotencyKey(scope, id string) string {
	return "sr:idempotency:" + scope + ":" + id
}

func (s *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

type fakeRepo struct {
	synced []uuid.UUID
}

func (r *fakeRepo) MarkSynced(_ context.Context, variantID uuid.UUID, _ time.Time) error {
	r.synced = append(r.synced, variantID)
	return nil
}

type fakePusher struct {
	updates []catalog.AvailabilityUpdate
	err     error
}

func (p *fakePusher) PushAvailability(_ context.Context, update catalog.AvailabilityUpdate) error {
	if p.err != nil {
		return p.err
	}
	p.updates = append(p.updates, update)
	return nil
}

type testHarness struct {
	consumer *Consumer
	repo     *fakeRepo
	pusher   *fakePusher
}

func newTestConsumer(t *testing.T) testHarness {
	t.Helper()
	manager, err := idempotency.NewManager(newFakeStore(), time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	repo := &fakeRepo{}
	pusher := &fakePusher{}
	logg := logger.New(logger.Options{ServiceName: "sync-test", Output: io.Discard})

	consumer, err := NewConsumer(repo, &pubsub.Subscriber{}, manager, pusher, logg)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return testHarness{consumer: consumer, repo: repo, pusher: pusher}
}

func availabilityMessage(t *testing.T, eventID uuid.UUID, payload payloads.AvailabilityProjectedEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         "msg-" + eventID.String()[:8],
		Data:       raw,
		Attributes: map[string]string{"event_type": string(enums.EventAvailabilityProjected)},
	}
}

func TestProcessPushesAvailability(t *testing.T) {
	h := newTestConsumer(t)
	variantID := uuid.New()

	msg := availabilityMessage(t, uuid.New(), payloads.AvailabilityProjectedEvent{
		VariantID:   variantID,
		ExternalKey: "cms-key-9",
		Available:   12,
		ProjectedAt: time.Now().UTC(),
	})

	result := h.consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(h.pusher.updates) != 1 {
		t.Fatalf("expected 1 push, got %d", len(h.pusher.updates))
	}
	update := h.pusher.updates[0]
	if update.ExternalKey != "cms-key-9" || update.AvailableQuantity != 12 {
		t.Fatalf("unexpected update %+v", update)
	}
	if len(h.repo.synced) != 1 || h.repo.synced[0] != variantID {
		t.Fatalf("expected variant marked synced, got %+v", h.repo.synced)
	}
}

func TestProcessSkipsOtherEventTypes(t *testing.T) {
	h := newTestConsumer(t)

	msg := &pubsub.Message{
		ID:         "msg-other",
		Attributes: map[string]string{"event_type": string(enums.EventStockCommitted)},
	}
	result := h.consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected skip ack")
	}
	if len(h.pusher.updates) != 0 {
		t.Fatalf("expected no pushes, got %d", len(h.pusher.updates))
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	h := newTestConsumer(t)
	eventID := uuid.New()

	msg := availabilityMessage(t, eventID, payloads.AvailabilityProjectedEvent{
		VariantID:   uuid.New(),
		ExternalKey: "cms-key-9",
		Available:   5,
	})

	for i := 0; i < 2; i++ {
		result := h.consumer.process(context.Background(), msg)
		if !result.ack {
			t.Fatalf("attempt %d: expected ack", i)
		}
	}
	if len(h.pusher.updates) != 1 {
		t.Fatalf("expected single push, got %d", len(h.pusher.updates))
	}
}

func TestProcessNacksOnPushFailure(t *testing.T) {
	h := newTestConsumer(t)
	h.pusher.err = fmt.Errorf("cms unavailable")

	eventID := uuid.New()
	msg := availabilityMessage(t, eventID, payloads.AvailabilityProjectedEvent{
		VariantID:   uuid.New(),
		ExternalKey: "cms-key-9",
		Available:   5,
	})

	result := h.consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatal("expected nack on push failure")
	}

	// the idempotency mark was rolled back so the redelivery retries the push
	h.pusher.err = nil
	result = h.consumer.process(context.Background(), msg)
	if !result.ack || len(h.pusher.updates) != 1 {
		t.Fatalf("expected retry to push, got %+v with %d updates", result, len(h.pusher.updates))
	}
}

func TestProcessAcksVariantWithoutExternalKey(t *testing.T) {
	h := newTestConsumer(t)

	msg := availabilityMessage(t, uuid.New(), payloads.AvailabilityProjectedEvent{
		VariantID: uuid.New(),
		Available: 5,
	})
	result := h.consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected ack")
	}
	if len(h.pusher.updates) != 0 {
		t.Fatalf("expected no pushes, got %d", len(h.pusher.updates))
	}
}

func TestProcessAcksMalformedEnvelope(t *testing.T) {
	h := newTestConsumer(t)

	msg := &pubsub.Message{
		ID:         "msg-bad",
		Data:       []byte("not json"),
		Attributes: map[string]string{"event_type": string(enums.EventAvailabilityProjected)},
	}
	result := h.consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatal("expected poison message to be acked")
	}
}
