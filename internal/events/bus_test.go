package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/events"
)

type stubStore struct {
	lastParams db.InsertDomainEventParams
	err        error
}

func (s *stubStore) InsertDomainEvent(_ context.Context, arg db.InsertDomainEventParams) (db.DomainEvent, error) {
	if s.err != nil {
		return db.DomainEvent{}, s.err
	}
	s.lastParams = arg
	return db.DomainEvent{
		ID:          db.NewUUID(),
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     arg.Payload,
		OccurredAt:  time.Now(),
	}, nil
}

type captureScheduler struct {
	events []db.DomainEvent
	err    error
}

func (c *captureScheduler) Schedule(_ context.Context, event db.DomainEvent) error {
	c.events = append(c.events, event)
	return c.err
}

type captureNotifier struct {
	events []db.DomainEvent
}

func (c *captureNotifier) Notify(_ context.Context, event db.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{}
	notifier := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Scheduler: scheduler,
		Notifiers: []events.Notifier{notifier},
	}

	event, err := bus.Emit(context.Background(), events.TopicOrderCreated, "order-1", map[string]any{"orderId": "123"})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, store.lastParams.Topic)
	require.Equal(t, "order-1", store.lastParams.AggregateID)
	require.JSONEq(t, `{"orderId":"123"}`, string(store.lastParams.Payload))
	require.Len(t, scheduler.events, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, scheduler.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "123", decoded["orderId"])
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	ctx := context.Background()

	_, err := bus.Emit(ctx, " ", "order-1", nil)
	require.Error(t, err)
	_, err = bus.Emit(ctx, events.TopicOrderCreated, "", nil)
	require.Error(t, err)
	_, err = bus.Emit(ctx, events.TopicOrderCreated, "order-1", []byte("{nope"))
	require.Error(t, err)

	var nilBus *events.Bus
	_, err = nilBus.Emit(ctx, events.TopicOrderCreated, "order-1", nil)
	require.Error(t, err)
}

func TestEmitJoinsSchedulerFailure(t *testing.T) {
	scheduler := &captureScheduler{err: errors.New("queue down")}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: &stubStore{}, Scheduler: scheduler, Notifiers: []events.Notifier{notifier}}

	event, err := bus.Emit(context.Background(), events.TopicOrderCreated, "order-1", nil)
	require.ErrorContains(t, err, "queue down")
	require.True(t, event.ID.Valid)
	require.JSONEq(t, `{}`, string(event.Payload))
	require.Len(t, notifier.events, 1)
}

func TestEmitStoreFailure(t *testing.T) {
	scheduler := &captureScheduler{}
	bus := events.Bus{Store: &stubStore{err: errors.New("db down")}, Scheduler: scheduler}
	_, err := bus.Emit(context.Background(), events.TopicOrderCreated, "order-1", nil)
	require.ErrorContains(t, err, "db down")
	require.Empty(t, scheduler.events)
}
