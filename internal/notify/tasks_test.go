package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/events"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "x"}, nil
}

type recordingSender struct {
	name string
	got  []Notification
	err  error
}

func (r *recordingSender) Name() string { return r.name }

func (r *recordingSender) Send(_ context.Context, n Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func orderEvent(t *testing.T, topic string) db.DomainEvent {
	t.Helper()
	payload, err := json.Marshal(sampleOrder())
	require.NoError(t, err)
	return db.DomainEvent{ID: db.NewUUID(), Topic: topic, AggregateID: "ord-1", Payload: payload, OccurredAt: time.Now().UTC()}
}

func TestSchedulerFiltersTopics(t *testing.T) {
	enq := &recordingEnqueuer{}
	s := Scheduler{Client: enq}
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, orderEvent(t, events.TopicOrderCreated)))
	require.NoError(t, s.Schedule(ctx, orderEvent(t, "catalog.updated")))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TypeOrderNotification, enq.tasks[0].Type())

	enq.err = asynq.ErrTaskIDConflict
	require.NoError(t, s.Schedule(ctx, orderEvent(t, events.TopicOrderCreated)))
	enq.err = errors.New("redis down")
	require.Error(t, s.Schedule(ctx, orderEvent(t, events.TopicOrderCreated)))
}

func TestProcessorDeliversToAllSenders(t *testing.T) {
	enq := &recordingEnqueuer{}
	require.NoError(t, Scheduler{Client: enq}.Schedule(context.Background(), orderEvent(t, events.TopicOrderCreated)))

	ok := &recordingSender{name: "ok"}
	broken := &recordingSender{name: "broken", err: errors.New("boom")}
	p := &Processor{Senders: []Sender{ok, broken}, CurrencySymbol: "₡", WhatsAppPhone: "50670000000", Logger: zerolog.Nop()}

	err := p.ProcessTask(context.Background(), enq.tasks[0])
	require.ErrorContains(t, err, "broken")
	require.Len(t, ok.got, 1)
	require.Len(t, broken.got, 1)
	n := ok.got[0]
	require.Contains(t, n.Text, "• Taza x3 - ₡30.000")
	require.Contains(t, n.Link, "https://wa.me/50670000000?text=")
	require.JSONEq(t, string(orderEvent(t, events.TopicOrderCreated).Payload), string(n.Data))
}

func TestProcessorStatusChange(t *testing.T) {
	p := &Processor{Logger: zerolog.Nop()}
	o := sampleOrder()
	o.Status = "shipped"
	n, err := p.Render("evt", events.TopicOrderStatusChanged, o)
	require.NoError(t, err)
	require.Equal(t, "Pedido ord-1: estado actualizado a shipped", n.Text)
	require.Contains(t, n.Link, "https://wa.me/88881234?text=")

	_, err = p.Render("evt", "unknown", o)
	require.Error(t, err)
}

func TestProcessorSkipsRetryOnBadPayload(t *testing.T) {
	p := &Processor{Logger: zerolog.Nop()}
	err := p.ProcessTask(context.Background(), asynq.NewTask(TypeOrderNotification, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
