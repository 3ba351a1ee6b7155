package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/events"
	"github.com/isastore/backend/internal/obs"
)

// TypeOrderNotification is the asynq task type for order notifications.
const TypeOrderNotification = "order:notify"

// Enqueuer is the part of *asynq.Client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskPayload struct {
	EventID    string          `json:"eventId"`
	Topic      string          `json:"topic"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Scheduler turns domain events into notification tasks. It implements
// events.Scheduler.
type Scheduler struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
	Topics   []string
}

// Schedule enqueues one task per event. The event id is the task id, so a
// repeated schedule of the same event is dropped by the queue.
func (s Scheduler) Schedule(ctx context.Context, ev db.DomainEvent) error {
	if s.Client == nil {
		return nil
	}
	topics := s.Topics
	if topics == nil {
		topics = events.DefaultTopics()
	}
	if !slices.Contains(topics, ev.Topic) {
		return nil
	}
	eventID := db.UUIDString(ev.ID)
	payload, err := json.Marshal(taskPayload{EventID: eventID, Topic: ev.Topic, Data: ev.Payload, OccurredAt: ev.OccurredAt})
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.TaskID(eventID), asynq.MaxRetry(s.maxRetry())}
	if s.Queue != "" {
		opts = append(opts, asynq.Queue(s.Queue))
	}
	_, err = s.Client.EnqueueContext(ctx, asynq.NewTask(TypeOrderNotification, payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (s Scheduler) maxRetry() int {
	if s.MaxRetry <= 0 {
		return 6
	}
	return s.MaxRetry
}

// Processor renders order notifications and hands them to every sender.
type Processor struct {
	Senders        []Sender
	Labels         Labels
	CurrencySymbol string
	WhatsAppPhone  string
	Logger         zerolog.Logger
}

// Register mounts the processor on mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeOrderNotification, p)
}

// ProcessTask implements asynq.Handler. Undecodable payloads are not retried.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var tp taskPayload
	if err := json.Unmarshal(t.Payload(), &tp); err != nil {
		return fmt.Errorf("decode task: %v: %w", err, asynq.SkipRetry)
	}
	var order OrderSummary
	if err := json.Unmarshal(tp.Data, &order); err != nil {
		return fmt.Errorf("decode order: %v: %w", err, asynq.SkipRetry)
	}
	n, err := p.Render(tp.EventID, tp.Topic, order)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	n.Data, n.OccurredAt = tp.Data, tp.OccurredAt

	var joined error
	for _, s := range p.Senders {
		if err := s.Send(ctx, n); err != nil {
			obs.ObserveNotification(s.Name(), "error")
			joined = errors.Join(joined, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		obs.ObserveNotification(s.Name(), "sent")
	}
	if joined != nil {
		p.Logger.Warn().Err(joined).Str("event_id", tp.EventID).Msg("order notification failed")
	}
	return joined
}

// Render builds the notification for an order event.
func (p *Processor) Render(eventID, topic string, order OrderSummary) (Notification, error) {
	labels := p.Labels
	if labels.Prefix == "" {
		labels = DefaultLabels
	}
	n := Notification{EventID: eventID, Topic: topic}
	switch topic {
	case events.TopicOrderCreated:
		n.Text = OrderMessage(order, labels, p.CurrencySymbol)
		if p.WhatsAppPhone != "" {
			n.Link = WhatsAppURL(p.WhatsAppPhone, n.Text)
		}
	case events.TopicOrderStatusChanged:
		n.Text = StatusMessage(order, labels)
		if order.CustomerPhone != "" {
			n.Link = WhatsAppURL(order.CustomerPhone, n.Text)
		}
	default:
		return Notification{}, fmt.Errorf("unsupported topic %q", topic)
	}
	return n, nil
}
