package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/events"
	"github.com/isastore/backend/internal/obs"
)

// Querier is the read/update side of the order tables.
type Querier interface {
	GetOrder(ctx context.Context, id pgtype.UUID) (db.Order, error)
	ListOrders(ctx context.Context, arg db.ListOrdersParams) ([]db.Order, error)
	CountOrders(ctx context.Context, status string) (int64, error)
	ListOrderItems(ctx context.Context, orderIDs []pgtype.UUID) ([]db.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id pgtype.UUID, status string) (db.Order, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (db.DomainEvent, error)
}

// Service backs the admin order endpoints.
type Service struct {
	Q      Querier
	Events Emitter
}

// ListParams filters the admin list.
type ListParams struct {
	Status  string
	Page    int
	PerPage int
}

// List returns one page of orders, newest first, and the total match count.
func (s *Service) List(ctx context.Context, p ListParams) ([]Order, int64, error) {
	if p.Status != "" {
		status, err := NormalizeStatus(p.Status)
		if err != nil {
			return nil, 0, err
		}
		p.Status = status
	}
	if p.PerPage <= 0 {
		p.PerPage = 20
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	total, err := s.Q.CountOrders(ctx, p.Status)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.Q.ListOrders(ctx, db.ListOrdersParams{
		Status: p.Status,
		Limit:  int32(p.PerPage),
		Offset: int32((p.Page - 1) * p.PerPage),
	})
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []Order{}, total, nil
	}
	ids := make([]pgtype.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	items, err := s.Q.ListOrderItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	byOrder := make(map[[16]byte][]db.OrderItem, len(rows))
	for _, it := range items {
		byOrder[it.OrderID.Bytes] = append(byOrder[it.OrderID.Bytes], it)
	}
	out := make([]Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRows(r, byOrder[r.ID.Bytes]))
	}
	return out, total, nil
}

// Get loads one order with its items.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	oid, err := db.ParseUUID(id)
	if err != nil {
		return Order{}, ErrNotFound
	}
	row, err := s.Q.GetOrder(ctx, oid)
	if err != nil {
		return Order{}, mapErr(err)
	}
	items, err := s.Q.ListOrderItems(ctx, []pgtype.UUID{oid})
	if err != nil {
		return Order{}, err
	}
	return fromRows(row, items), nil
}

// SetStatus relabels an order and emits order.status_changed. Setting the
// current status again is a no-op.
func (s *Service) SetStatus(ctx context.Context, id, raw string) (Order, error) {
	status, err := NormalizeStatus(raw)
	if err != nil {
		return Order{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if current.Status == status {
		return current, nil
	}
	oid, _ := db.ParseUUID(current.ID)
	row, err := s.Q.UpdateOrderStatus(ctx, oid, status)
	if err != nil {
		return Order{}, mapErr(err)
	}
	updated := current
	updated.Status = row.Status
	updated.UpdatedAt = row.UpdatedAt

	if s.Events != nil {
		payload := updated.Summary()
		payload.PreviousStatus = current.Status
		if _, err := s.Events.Emit(ctx, events.TopicOrderStatusChanged, updated.ID, payload); err != nil {
			obs.Logger(ctx).Warn().Err(err).Str("order_id", updated.ID).Msg("emit order.status_changed")
		}
	}
	obs.Logger(ctx).Info().Str("order_id", updated.ID).Str("from", current.Status).Str("to", status).Msg("order status updated")
	return updated, nil
}

func mapErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
