package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Product is a catalog row joined with its category name.
type Product struct {
	ID           pgtype.UUID
	CategoryID   pgtype.UUID
	CategoryName pgtype.Text
	Name         string
	Description  string
	Price        int64
	Image        string
	Images       []string
	WeightKg     string
	Stock        int32
	Hidden       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DiscountTier is a row of the discount tier table. PercentOff is the
// numeric column rendered as text.
type DiscountTier struct {
	ID          pgtype.UUID
	MinQuantity int32
	PercentOff  string
	Active      bool
	Position    int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is an order header row.
type Order struct {
	ID                  pgtype.UUID
	CustomerName        string
	CustomerPhone       string
	CustomerAddress     string
	Status              string
	Subtotal            int64
	DiscountAmount      int64
	DiscountMinQuantity *int32
	DiscountPercent     *string
	Total               int64
	ShippingMethod      string
	ShippingCost        *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderItem is a frozen copy of a cart line.
type OrderItem struct {
	ID           pgtype.UUID
	OrderID      pgtype.UUID
	Position     int32
	ProductID    pgtype.UUID
	ProductName  string
	UnitPrice    int64
	ProductImage string
	Quantity     int32
}

// SalesDay aggregates orders created on one UTC day.
type SalesDay struct {
	Day            time.Time
	Orders         int64
	Subtotal       int64
	DiscountAmount int64
	Total          int64
}

// AuditLog is an admin action record.
type AuditLog struct {
	ID           pgtype.UUID
	ActorKind    string
	ActorID      pgtype.Text
	Action       string
	ResourceType string
	ResourceID   pgtype.Text
	Method       string
	Path         string
	Status       int32
	IP           pgtype.Text
	RequestID    pgtype.Text
	Metadata     []byte
	CreatedAt    time.Time
}

// DomainEvent is a persisted domain event.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID string
	Payload     []byte
	OccurredAt  time.Time
}
