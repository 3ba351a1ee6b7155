// Package analytics reports daily sales built from placed orders.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/obs"
)

const dayLayout = "2006-01-02"

// Querier is the order aggregation the service reads.
type Querier interface {
	SalesDaily(ctx context.Context, from, to time.Time) ([]db.SalesDay, error)
}

// Day is the sales of one UTC day.
type Day struct {
	Date           string `json:"date"`
	Orders         int64  `json:"orders"`
	Subtotal       int64  `json:"subtotal"`
	DiscountAmount int64  `json:"discountAmount"`
	Total          int64  `json:"total"`
}

// Report is a sales range with per-day rows and their sum.
type Report struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Days   []Day  `json:"days"`
	Totals Day    `json:"totals"`
}

// Service serves sales reports, cached in Redis for TTL.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Sales reports days in [from, to). Both bounds are truncated to UTC days.
func (s *Service) Sales(ctx context.Context, from, to time.Time) (Report, error) {
	if s == nil || s.Q == nil {
		return Report{}, errors.New("analytics service not configured")
	}
	from, to = day(from), day(to)
	key := fmt.Sprintf("analytics:sales:%s:%s", from.Format(dayLayout), to.Format(dayLayout))
	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}
	rows, err := s.Q.SalesDaily(ctx, from, to)
	if err != nil {
		return Report{}, err
	}
	report := Report{From: from.Format(dayLayout), To: to.Format(dayLayout), Days: make([]Day, 0, len(rows))}
	report.Totals.Date = report.From + "/" + report.To
	for _, r := range rows {
		d := Day{
			Date:           r.Day.UTC().Format(dayLayout),
			Orders:         r.Orders,
			Subtotal:       r.Subtotal,
			DiscountAmount: r.DiscountAmount,
			Total:          r.Total,
		}
		report.Days = append(report.Days, d)
		report.Totals.Orders += d.Orders
		report.Totals.Subtotal += d.Subtotal
		report.Totals.DiscountAmount += d.DiscountAmount
		report.Totals.Total += d.Total
	}
	s.store(ctx, key, report)
	return report, nil
}

func (s *Service) cached(ctx context.Context, key string) (Report, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Report{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			obs.Logger(ctx).Debug().Err(err).Str("key", key).Msg("analytics cache read")
		}
		return Report{}, false
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, false
	}
	return r, true
}

func (s *Service) store(ctx context.Context, key string, r Report) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}

func day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
