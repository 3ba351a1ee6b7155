package discount

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/obs"
	"github.com/isastore/backend/internal/pricing"
)

// VersionKey is the Redis counter bumped after every tier write.
const VersionKey = "discount_tiers:version"

var (
	// ErrNotFound is returned when a tier id does not exist.
	ErrNotFound = errors.New("discount tier not found")
	// ErrDuplicateMinQuantity is returned when another tier already uses the minimum quantity.
	ErrDuplicateMinQuantity = errors.New("a tier with this minimum quantity already exists")
)

var hundred = decimal.NewFromInt(100)

// Querier captures the database methods required by the tier service.
type Querier interface {
	ListDiscountTiers(ctx context.Context) ([]db.DiscountTier, error)
	GetDiscountTier(ctx context.Context, id pgtype.UUID) (db.DiscountTier, error)
	CreateDiscountTier(ctx context.Context, arg db.DiscountTierParams) (db.DiscountTier, error)
	UpdateDiscountTier(ctx context.Context, id pgtype.UUID, arg db.DiscountTierParams) (db.DiscountTier, error)
	DeleteDiscountTier(ctx context.Context, id pgtype.UUID) error
}

// Input is the writable shape of a tier.
type Input struct {
	MinQuantity int             `json:"minQuantity" validate:"gt=0,lte=2147483647"`
	PercentOff  decimal.Decimal `json:"percentOff"`
	Active      *bool           `json:"active"`
	Position    int             `json:"displayOrder" validate:"gte=0,lte=2147483647"`
}

// Validate checks the table constraints on a tier write.
func (in Input) Validate() error {
	if err := common.ValidateStruct(in); err != nil {
		return err
	}
	if !in.PercentOff.IsPositive() || in.PercentOff.GreaterThan(hundred) {
		return common.Invalid("percentOff", "must be greater than 0 and at most 100")
	}
	return nil
}

func (in Input) params() db.DiscountTierParams {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return db.DiscountTierParams{
		MinQuantity: int32(in.MinQuantity),
		PercentOff:  in.PercentOff.String(),
		Active:      active,
		Position:    int32(in.Position),
	}
}

// Service manages the tier table and serves immutable snapshots of it.
type Service struct {
	q      Querier
	redis  *redis.Client
	logger zerolog.Logger

	current atomic.Pointer[pricing.Schedule]
	local   atomic.Int64
	group   singleflight.Group
}

// Config groups Service dependencies. Redis is optional; without it the
// version counter is process local.
type Config struct {
	Queries Querier
	Redis   *redis.Client
	Logger  zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("discount: queries are required")
	}
	return &Service{q: cfg.Queries, redis: cfg.Redis, logger: cfg.Logger}, nil
}

// List returns every tier, including inactive ones, in lookup order.
func (s *Service) List(ctx context.Context) ([]pricing.Tier, error) {
	rows, err := s.q.ListDiscountTiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	return toTiers(rows)
}

// Get returns a single tier.
func (s *Service) Get(ctx context.Context, id string) (pricing.Tier, error) {
	uid, err := db.ParseUUID(id)
	if err != nil {
		return pricing.Tier{}, ErrNotFound
	}
	row, err := s.q.GetDiscountTier(ctx, uid)
	if err != nil {
		return pricing.Tier{}, mapErr(err)
	}
	return toTier(row)
}

// Create inserts a tier and invalidates cached snapshots.
func (s *Service) Create(ctx context.Context, in Input) (pricing.Tier, error) {
	if err := in.Validate(); err != nil {
		return pricing.Tier{}, err
	}
	row, err := s.q.CreateDiscountTier(ctx, in.params())
	if err != nil {
		return pricing.Tier{}, mapErr(err)
	}
	s.bump(ctx)
	return toTier(row)
}

// Update replaces a tier and invalidates cached snapshots.
func (s *Service) Update(ctx context.Context, id string, in Input) (pricing.Tier, error) {
	if err := in.Validate(); err != nil {
		return pricing.Tier{}, err
	}
	uid, err := db.ParseUUID(id)
	if err != nil {
		return pricing.Tier{}, ErrNotFound
	}
	row, err := s.q.UpdateDiscountTier(ctx, uid, in.params())
	if err != nil {
		return pricing.Tier{}, mapErr(err)
	}
	s.bump(ctx)
	return toTier(row)
}

// Delete removes a tier and invalidates cached snapshots.
func (s *Service) Delete(ctx context.Context, id string) error {
	uid, err := db.ParseUUID(id)
	if err != nil {
		return ErrNotFound
	}
	if err := s.q.DeleteDiscountTier(ctx, uid); err != nil {
		return mapErr(err)
	}
	s.bump(ctx)
	return nil
}

// Snapshot returns the current active tier schedule. The schedule is rebuilt
// only when the table version moved since the last load; concurrent reloads
// share one query.
func (s *Service) Snapshot(ctx context.Context) (pricing.Schedule, error) {
	version := s.version(ctx)
	if cur := s.current.Load(); cur != nil && cur.Version() == version {
		return *cur, nil
	}
	v, err, _ := s.group.Do(strconv.FormatInt(version, 10), func() (any, error) {
		if cur := s.current.Load(); cur != nil && cur.Version() == version {
			return *cur, nil
		}
		rows, err := s.q.ListDiscountTiers(ctx)
		if err != nil {
			obs.ObserveTierReload("error")
			return nil, fmt.Errorf("load tiers: %w", err)
		}
		tiers, err := toTiers(rows)
		if err != nil {
			obs.ObserveTierReload("error")
			return nil, err
		}
		schedule := pricing.NewSchedule(version, tiers)
		s.current.Store(&schedule)
		obs.ObserveTierReload("ok")
		s.logger.Debug().Int64("version", version).Int("active", schedule.Len()).Msg("tier snapshot reloaded")
		return schedule, nil
	})
	if err != nil {
		if cur := s.current.Load(); cur != nil {
			s.logger.Warn().Err(err).Msg("serving stale tier snapshot")
			return *cur, nil
		}
		return pricing.Schedule{}, err
	}
	return v.(pricing.Schedule), nil
}

// Active returns the active tiers in lookup order.
func (s *Service) Active(ctx context.Context) ([]pricing.Tier, error) {
	schedule, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return schedule.Tiers(), nil
}

func (s *Service) version(ctx context.Context) int64 {
	if s.redis == nil {
		return s.local.Load()
	}
	v, err := s.redis.Get(ctx, VersionKey).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("read tier version")
			if cur := s.current.Load(); cur != nil {
				return cur.Version()
			}
		}
		return 0
	}
	return v
}

func (s *Service) bump(ctx context.Context) {
	s.local.Add(1)
	if s.redis == nil {
		return
	}
	if err := s.redis.Incr(ctx, VersionKey).Err(); err != nil {
		s.logger.Error().Err(err).Msg("bump tier version")
		s.current.Store(nil)
	}
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return ErrNotFound
	case db.IsUniqueViolation(err, db.DiscountTierMinQuantityKey):
		return ErrDuplicateMinQuantity
	default:
		return err
	}
}

func toTier(row db.DiscountTier) (pricing.Tier, error) {
	pct, err := decimal.NewFromString(row.PercentOff)
	if err != nil {
		return pricing.Tier{}, fmt.Errorf("tier %s percent: %w", db.UUIDString(row.ID), err)
	}
	return pricing.Tier{
		ID:          db.UUIDString(row.ID),
		MinQuantity: int(row.MinQuantity),
		PercentOff:  pct,
		Active:      row.Active,
		Position:    int(row.Position),
	}, nil
}

func toTiers(rows []db.DiscountTier) ([]pricing.Tier, error) {
	out := make([]pricing.Tier, 0, len(rows))
	for _, row := range rows {
		t, err := toTier(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
