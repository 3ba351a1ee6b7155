package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/db"
)

// ErrNotFound is returned when a product does not exist or is hidden.
var ErrNotFound = errors.New("product not found")

type queryProvider interface {
	GetProduct(ctx context.Context, id pgtype.UUID) (db.Product, error)
	ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error)
	CountProducts(ctx context.Context, arg db.ListProductsParams) (int64, error)
	ListProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]db.Product, error)
}

// Product is the public product payload.
type Product struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Category    string          `json:"category,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       int64           `json:"price"`
	Image       string          `json:"image"`
	Images      []string        `json:"images"`
	WeightKg    decimal.Decimal `json:"weightKg"`
	Stock       int             `json:"stock"`
	Hidden      bool            `json:"-"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool { return p.Stock > 0 }

// Service reads products and keeps hot pages in Redis.
type Service struct {
	queries      queryProvider
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// ListParams captures filters for product listing.
type ListParams struct {
	CategoryID string
	Page       int
	Limit      int
}

// ListResult contains a page of products and the total match count.
type ListResult struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"-"`
	Limit int       `json:"-"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, defaultLimit: defaultLimit, maxLimit: maxLimit}, nil
}

// ParseListParams normalises raw query values into typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: s.defaultLimit}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, common.Invalid("page", "must be a positive integer")
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, common.Invalid("limit", "must be a positive integer")
		}
		params.Limit = min(limit, s.maxLimit)
	}
	if v := strings.TrimSpace(values.Get("category")); v != "" {
		if _, err := db.ParseUUID(v); err != nil {
			return params, common.Invalid("category", "must be a valid id")
		}
		params.CategoryID = v
	}
	return params, nil
}

// ListProducts returns a page of visible products.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ListResult, error) {
	key := listCacheKey(params)
	var cached ListResult
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		cached.Page, cached.Limit = params.Page, params.Limit
		return cached, nil
	}

	arg := db.ListProductsParams{
		Limit:  int32(params.Limit),
		Offset: int32(common.Offset(params.Page, params.Limit)),
	}
	if params.CategoryID != "" {
		id, err := db.ParseUUID(params.CategoryID)
		if err != nil {
			return ListResult{}, common.Invalid("category", "must be a valid id")
		}
		arg.CategoryID = id
	}
	total, err := s.queries.CountProducts(ctx, arg)
	if err != nil {
		return ListResult{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.queries.ListProducts(ctx, arg)
	if err != nil {
		return ListResult{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromRow(row))
	}
	result := ListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	_ = s.cache.SetJSON(ctx, key, result)
	return result, nil
}

// GetProduct returns one visible product, served from cache when warm.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	uid, err := db.ParseUUID(strings.TrimSpace(id))
	if err != nil {
		return Product{}, ErrNotFound
	}
	key := productCacheKey(id)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	row, err := s.queries.GetProduct(ctx, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	if row.Hidden {
		return Product{}, ErrNotFound
	}
	p := fromRow(row)
	_ = s.cache.SetJSON(ctx, key, p)
	return p, nil
}

// Lookup loads the given products straight from the database, bypassing the
// cache so stock and prices are current. Unknown and hidden ids are absent
// from the result.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]Product, error) {
	uids := make([]pgtype.UUID, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uid, err := db.ParseUUID(id)
		if err != nil {
			continue
		}
		uids = append(uids, uid)
	}
	out := make(map[string]Product, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	rows, err := s.queries.ListProductsByIDs(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("lookup products: %w", err)
	}
	for _, row := range rows {
		if row.Hidden {
			continue
		}
		p := fromRow(row)
		out[p.ID] = p
	}
	return out, nil
}

// StockLevels returns current stock for the given product ids.
func (s *Service) StockLevels(ctx context.Context, ids []string) (map[string]int, error) {
	products, err := s.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	levels := make(map[string]int, len(products))
	for id, p := range products {
		levels[id] = p.Stock
	}
	return levels, nil
}

func fromRow(row db.Product) Product {
	weight, err := decimal.NewFromString(row.WeightKg)
	if err != nil {
		weight = decimal.Zero
	}
	images := row.Images
	if images == nil {
		images = []string{}
	}
	p := Product{
		ID:          db.UUIDString(row.ID),
		CategoryID:  db.UUIDString(row.CategoryID),
		Name:        row.Name,
		Description: row.Description,
		Price:       row.Price,
		Image:       row.Image,
		Images:      images,
		WeightKg:    weight,
		Stock:       int(row.Stock),
		Hidden:      row.Hidden,
	}
	if row.CategoryName.Valid {
		p.Category = row.CategoryName.String
	}
	return p
}

func listCacheKey(params ListParams) string {
	return fmt.Sprintf("catalog:products:list:%s:%d:%d", params.CategoryID, params.Page, params.Limit)
}

func productCacheKey(id string) string {
	return "catalog:products:detail:" + id
}
