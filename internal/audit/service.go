// Package audit keeps a trail of admin mutations.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/obs"
)

// ActorKind tells who performed an audited action.
type ActorKind string

const (
	// ActorKindAdmin is an administrator holding a bearer JWT.
	ActorKindAdmin ActorKind = "admin"
	// ActorKindAPIKey is a caller using the static admin API key.
	ActorKindAPIKey ActorKind = "api_key"
	// ActorKindAnonymous is anyone else.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor is the entity behind a request.
type Actor struct {
	Kind ActorKind
	ID   string
}

// ActorFromContext derives the actor from the authenticated admin id.
func ActorFromContext(ctx context.Context) Actor {
	id, ok := common.AdminID(ctx)
	switch {
	case !ok:
		return Actor{Kind: ActorKindAnonymous}
	case id == "api-key":
		return Actor{Kind: ActorKindAPIKey, ID: id}
	default:
		return Actor{Kind: ActorKindAdmin, ID: id}
	}
}

// Store is the persistence side of the audit trail.
type Store interface {
	InsertAuditLog(ctx context.Context, arg db.InsertAuditLogParams) error
	ListAuditLogs(ctx context.Context, limit, offset int32) ([]db.AuditLog, error)
}

// Entry describes one audited request.
type Entry struct {
	Actor        Actor
	Action       string
	ResourceType string
	ResourceID   string
	Status       int
	Metadata     map[string]any
}

// Service writes audit records. SamplingRate in (0,1) keeps that share of
// records; any other value keeps all of them.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64

	sample func() float64
}

// Record persists e for req.
func (s *Service) Record(ctx context.Context, req *http.Request, e Entry) error {
	if s == nil || !s.Enabled {
		return nil
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 && s.draw() > s.SamplingRate {
		return nil
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = req.URL.Path
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	kind := e.Actor.Kind
	if kind == "" {
		kind = ActorKindAnonymous
	}
	requestID := chimw.GetReqID(req.Context())
	if requestID == "" {
		requestID = req.Header.Get("X-Request-ID")
	}

	return s.Store.InsertAuditLog(ctx, db.InsertAuditLogParams{
		ActorKind:    string(kind),
		ActorID:      text(e.Actor.ID),
		Action:       actionName(e.Action, req.Method, route),
		ResourceType: resourceName(e.ResourceType, route),
		ResourceID:   text(e.ResourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Status:       int32(status),
		IP:           text(common.ClientIP(req)),
		RequestID:    text(requestID),
		Metadata:     metadata(e.Metadata, req.URL.RawQuery),
	})
}

func (s *Service) draw() float64 {
	if s.sample != nil {
		return s.sample()
	}
	return rand.Float64()
}

func actionName(action, method, route string) string {
	if a := strings.TrimSpace(action); a != "" {
		return a
	}
	return strings.ToUpper(method) + " " + route
}

// resourceName turns /api/v1/admin/discount-tiers/{tierID} into
// admin.discount-tiers when no explicit type is given.
func resourceName(resourceType, route string) string {
	if r := strings.TrimSpace(resourceType); r != "" {
		return r
	}
	var parts []string
	for _, seg := range strings.Split(strings.Trim(route, "/"), "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		parts = append(parts, seg)
	}
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "v1" {
		parts = parts[2:]
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ".")
}

func text(v string) pgtype.Text {
	v = strings.TrimSpace(v)
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v, Valid: true}
}

func metadata(meta map[string]any, query string) []byte {
	if len(meta) == 0 && strings.TrimSpace(query) == "" {
		return nil
	}
	payload := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		payload[k] = v
	}
	if query != "" {
		payload["query"] = query
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}
