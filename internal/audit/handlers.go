package audit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/db"
	"github.com/isastore/backend/internal/obs"
)

// Handler serves the audit trail to administrators.
type Handler struct {
	Store Store
}

// LogView is the JSON shape of an audit record.
type LogView struct {
	ID           string          `json:"id"`
	ActorKind    string          `json:"actorKind"`
	ActorID      string          `json:"actorId,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Status       int             `json:"status"`
	IP           string          `json:"ip,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func toView(l db.AuditLog) LogView {
	return LogView{
		ID:           db.UUIDString(l.ID),
		ActorKind:    l.ActorKind,
		ActorID:      l.ActorID.String,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID.String,
		Method:       l.Method,
		Path:         l.Path,
		Status:       int(l.Status),
		IP:           l.IP.String,
		RequestID:    l.RequestID.String,
		Metadata:     l.Metadata,
		CreatedAt:    l.CreatedAt,
	}
}

// List handles GET /admin/audit-logs.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "audit store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	rows, err := h.Store.ListAuditLogs(r.Context(), int32(perPage), int32(common.Offset(page, perPage)))
	if err != nil {
		obs.Logger(r.Context()).Error().Err(err).Msg("list audit logs")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to fetch audit logs", nil)
		return
	}
	out := make([]LogView, 0, len(rows))
	for _, row := range rows {
		out = append(out, toView(row))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       out,
		"pagination": map[string]int{"page": page, "per_page": perPage},
	})
}
