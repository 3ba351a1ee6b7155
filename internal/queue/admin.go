// Package queue exposes admin visibility over the notification task queue.
package queue

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/isastore/backend/internal/common"
	"github.com/isastore/backend/internal/obs"
)

// Inspector is the part of *asynq.Inspector the admin endpoints use.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunTask(queue, id string) error
	RunAllArchivedTasks(queue string) (int, error)
}

// AdminHandler serves queue stats and the dead letter view (asynq archived
// tasks) for notifications.
type AdminHandler struct {
	Inspector Inspector
	Queue     string
	PageSize  int
}

// Stats is the queue depth summary.
type Stats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Dead      int    `json:"dead"`
	Processed int    `json:"processedToday"`
	Failed    int    `json:"failedToday"`
	LatencyMs int64  `json:"latencyMs"`
	Paused    bool   `json:"paused"`
}

// DeadTask is one archived task.
type DeadTask struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Retried      int             `json:"retried"`
	MaxRetry     int             `json:"maxRetry"`
	LastError    string          `json:"lastError,omitempty"`
	LastFailedAt *time.Time      `json:"lastFailedAt,omitempty"`
}

func (h *AdminHandler) queue() string {
	if h.Queue == "" {
		return "default"
	}
	return h.Queue
}

// Stats handles GET /api/v1/admin/notifications/queue.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	info, err := h.Inspector.GetQueueInfo(h.queue())
	if errors.Is(err, asynq.ErrQueueNotFound) {
		common.Data(w, http.StatusOK, Stats{Queue: h.queue()})
		return
	}
	if err != nil {
		h.internal(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, Stats{
		Queue:     info.Queue,
		Pending:   info.Pending,
		Active:    info.Active,
		Scheduled: info.Scheduled,
		Retry:     info.Retry,
		Dead:      info.Archived,
		Processed: info.Processed,
		Failed:    info.Failed,
		LatencyMs: info.Latency.Milliseconds(),
		Paused:    info.Paused,
	})
}

// ListDead handles GET /api/v1/admin/notifications/dead.
func (h *AdminHandler) ListDead(w http.ResponseWriter, r *http.Request) {
	pageSize := h.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page, perPage := common.ParsePagination(r, pageSize)
	tasks, err := h.Inspector.ListArchivedTasks(h.queue(), asynq.Page(page), asynq.PageSize(perPage))
	if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
		h.internal(w, r, err)
		return
	}
	out := make([]DeadTask, 0, len(tasks))
	for _, t := range tasks {
		d := DeadTask{ID: t.ID, Type: t.Type, Retried: t.Retried, MaxRetry: t.MaxRetry, LastError: t.LastErr}
		if json.Valid(t.Payload) {
			d.Payload = t.Payload
		}
		if !t.LastFailedAt.IsZero() {
			at := t.LastFailedAt.UTC()
			d.LastFailedAt = &at
		}
		out = append(out, d)
	}
	common.Data(w, http.StatusOK, out)
}

// Replay handles POST /api/v1/admin/notifications/dead/{taskID}/replay.
func (h *AdminHandler) Replay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	err := h.Inspector.RunTask(h.queue(), id)
	switch {
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "task not found", nil)
	case err != nil:
		h.internal(w, r, err)
	default:
		common.Data(w, http.StatusAccepted, map[string]any{"replayed": []string{id}})
	}
}

// ReplayAll handles POST /api/v1/admin/notifications/dead/replay.
func (h *AdminHandler) ReplayAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.Inspector.RunAllArchivedTasks(h.queue())
	if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
		h.internal(w, r, err)
		return
	}
	obs.Logger(r.Context()).Info().Int("count", n).Msg("dead notifications replayed")
	common.Data(w, http.StatusAccepted, map[string]int{"replayed": n})
}

func (h *AdminHandler) internal(w http.ResponseWriter, r *http.Request, err error) {
	obs.Logger(r.Context()).Error().Err(err).Msg("queue inspector")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "queue unavailable", nil)
}
