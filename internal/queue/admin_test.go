package queue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/isastore/backend/internal/queue"
)

type stubInspector struct {
	info     *asynq.QueueInfo
	archived []*asynq.TaskInfo
	ran      []string
	runAll   int
	opts     int
}

func (s *stubInspector) GetQueueInfo(q string) (*asynq.QueueInfo, error) {
	if s.info == nil {
		return nil, asynq.ErrQueueNotFound
	}
	return s.info, nil
}

func (s *stubInspector) ListArchivedTasks(q string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	s.opts = len(opts)
	return s.archived, nil
}

func (s *stubInspector) RunTask(q, id string) error {
	for _, t := range s.archived {
		if t.ID == id {
			s.ran = append(s.ran, id)
			return nil
		}
	}
	return asynq.ErrTaskNotFound
}

func (s *stubInspector) RunAllArchivedTasks(q string) (int, error) {
	s.runAll = len(s.archived)
	return s.runAll, nil
}

func withTaskID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("taskID", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestStats(t *testing.T) {
	insp := &stubInspector{}
	h := &queue.AdminHandler{Inspector: insp, Queue: "notify"}

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"queue":"notify"`)

	insp.info = &asynq.QueueInfo{Queue: "notify", Pending: 3, Archived: 2, Latency: 1500 * time.Millisecond}
	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body struct {
		Data queue.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Data.Pending)
	require.Equal(t, 2, body.Data.Dead)
	require.Equal(t, int64(1500), body.Data.LatencyMs)
}

func TestDeadLetters(t *testing.T) {
	failedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	insp := &stubInspector{archived: []*asynq.TaskInfo{
		{ID: "evt-1", Type: "order:notify", Payload: []byte(`{"eventId":"evt-1"}`), Retried: 6, MaxRetry: 6, LastErr: "webhook responded 502", LastFailedAt: failedAt},
	}}
	h := &queue.AdminHandler{Inspector: insp}

	rec := httptest.NewRecorder()
	h.ListDead(rec, httptest.NewRequest(http.MethodGet, "/?page=1&limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, insp.opts)
	var body struct {
		Data []queue.DeadTask `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "webhook responded 502", body.Data[0].LastError)
	require.JSONEq(t, `{"eventId":"evt-1"}`, string(body.Data[0].Payload))

	rec = httptest.NewRecorder()
	h.Replay(rec, withTaskID(httptest.NewRequest(http.MethodPost, "/", nil), "evt-1"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []string{"evt-1"}, insp.ran)

	rec = httptest.NewRecorder()
	h.Replay(rec, withTaskID(httptest.NewRequest(http.MethodPost, "/", nil), "missing"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ReplayAll(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"replayed":1`)
}
