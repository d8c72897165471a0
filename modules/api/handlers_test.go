package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/callme-dispatch/modules/sweeper"
	"github.com/example/callme-dispatch/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// fakeTaskPort returns canned responses and records calls.
type fakeTaskPort struct {
	enqueue   *task.EnqueueResponse
	claim     *task.ClaimResponse
	complete  *task.CompleteResponse
	stats     *task.StatsResponse
	err       error
	lastReq   *task.EnqueueRequest
	completed int64
}

func (f *fakeTaskPort) Enqueue(_ context.Context, req *task.EnqueueRequest) (*task.EnqueueResponse, error) {
	f.lastReq = req
	return f.enqueue, f.err
}

func (f *fakeTaskPort) Claim(context.Context) (*task.ClaimResponse, error) {
	return f.claim, f.err
}

func (f *fakeTaskPort) Complete(_ context.Context, id int64) (*task.CompleteResponse, error) {
	f.completed = id
	return f.complete, f.err
}

func (f *fakeTaskPort) Stats(context.Context) (*task.StatsResponse, error) {
	return f.stats, f.err
}

type fakeSweepPort struct {
	resp *sweeper.LastSweepResponse
}

func (f fakeSweepPort) LastSweep(context.Context) (*sweeper.LastSweepResponse, error) {
	return f.resp, nil
}

func newTestApp(tasks task.TaskPort) *fiber.App {
	m := NewModule(3000, nil, &mockLogger{})
	m.tasks = tasks
	m.sweeps = fakeSweepPort{resp: &sweeper.LastSweepResponse{Ran: true, RunID: "run-1", Requeued: 2}}
	return m.newApp()
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

func TestBanner(t *testing.T) {
	app := newTestApp(&fakeTaskPort{})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, bannerText, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestEnqueueTask(t *testing.T) {
	port := &fakeTaskPort{enqueue: &task.EnqueueResponse{Success: true, Message: "ok", TaskID: 42}}
	app := newTestApp(port)

	status, body := doJSON(t, app, "POST", "/api/v1/tasks/enqueue",
		`{"submitter_id":"alice","target":"13800138000","content":"database is on fire"}`)

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(42), body["task_id"])
	require.NotNil(t, port.lastReq)
	assert.Equal(t, "alice", port.lastReq.SubmitterID)
	assert.Equal(t, "13800138000", port.lastReq.Target)
}

func TestEnqueueTask_ErrorStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"invalid_input", fiber.StatusBadRequest},
		{"not_authorized", fiber.StatusForbidden},
		{"rate_limited", fiber.StatusTooManyRequests},
		{"persistence_error", fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			app := newTestApp(&fakeTaskPort{enqueue: &task.EnqueueResponse{Success: false, Message: "no", Code: tt.code}})
			status, body := doJSON(t, app, "POST", "/api/v1/tasks/enqueue", `{"submitter_id":"alice"}`)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
			assert.NotContains(t, body, "task_id")
		})
	}
}

func TestEnqueueTask_BadBody(t *testing.T) {
	app := newTestApp(&fakeTaskPort{})
	status, body := doJSON(t, app, "POST", "/api/v1/tasks/enqueue", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["code"])
}

func TestEnqueueTask_TransportError(t *testing.T) {
	app := newTestApp(&fakeTaskPort{err: errors.New("nats: timeout")})
	status, body := doJSON(t, app, "POST", "/api/v1/tasks/enqueue", `{"submitter_id":"alice"}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "server_error", body["error"])
}

func TestClaimTask(t *testing.T) {
	t.Run("claimed", func(t *testing.T) {
		app := newTestApp(&fakeTaskPort{claim: &task.ClaimResponse{
			Success: true,
			Message: "task claimed",
			Task:    &task.TaskPayload{ID: 7, SubmitterID: "bob", Target: "13800138000", Content: "page the on-call"},
		}})
		status, body := doJSON(t, app, "GET", "/api/v1/tasks/claim", "")
		assert.Equal(t, fiber.StatusOK, status)
		claimed, ok := body["task"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(7), claimed["id"])
		assert.Equal(t, "bob", claimed["submitter_id"])
	})

	t.Run("empty queue", func(t *testing.T) {
		app := newTestApp(&fakeTaskPort{claim: &task.ClaimResponse{Success: false, Message: "no pending task", Code: "no_pending_task"}})
		status, body := doJSON(t, app, "GET", "/api/v1/tasks/claim", "")
		assert.Equal(t, fiber.StatusNotFound, status)
		assert.Equal(t, "no_pending_task", body["code"])
		assert.NotContains(t, body, "task")
	})
}

func TestCompleteTask(t *testing.T) {
	port := &fakeTaskPort{complete: &task.CompleteResponse{Success: true, Message: "task status updated"}}
	app := newTestApp(port)

	status, body := doJSON(t, app, "POST", "/api/v1/tasks/complete", `{"task_id":12}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, int64(12), port.completed)

	status, _ = doJSON(t, app, "POST", "/api/v1/tasks/complete", `{"task_id":0}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	missing := newTestApp(&fakeTaskPort{complete: &task.CompleteResponse{Success: false, Message: "task not found", Code: "not_found"}})
	status, _ = doJSON(t, missing, "POST", "/api/v1/tasks/complete", `{"task_id":99}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestLegacyRoutes(t *testing.T) {
	t.Run("addPhoneTask success", func(t *testing.T) {
		port := &fakeTaskPort{enqueue: &task.EnqueueResponse{Success: true, Message: "created", TaskID: 5}}
		app := newTestApp(port)

		status, body := doJSON(t, app, "POST", "/addPhoneTask",
			`{"user_id":"alice","phone_number":"13800138000","notification_content":"database is on fire"}`)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "created", body["msg"])
		assert.Equal(t, "5", body["task_id"])
		assert.Equal(t, "database is on fire", port.lastReq.Content)
	})

	t.Run("addPhoneTask rejected still 200", func(t *testing.T) {
		app := newTestApp(&fakeTaskPort{enqueue: &task.EnqueueResponse{Success: false, Message: "slow down", Code: "rate_limited"}})
		status, body := doJSON(t, app, "POST", "/addPhoneTask", `{"user_id":"alice"}`)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, false, body["success"])
		assert.Nil(t, body["task_id"])
	})

	t.Run("getPhoneTask", func(t *testing.T) {
		app := newTestApp(&fakeTaskPort{claim: &task.ClaimResponse{
			Success: true,
			Message: "task claimed",
			Task:    &task.TaskPayload{ID: 3, SubmitterID: "bob", Target: "13800138000", Content: "page the on-call"},
		}})
		status, body := doJSON(t, app, "GET", "/getPhoneTask", "")
		assert.Equal(t, fiber.StatusOK, status)
		phoneTask, ok := body["task"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "bob", phoneTask["user_id"])
		assert.Equal(t, "13800138000", phoneTask["phone_number"])
		assert.Equal(t, "page the on-call", phoneTask["notification_content"])
	})

	t.Run("getPhoneTask empty still 200", func(t *testing.T) {
		app := newTestApp(&fakeTaskPort{claim: &task.ClaimResponse{Success: false, Message: "no pending task", Code: "no_pending_task"}})
		status, body := doJSON(t, app, "GET", "/getPhoneTask", "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, false, body["success"])
		assert.Nil(t, body["task"])
	})

	t.Run("finishPhoneTask transport error still 200", func(t *testing.T) {
		app := newTestApp(&fakeTaskPort{err: errors.New("nats: timeout")})
		status, body := doJSON(t, app, "POST", "/finishPhoneTask", `{"task_id":1}`)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, false, body["success"])
	})
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app := newTestApp(&fakeTaskPort{stats: &task.StatsResponse{Healthy: true, Driver: "sqlite", Pending: 2, InProgress: 1}})
		status, body := doJSON(t, app, "GET", "/health", "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "healthy", body["status"])

		details, ok := body["details"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "sqlite", details["driver"])
		counts, ok := details["tasks"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(2), counts["pending"])
		assert.Contains(t, details, "last_sweep")
	})

	t.Run("store down", func(t *testing.T) {
		app := newTestApp(&fakeTaskPort{stats: &task.StatsResponse{Healthy: false, Driver: "sqlite", Error: "database is locked"}})
		status, body := doJSON(t, app, "GET", "/health", "")
		assert.Equal(t, fiber.StatusServiceUnavailable, status)
		assert.Equal(t, "unhealthy", body["status"])
	})
}

func TestCORS(t *testing.T) {
	app := newTestApp(&fakeTaskPort{})

	req := httptest.NewRequest("OPTIONS", "/api/v1/tasks/enqueue", nil)
	req.Header.Set("Origin", "https://agent.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, statusForCode("no_pending_task"))
	assert.Equal(t, fiber.StatusNotFound, statusForCode("not_found"))
	assert.Equal(t, fiber.StatusInternalServerError, statusForCode("something_else"))
}

func TestAPIModule_Lifecycle(t *testing.T) {
	m := NewModule(0, nil, &mockLogger{})
	assert.Equal(t, "api", m.Name())
	assert.Equal(t, []string{"task", "sweeper"}, m.Dependencies())
	assert.Error(t, m.Start(context.Background()), "start without task adapter should fail")
	assert.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
}
