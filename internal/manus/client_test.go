package manus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

const (
	testAPIKey  = "mk_test"
	testProfile = "manus-1.6"
)

// recordedRequest captures what the fake upstream received
type recordedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    map[string]any
}

// newFakeUpstream starts an httptest server that records requests and
// responds with the given status and body.
func newFakeUpstream(t *testing.T, status int, responseBody string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Method = r.Method
		rec.Path = r.URL.Path
		rec.Query = r.URL.Query()
		rec.Headers = r.Header.Clone()
		if r.Body != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				rec.Body = body
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(responseBody))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestCreateTask(t *testing.T) {
	t.Run("defaults fill agent profile and task mode", func(t *testing.T) {
		srv, rec := newFakeUpstream(t, http.StatusOK, `{"taskId":"t-1"}`)
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.CreateTask(context.Background(), "summarize the report", CreateTaskOptions{})
		if !env.OK() {
			t.Fatalf("CreateTask() error = %v", env.Err)
		}

		if rec.Method != http.MethodPost || rec.Path != "/tasks" {
			t.Errorf("request = %s %s, want POST /tasks", rec.Method, rec.Path)
		}
		if got := rec.Body["prompt"]; got != "summarize the report" {
			t.Errorf("prompt = %v, want caller prompt", got)
		}
		if got := rec.Body["agentProfile"]; got != testProfile {
			t.Errorf("agentProfile = %v, want configured default %q", got, testProfile)
		}
		if got := rec.Body["taskMode"]; got != "agent" {
			t.Errorf("taskMode = %v, want %q", got, "agent")
		}
		if _, present := rec.Body["projectId"]; present {
			t.Error("projectId should be omitted when not provided")
		}
	})

	t.Run("caller overrides are sent verbatim", func(t *testing.T) {
		srv, rec := newFakeUpstream(t, http.StatusOK, `{"taskId":"t-2"}`)
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.CreateTask(context.Background(), "write a crawler", CreateTaskOptions{
			AgentProfile: "manus-1.6-max",
			TaskMode:     "chat",
			ProjectID:    "proj-9",
		})
		if !env.OK() {
			t.Fatalf("CreateTask() error = %v", env.Err)
		}

		if got := rec.Body["agentProfile"]; got != "manus-1.6-max" {
			t.Errorf("agentProfile = %v, want caller override", got)
		}
		if got := rec.Body["taskMode"]; got != "chat" {
			t.Errorf("taskMode = %v, want %q", got, "chat")
		}
		if got := rec.Body["projectId"]; got != "proj-9" {
			t.Errorf("projectId = %v, want %q", got, "proj-9")
		}
	})

	t.Run("success body is passed through verbatim", func(t *testing.T) {
		srv, _ := newFakeUpstream(t, http.StatusOK, `{"taskId":"t-3","taskUrl":"https://manus.im/t-3"}`)
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.CreateTask(context.Background(), "anything", CreateTaskOptions{})
		if !env.OK() {
			t.Fatalf("CreateTask() error = %v", env.Err)
		}
		if env.Data["taskId"] != "t-3" || env.Data["taskUrl"] != "https://manus.im/t-3" {
			t.Errorf("Data = %v, want upstream body passed through", env.Data)
		}
	})
}

func TestGetTaskStatus(t *testing.T) {
	srv, rec := newFakeUpstream(t, http.StatusOK, `{"taskId":"t-1","status":"running"}`)
	c := NewClient(srv.URL, testAPIKey, testProfile)

	env := c.GetTaskStatus(context.Background(), "t-1")
	if !env.OK() {
		t.Fatalf("GetTaskStatus() error = %v", env.Err)
	}
	if rec.Method != http.MethodGet || rec.Path != "/tasks/t-1" {
		t.Errorf("request = %s %s, want GET /tasks/t-1", rec.Method, rec.Path)
	}
	if env.Data["status"] != "running" {
		t.Errorf("status = %v, want %q", env.Data["status"], "running")
	}
}

func TestListTasks(t *testing.T) {
	t.Run("defaults send limit=20 and no filters", func(t *testing.T) {
		srv, rec := newFakeUpstream(t, http.StatusOK, `{"tasks":[]}`)
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.ListTasks(context.Background(), ListTasksOptions{})
		if !env.OK() {
			t.Fatalf("ListTasks() error = %v", env.Err)
		}
		if rec.Method != http.MethodGet || rec.Path != "/tasks" {
			t.Errorf("request = %s %s, want GET /tasks", rec.Method, rec.Path)
		}
		if got := rec.Query.Get("limit"); got != "20" {
			t.Errorf("limit = %q, want %q", got, "20")
		}
		if _, present := rec.Query["status"]; present {
			t.Error("status should be omitted when not provided")
		}
		if _, present := rec.Query["project_id"]; present {
			t.Error("project_id should be omitted when not provided")
		}
	})

	t.Run("status filter is sent as single-element value", func(t *testing.T) {
		srv, rec := newFakeUpstream(t, http.StatusOK, `{"tasks":[]}`)
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.ListTasks(context.Background(), ListTasksOptions{Status: "completed"})
		if !env.OK() {
			t.Fatalf("ListTasks() error = %v", env.Err)
		}
		got := rec.Query["status"]
		if len(got) != 1 || got[0] != "completed" {
			t.Errorf("status = %v, want [completed]", got)
		}
	})

	t.Run("limit and project filters", func(t *testing.T) {
		srv, rec := newFakeUpstream(t, http.StatusOK, `{"tasks":[]}`)
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.ListTasks(context.Background(), ListTasksOptions{Limit: 5, ProjectID: "proj-1"})
		if !env.OK() {
			t.Fatalf("ListTasks() error = %v", env.Err)
		}
		if got := rec.Query.Get("limit"); got != "5" {
			t.Errorf("limit = %q, want %q", got, "5")
		}
		if got := rec.Query.Get("project_id"); got != "proj-1" {
			t.Errorf("project_id = %q, want %q", got, "proj-1")
		}
	})
}

func TestContinueTask(t *testing.T) {
	srv, rec := newFakeUpstream(t, http.StatusOK, `{"taskId":"t-1"}`)
	c := NewClient(srv.URL, testAPIKey, testProfile)

	env := c.ContinueTask(context.Background(), "t-1", "also add tests")
	if !env.OK() {
		t.Fatalf("ContinueTask() error = %v", env.Err)
	}
	if rec.Method != http.MethodPost || rec.Path != "/tasks" {
		t.Errorf("request = %s %s, want POST /tasks", rec.Method, rec.Path)
	}
	if got := rec.Body["taskId"]; got != "t-1" {
		t.Errorf("taskId = %v, want %q", got, "t-1")
	}
	if got := rec.Body["prompt"]; got != "also add tests" {
		t.Errorf("prompt = %v, want caller prompt", got)
	}
	// Continuation always uses the configured profile; there is no override.
	if got := rec.Body["agentProfile"]; got != testProfile {
		t.Errorf("agentProfile = %v, want configured default %q", got, testProfile)
	}
}

func TestRequestHeaders(t *testing.T) {
	srv, rec := newFakeUpstream(t, http.StatusOK, `{}`)
	c := NewClient(srv.URL, testAPIKey, testProfile)

	if env := c.GetTaskStatus(context.Background(), "t-1"); !env.OK() {
		t.Fatalf("GetTaskStatus() error = %v", env.Err)
	}
	if got := rec.Headers.Get("API_KEY"); got != testAPIKey {
		t.Errorf("API_KEY header = %q, want %q", got, testAPIKey)
	}
	if got := rec.Headers.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type header = %q, want %q", got, "application/json")
	}
}

func TestErrorEnvelopes(t *testing.T) {
	t.Run("404 with JSON message", func(t *testing.T) {
		srv, _ := newFakeUpstream(t, http.StatusNotFound, `{"message": "not found"}`)
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.GetTaskStatus(context.Background(), "missing")
		if env.OK() {
			t.Fatal("expected error envelope")
		}
		if env.Err.Kind != KindAPI {
			t.Errorf("Kind = %q, want %q", env.Err.Kind, KindAPI)
		}

		m := env.ToMap()
		if m["error"] != "Manus API Error: not found" {
			t.Errorf("error = %v, want %q", m["error"], "Manus API Error: not found")
		}
		if m["status_code"] != 404 {
			t.Errorf("status_code = %v, want 404", m["status_code"])
		}
	})

	t.Run("500 with non-JSON body falls back to status text", func(t *testing.T) {
		srv, _ := newFakeUpstream(t, http.StatusInternalServerError, "<html>oops</html>")
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.ListTasks(context.Background(), ListTasksOptions{})
		if env.OK() {
			t.Fatal("expected error envelope")
		}
		m := env.ToMap()
		errMsg, ok := m["error"].(string)
		if !ok || errMsg == "" {
			t.Errorf("error = %v, want non-empty string", m["error"])
		}
		if m["status_code"] != 500 {
			t.Errorf("status_code = %v, want 500", m["status_code"])
		}
	})

	t.Run("JSON error body without message field falls back", func(t *testing.T) {
		srv, _ := newFakeUpstream(t, http.StatusForbidden, `{"detail": "nope"}`)
		c := NewClient(srv.URL, testAPIKey, testProfile)

		env := c.GetTaskStatus(context.Background(), "t-1")
		if env.OK() {
			t.Fatal("expected error envelope")
		}
		if env.Err.Message != "Manus API Error: 403 Forbidden" {
			t.Errorf("Message = %q, want status text fallback", env.Err.Message)
		}
	})

	t.Run("transport failure is normalized, not raised", func(t *testing.T) {
		// Start and immediately close a server so the port refuses connections.
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := srv.URL
		srv.Close()

		c := NewClient(addr, testAPIKey, testProfile)
		env := c.GetTaskStatus(context.Background(), "t-1")
		if env.OK() {
			t.Fatal("expected error envelope")
		}
		if env.Err.Kind != KindTransport {
			t.Errorf("Kind = %q, want %q", env.Err.Kind, KindTransport)
		}
		if env.Err.StatusCode != 0 {
			t.Errorf("StatusCode = %d, want 0 for transport failures", env.Err.StatusCode)
		}
		m := env.ToMap()
		if _, present := m["status_code"]; present {
			t.Error("transport failure envelope should not carry a status_code")
		}
		if msg, ok := m["error"].(string); !ok || msg == "" {
			t.Errorf("error = %v, want non-empty string", m["error"])
		}
	})
}

func TestEnvelopeToMap(t *testing.T) {
	t.Run("nil data success renders empty object", func(t *testing.T) {
		env := &Envelope{}
		if m := env.ToMap(); len(m) != 0 {
			t.Errorf("ToMap() = %v, want empty map", m)
		}
	})
}
