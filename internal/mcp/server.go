package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/HyphaGroup/manus-mcp/internal/config"
	"github.com/HyphaGroup/manus-mcp/internal/history"
	"github.com/HyphaGroup/manus-mcp/internal/logger"
	"github.com/HyphaGroup/manus-mcp/internal/manus"
	"github.com/HyphaGroup/manus-mcp/internal/metrics"
	"github.com/HyphaGroup/manus-mcp/internal/ratelimit"
)

// TaskAPI is the bridge surface the tool handlers call. *manus.Client
// implements it; tests substitute a fake.
type TaskAPI interface {
	CreateTask(ctx context.Context, prompt string, opts manus.CreateTaskOptions) *manus.Envelope
	GetTaskStatus(ctx context.Context, taskID string) *manus.Envelope
	ListTasks(ctx context.Context, opts manus.ListTasksOptions) *manus.Envelope
	ContinueTask(ctx context.Context, taskID, prompt string) *manus.Envelope
}

// ReachabilityProbe reports whether the upstream API is reachable.
// *probe.Probe implements it.
type ReachabilityProbe interface {
	Reachable() bool
}

// Server wraps the MCP server with the bridge client and its supporting pieces
type Server struct {
	cfg       *config.Config
	client    TaskAPI
	registry  *Registry
	historyDB *history.Store
	probe     ReachabilityProbe
	version   string
	mcpServer *mcp.Server
}

// ServerOptions holds the optional server collaborators
type ServerOptions struct {
	// History, when set, records every tool invocation.
	History *history.Store
	// Probe, when set, supplies upstream reachability for /ready.
	Probe ReachabilityProbe
	// Version reported by get_server_info. Defaults to "dev".
	Version string
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, client TaskAPI, opts *ServerOptions) *Server {
	version := "dev"
	var historyDB *history.Store
	var upstreamProbe ReachabilityProbe
	if opts != nil {
		if opts.Version != "" {
			version = opts.Version
		}
		historyDB = opts.History
		upstreamProbe = opts.Probe
	}

	s := &Server{
		cfg:       cfg,
		client:    client,
		registry:  NewRegistry(),
		historyDB: historyDB,
		probe:     upstreamProbe,
		version:   version,
	}

	s.registerAllTools(s.registry)
	return s
}

// GetRegistry returns the tool registry for external access
func (s *Server) GetRegistry() *Registry {
	return s.registry
}

// Serve starts the MCP HTTP server
func (s *Server) Serve(addr string) error {
	handler := s.buildHandler()

	logger.Info("🚀 Manus MCP server listening on %s", addr)
	logger.Info("📡 MCP endpoint: http://%s/mcp", addr)
	logger.Info("💚 Health check: http://%s/health", addr)
	logger.Info("💚 Readiness check: http://%s/ready", addr)
	logger.Info("📊 Metrics: http://%s/metrics", addr)
	return http.ListenAndServe(addr, handler)
}

// buildHandler assembles the full HTTP handler chain. Split from Serve so
// tests can exercise the endpoints without binding a port.
func (s *Server) buildHandler() http.Handler {
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "manus-mcp",
		Version: s.version,
	}, nil)

	s.registry.RegisterWithMCPServer(s.mcpServer)

	// The bridge keeps no session state, so serve each request statelessly.
	mcpHandler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{
		Stateless: true,
	})

	// Wrap with request ID and logging middleware
	loggingHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), logger.ContextKeyRequestID, requestID)
		r = r.WithContext(ctx)

		logger.Info("HTTP %s %s from %s [request_id=%s]", r.Method, r.URL.Path, r.RemoteAddr, requestID)
		mcpHandler.ServeHTTP(w, r)
	})

	// Rate limit the MCP endpoint per client address
	rateLimitedHandler := ratelimit.Middleware(ratelimit.Default())(loggingHandler)

	mainMux := http.NewServeMux()

	// Health endpoints, metrics, and the invocation log are unauthenticated
	// and unlimited
	mainMux.HandleFunc("/health", s.handleHealthCheck)
	mainMux.HandleFunc("/ready", s.handleReadinessCheck)
	mainMux.HandleFunc("/history", s.handleHistory)
	mainMux.Handle("/metrics", metrics.Handler())

	mainMux.Handle("/mcp", metrics.Middleware(rateLimitedHandler))
	mainMux.Handle("/mcp/", metrics.Middleware(rateLimitedHandler))

	return mainMux
}

// handleHealthCheck is a basic liveness check
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleReadinessCheck verifies the server can serve requests
func (s *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.probe != nil && !s.probe.Reachable() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready","reason":"Manus API unreachable"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// handleHistory returns recent tool invocations for operator inspection.
// Answers 404 when the server runs without a history store.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.historyDB == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"invocation history not enabled"}`))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"limit must be a positive integer"}`))
			return
		}
		limit = n
	}

	invocations, err := s.historyDB.Recent(limit)
	if err != nil {
		logger.Error("Failed to read invocation history: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to read invocation history"}`))
		return
	}
	if invocations == nil {
		invocations = []*history.Invocation{}
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"invocations": invocations,
		"count":       len(invocations),
	})
}

// callUpstream runs one bridge operation and records its outcome. The
// envelope is always rendered to a map; failures are data, not errors.
func (s *Server) callUpstream(tool string, fn func() *manus.Envelope) map[string]any {
	start := time.Now()
	env := fn()
	duration := time.Since(start)

	status := "ok"
	statusCode := 0
	if env.Err != nil {
		status = "error"
		statusCode = env.Err.StatusCode
	}
	metrics.RecordToolCall(tool, status)

	if s.historyDB != nil {
		if err := s.historyDB.Record(tool, env.OK(), statusCode, duration); err != nil {
			logger.Error("Failed to record invocation: %v", err)
		}
	}

	return env.ToMap()
}

// recordLocal records a tool call that never leaves the process.
func (s *Server) recordLocal(tool string) {
	metrics.RecordToolCall(tool, "ok")
	if s.historyDB != nil {
		if err := s.historyDB.Record(tool, true, 0, 0); err != nil {
			logger.Error("Failed to record invocation: %v", err)
		}
	}
}
