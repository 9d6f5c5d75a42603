package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dusk-indust/enigma/internal/agent"
	"github.com/dusk-indust/enigma/internal/logging"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// defaultRegistry mirrors startup: a single EchoAgent.
func defaultRegistry() *agent.Registry {
	reg := agent.NewRegistry()
	reg.Register(agent.NewEchoAgent())
	return reg
}

func newTestServer(t *testing.T, reg *agent.Registry, opts ...Option) *httptest.Server {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	ts := httptest.NewServer(New(reg, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeDetail(t *testing.T, data []byte) string {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(data, &er))
	return er.Detail
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func TestRoot(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"message": "Welcome to Symmetrical Enigma!"}`, string(data))
}

func TestRoot_IndependentOfRegistry(t *testing.T) {
	ts := newTestServer(t, agent.NewRegistry())

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message": "Welcome to Symmetrical Enigma!"}`, string(data))
}

func TestListAgents(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/agents", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"name": "EchoAgent", "description": "Echoes back the input message"}]`, string(data))
}

func TestListAgents_Empty(t *testing.T) {
	ts := newTestServer(t, agent.NewRegistry())

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/agents", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(data))
}

func TestListAgents_ReflectsOverwrite(t *testing.T) {
	reg := defaultRegistry()
	reg.Register(agent.NewEchoAgent(agent.WithDescription("replaced")))
	reg.Register(agent.NewEchoAgent(agent.WithName("Other")))
	ts := newTestServer(t, reg)

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/agents", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var infos []AgentInfo
	require.NoError(t, json.Unmarshal(data, &infos))
	assert.ElementsMatch(t, []AgentInfo{
		{Name: "EchoAgent", Description: "replaced"},
		{Name: "Other", Description: agent.DefaultEchoDescription},
	}, infos)
}

func TestGetAgent(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/agents/EchoAgent", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"name": "EchoAgent", "description": "Echoes back the input message"}`, string(data))
}

func TestGetAgent_NotFound(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/agents/NonExistent", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	detail := decodeDetail(t, data)
	assert.Contains(t, detail, "not found")
	assert.Equal(t, "Agent 'NonExistent' not found", detail)
}

func TestGetAgent_CaseSensitive(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/agents/echoagent", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProcess(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/agents/EchoAgent/process", `{"message": "Hello, World!"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"agent_name": "EchoAgent", "response": "Hello, World!"}`, string(data))
}

func TestProcess_EmptyMessage(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/agents/EchoAgent/process", `{"message": ""}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"agent_name": "EchoAgent", "response": ""}`, string(data))
}

func TestProcess_WithPrefix(t *testing.T) {
	reg := agent.NewRegistry()
	reg.Register(agent.NewEchoAgent(agent.WithName("Prefixed"), agent.WithPrefix("Echo: ")))
	ts := newTestServer(t, reg)

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/agents/Prefixed/process", `{"message": "hi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"agent_name": "Prefixed", "response": "Echo: hi"}`, string(data))
}

func TestProcess_LargeMessage(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	big := strings.Repeat("a", 1<<20)
	body, err := json.Marshal(MessageRequest{Message: big})
	require.NoError(t, err)

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/agents/EchoAgent/process", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var mr MessageResponse
	require.NoError(t, json.Unmarshal(data, &mr))
	assert.Equal(t, big, mr.Response)
}

func TestProcess_ExtraFieldsIgnored(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/agents/EchoAgent/process", `{"message": "x", "extra": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"agent_name": "EchoAgent", "response": "x"}`, string(data))
}

func TestProcess_NotFound(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/agents/NonExistent/process", `{"message": "Hello"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decodeDetail(t, data), "not found")
}

func TestProcess_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `hello`, "invalid request body"},
		{"empty body", ``, "invalid request body"},
		{"message not a string", `{"message": 42}`, "invalid request body"},
		{"array body", `["x"]`, "invalid request body"},
		{"trailing garbage", `{"message":"hi"} not-json`, "invalid request body"},
		{"two objects", `{"message":"hi"}{"message":"x"}`, "invalid request body"},
		{"missing message", `{}`, "field 'message' is required"},
		{"null message", `{"message": null}`, "field 'message' is required"},
	}

	ts := newTestServer(t, defaultRegistry())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.URL+"/agents/EchoAgent/process", bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, decodeDetail(t, data), tt.want)
		})
	}
}

func TestProcess_AgentError(t *testing.T) {
	reg := agent.NewRegistry()
	reg.Register(agent.NewBaseAgent("Broken", "always fails", func(context.Context, string) (string, error) {
		return "", errors.New("upstream unavailable")
	}))
	ts := newTestServer(t, reg)

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/agents/Broken/process", `{"message": "x"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "upstream unavailable", decodeDetail(t, data))
}

func TestProcess_WrongMethod(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/agents/EchoAgent/process", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, defaultRegistry(), WithVersion("1.2.3"))

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status": "ok", "agents": 1, "version": "1.2.3"}`, string(data))
}

func TestMCPHandlerMounted(t *testing.T) {
	mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	ts := newTestServer(t, defaultRegistry(), WithMCPHandler("/mcp", mcp))

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/mcp", `{}`)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestRequestID_Generated(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/", "")
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
}

func TestRequestID_Propagated(t *testing.T) {
	ts := newTestServer(t, defaultRegistry())

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/agents", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "info", "json")
	require.NoError(t, err)
	ts := httptest.NewServer(New(defaultRegistry(), WithLogger(logger)).Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/agents/NonExistent", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "log-me")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, "/agents/NonExistent", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, "log-me", entry["request_id"])
}

func TestProcess_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ts := newTestServer(t, defaultRegistry(), WithTracerProvider(tp))

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/agents/EchoAgent/process", `{"message": "trace me"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "agent.process")
	assert.Contains(t, names, "POST /agents/EchoAgent/process")

	for _, s := range sr.Ended() {
		if s.Name() != "agent.process" {
			continue
		}
		attrs := map[string]string{}
		for _, kv := range s.Attributes() {
			attrs[string(kv.Key)] = kv.Value.Emit()
		}
		assert.Equal(t, "EchoAgent", attrs["agent.name"])
		assert.Equal(t, "8", attrs["message.length"])
		assert.True(t, s.Parent().IsValid(), "agent span should be a child of the request span")
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestStartStop(t *testing.T) {
	srv := New(defaultRegistry(), WithLogger(logging.Discard()))

	require.NoError(t, srv.Start(context.Background(), "127.0.0.1:0"))
	addr := srv.Addr()
	require.NotEmpty(t, addr)

	resp, _ := doJSON(t, http.MethodGet, "http://"+addr+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Error(t, srv.Start(context.Background(), "127.0.0.1:0"), "second Start should fail")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.Empty(t, srv.Addr())

	client := &http.Client{Timeout: 500 * time.Millisecond}
	_, err := client.Get("http://" + addr + "/")
	assert.Error(t, err, "server should not respond after Stop")
}

func TestStop_BeforeStart(t *testing.T) {
	srv := New(defaultRegistry(), WithLogger(logging.Discard()))
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestStart_BadAddr(t *testing.T) {
	srv := New(defaultRegistry(), WithLogger(logging.Discard()))
	err := srv.Start(context.Background(), "not-an-addr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := New(defaultRegistry(), WithLogger(logging.Discard()), WithTimeouts(0, 0, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
