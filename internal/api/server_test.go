package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/notice-client/internal/auth"
	"github.com/nerrad567/notice-client/internal/connection"
	"github.com/nerrad567/notice-client/internal/infrastructure/config"
	"github.com/nerrad567/notice-client/internal/infrastructure/logging"
	"github.com/nerrad567/notice-client/internal/notice"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// fakeCommands is an in-memory Commands implementation.
type fakeCommands struct {
	mu         sync.Mutex
	cfg        connection.ClientConfig
	state      string
	messages   []notice.StoredMessage
	connectErr error
	saveErr    error
	connects   int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{cfg: connection.DefaultClientConfig(), state: "disconnected"}
}

func (f *fakeCommands) GetConfig() connection.ClientConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fakeCommands) SaveConfig(cfg connection.ClientConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.cfg = cfg
	return nil
}

func (f *fakeCommands) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.state = "connecting"
	return nil
}

func (f *fakeCommands) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = "disconnected"
}

func (f *fakeCommands) ConnectionState() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeCommands) Messages(context.Context) []notice.StoredMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages
}

func (f *fakeCommands) SaveMessages(_ context.Context, msgs []notice.StoredMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.messages = msgs
	return nil
}

// testServer creates a Server around fake commands. secret may be empty.
func testServer(t *testing.T, secret string) (*Server, *fakeCommands) {
	t.Helper()

	cmds := newFakeCommands()
	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{APISecret: secret},
		Logger:   logging.Nop(),
		Service:  cmds,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv, cmds
}

// do runs a request through the router and returns the recorder.
func do(t *testing.T, srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func mustToken(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateToken("test", role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Service: newFakeCommands()}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Nop()}); err == nil {
		t.Error("New() without service should fail")
	}
}

func TestNew_UsesExternalHub(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Nop())
	srv, err := New(Deps{Logger: logging.Nop(), Service: newFakeCommands(), Hub: hub})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if srv.Hub() != hub {
		t.Error("server should use the injected hub")
	}
}

func TestServer_StartAndClose(t *testing.T) {
	srv, _ := testServer(t, "")

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck before Start should fail")
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if srv.Addr() == "" {
		t.Fatal("Addr() should be set after Start")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	first, _ := testServer(t, "")
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer first.Close()

	second, _ := testServer(t, "")
	_, portStr, err := net.SplitHostPort(first.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi: %v", err)
	}
	second.cfg.Port = port

	if err := second.Start(context.Background()); err == nil {
		second.Close()
		t.Error("Start() on a used port should fail")
	}
}

// =============================================================================
// Health
// =============================================================================

func TestHealth(t *testing.T) {
	srv, cmds := testServer(t, testSecret)
	cmds.state = "connected"

	w := do(t, srv, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body := decode[map[string]any](t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
	if body["connection_state"] != "connected" {
		t.Errorf("connection_state = %v, want connected", body["connection_state"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}
}

// =============================================================================
// Config
// =============================================================================

func TestConfig_GetAndPut(t *testing.T) {
	srv, cmds := testServer(t, "")

	w := do(t, srv, http.MethodGet, "/api/v1/config", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", w.Code)
	}
	got := decode[connection.ClientConfig](t, w)
	if got != connection.DefaultClientConfig() {
		t.Errorf("GET config = %+v, want default", got)
	}

	body := `{"server":"wss://broker.example.com/mqtt","client_id":"desk","topic":"alerts/#","token":"abc"}`
	w = do(t, srv, http.MethodPut, "/api/v1/config", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200: %s", w.Code, w.Body.String())
	}

	want := connection.ClientConfig{Server: "wss://broker.example.com/mqtt", ClientID: "desk", Topic: "alerts/#", Token: "abc"}
	if cmds.GetConfig() != want {
		t.Errorf("saved config = %+v, want %+v", cmds.GetConfig(), want)
	}
	if cmds.connects != 0 {
		t.Error("saving config must not connect")
	}
}

func TestConfig_PutRejectsBadJSON(t *testing.T) {
	srv, _ := testServer(t, "")

	for _, body := range []string{`{`, `{"server":"x","unknown":1}`, `[]`} {
		w := do(t, srv, http.MethodPut, "/api/v1/config", body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestConfig_PutSaveFailure(t *testing.T) {
	srv, cmds := testServer(t, "")
	cmds.saveErr = errors.New("disk full")

	w := do(t, srv, http.MethodPut, "/api/v1/config", `{"server":"tcp://h"}`, "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// =============================================================================
// Connection
// =============================================================================

func TestConnect(t *testing.T) {
	srv, cmds := testServer(t, "")

	w := do(t, srv, http.MethodPost, "/api/v1/connect", "", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if got := decode[stateResponse](t, w); got.State != "connecting" {
		t.Errorf("state = %q, want connecting", got.State)
	}
	if cmds.connects != 1 {
		t.Errorf("connects = %d, want 1", cmds.connects)
	}
}

func TestConnect_AddressError(t *testing.T) {
	srv, cmds := testServer(t, "")
	cmds.connectErr = fmt.Errorf("%w: bad port", connection.ErrAddressParse)

	w := do(t, srv, http.MethodPost, "/api/v1/connect", "", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decode[Error](t, w); got.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", got.Code, ErrCodeValidation)
	}
}

func TestConnect_OtherError(t *testing.T) {
	srv, cmds := testServer(t, "")
	cmds.connectErr = context.Canceled

	w := do(t, srv, http.MethodPost, "/api/v1/connect", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestDisconnectAndState(t *testing.T) {
	srv, cmds := testServer(t, "")
	cmds.state = "connected"

	w := do(t, srv, http.MethodGet, "/api/v1/connection-state", "", "")
	if got := decode[stateResponse](t, w); got.State != "connected" {
		t.Errorf("state = %q, want connected", got.State)
	}

	w = do(t, srv, http.MethodPost, "/api/v1/disconnect", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decode[stateResponse](t, w); got.State != "disconnected" {
		t.Errorf("state = %q, want disconnected", got.State)
	}
}

// =============================================================================
// Messages
// =============================================================================

func TestMessages_EmptyIsArray(t *testing.T) {
	srv, _ := testServer(t, "")

	w := do(t, srv, http.MethodGet, "/api/v1/messages", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"messages":[]`) {
		t.Errorf("body = %s, want empty messages array", w.Body.String())
	}
}

func TestMessages_PutAndGet(t *testing.T) {
	srv, _ := testServer(t, "")

	body := `{"messages":[{"topic":"notice/a","title":"t","content":"c","timestamp":"2024-10-01T12:00:00Z"}]}`
	w := do(t, srv, http.MethodPut, "/api/v1/messages", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodGet, "/api/v1/messages", "", "")
	got := decode[messagesBody](t, w)
	if got.Count != 1 || len(got.Messages) != 1 {
		t.Fatalf("count = %d, messages = %d, want 1", got.Count, len(got.Messages))
	}
	if got.Messages[0].Topic != "notice/a" {
		t.Errorf("topic = %q, want notice/a", got.Messages[0].Topic)
	}
}

func TestMessages_PutBadJSON(t *testing.T) {
	srv, _ := testServer(t, "")
	w := do(t, srv, http.MethodPut, "/api/v1/messages", `{"messages":`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// =============================================================================
// Auth
// =============================================================================

func TestAuth_Required(t *testing.T) {
	srv, _ := testServer(t, testSecret)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer nonsense"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.buildRouter().ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	srv, _ := testServer(t, testSecret)
	token, err := auth.GenerateToken("x", auth.RoleOperator, "another-secret-that-is-long-enough-123", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	w := do(t, srv, http.MethodGet, "/api/v1/config", "", token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_RolePermissions(t *testing.T) {
	srv, _ := testServer(t, testSecret)
	viewer := mustToken(t, auth.RoleViewer)
	operator := mustToken(t, auth.RoleOperator)

	tests := []struct {
		method, path, body string
		token              string
		want               int
	}{
		{http.MethodGet, "/api/v1/config", "", viewer, http.StatusOK},
		{http.MethodGet, "/api/v1/connection-state", "", viewer, http.StatusOK},
		{http.MethodGet, "/api/v1/messages", "", viewer, http.StatusOK},
		{http.MethodPut, "/api/v1/config", `{"server":"tcp://h"}`, viewer, http.StatusForbidden},
		{http.MethodPost, "/api/v1/connect", "", viewer, http.StatusForbidden},
		{http.MethodPost, "/api/v1/disconnect", "", viewer, http.StatusForbidden},
		{http.MethodPut, "/api/v1/messages", `{"messages":[]}`, viewer, http.StatusForbidden},
		{http.MethodPut, "/api/v1/config", `{"server":"tcp://h"}`, operator, http.StatusOK},
		{http.MethodPost, "/api/v1/connect", "", operator, http.StatusAccepted},
		{http.MethodPost, "/api/v1/disconnect", "", operator, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body, tt.token)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAuth_HealthIsOpen(t *testing.T) {
	srv, _ := testServer(t, testSecret)
	w := do(t, srv, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// =============================================================================
// Middleware
// =============================================================================

func TestCORS(t *testing.T) {
	srv, _ := testServer(t, "")
	srv.cfg.CORS.AllowedOrigins = []string{"http://ui.local"}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/config", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Allow-Origin = %q", got)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	srv, _ := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want abc123", got)
	}
}

func TestJoinOrDefault(t *testing.T) {
	if got := joinOrDefault(nil, "x"); got != "x" {
		t.Errorf("joinOrDefault(nil) = %q", got)
	}
	if got := joinOrDefault([]string{"a", "b"}, "x"); got != "a, b" {
		t.Errorf("joinOrDefault = %q", got)
	}
}
