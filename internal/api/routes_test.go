package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/voiceast/server/adapters"
	"github.com/voiceast/server/domain"
	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
	"github.com/voiceast/server/internal/auth"
	"github.com/voiceast/server/internal/dispatch"
	"github.com/voiceast/server/internal/fastpath"
	"github.com/voiceast/server/internal/intent"
	"github.com/voiceast/server/internal/metrics"
	"github.com/voiceast/server/internal/patterns"
	"github.com/voiceast/server/internal/synthesis"
	ws "github.com/voiceast/server/internal/websocket"
)

const testClientSecret = "client-secret"

// volumeExecutor only implements volume control
type volumeExecutor struct {
	repositories.ActionExecutor
	calls []string
}

func (v *volumeExecutor) AdjustVolume(_ context.Context, direction string) (entities.ActionResult, error) {
	v.calls = append(v.calls, direction)
	return entities.ActionResult{Success: true, Message: "Volume " + direction}, nil
}

type staticVoices struct{}

func (staticVoices) Voices(context.Context) ([]repositories.Voice, error) {
	return []repositories.Voice{{ID: "en", Name: "English"}}, nil
}

type testAPI struct {
	echo     *echo.Echo
	store    *adapters.MemoryStore
	executor *volumeExecutor
	issuer   *auth.Issuer
}

func setupAPI(t *testing.T, jwtSecret string) *testAPI {
	t.Helper()
	logger := zaptest.NewLogger(t)
	tables := patterns.Default()
	store := adapters.NewMemoryStore()
	executor := &volumeExecutor{}
	m := metrics.New()
	resolver := intent.NewResolver(nil, intent.NewFallback(tables), false, logger)
	dispatcher := dispatch.NewDispatcher(executor, logger)
	gate := synthesis.NewGate(nil, m, logger)

	hub := ws.NewHub(&ws.Services{
		Matcher:    fastpath.NewMatcher(tables),
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Gate:       gate,
		History:    store,
		Metrics:    m,
	}, logger)
	go hub.Run()

	issuer := auth.NewIssuer(jwtSecret)
	e := echo.New()
	InitRoutes(e, Dependencies{
		Hub:          hub,
		Store:        store,
		Gate:         gate,
		Voices:       staticVoices{},
		Resolver:     resolver,
		Patterns:     intent.NewPatternRecognizer(),
		Dispatcher:   dispatcher,
		Issuer:       issuer,
		Metrics:      m,
		ClientSecret: testClientSecret,
	}, logger)

	return &testAPI{echo: e, store: store, executor: executor, issuer: issuer}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode %s: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	a := setupAPI(t, "")
	rec := a.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var health HealthResponse
	decode(t, rec, &health)
	if health.Status != "healthy" || !health.Database {
		t.Errorf("Unexpected health %+v", health)
	}
	if health.VoiceRecognition || health.TTS || health.AI {
		t.Errorf("Expected unconfigured services to report false, got %+v", health)
	}
}

func TestExecuteSavesHistory(t *testing.T) {
	a := setupAPI(t, "")

	rec := a.do(t, http.MethodPost, "/api/execute", `{"command":"volume up"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var raw map[string]interface{}
	decode(t, rec, &raw)
	if raw["success"] != true || raw["intent"] != "volume_up" || raw["response"] != "Increasing volume" {
		t.Errorf("Unexpected response %v", raw)
	}
	if result, _ := raw["result"].(map[string]interface{}); result["message"] != "Volume up" {
		t.Errorf("Expected the flattened action result, got %v", raw["result"])
	}
	if len(a.executor.calls) != 1 || a.executor.calls[0] != "up" {
		t.Errorf("Expected one volume up call, got %v", a.executor.calls)
	}

	rec = a.do(t, http.MethodGet, "/api/history?limit=10", "")
	var history HistoryResponse
	decode(t, rec, &history)
	if len(history.History) != 1 || history.History[0].Command != "volume up" {
		t.Fatalf("Expected the executed command in history, got %+v", history.History)
	}

	rec = a.do(t, http.MethodGet, "/api/statistics", "")
	var stats entities.Statistics
	decode(t, rec, &stats)
	if stats.TotalCommands != 1 || stats.SuccessRate != 1 {
		t.Errorf("Unexpected statistics %+v", stats)
	}

	a.do(t, http.MethodPost, "/api/history/clear", "")
	rec = a.do(t, http.MethodGet, "/api/history", "")
	decode(t, rec, &history)
	if len(history.History) != 0 {
		t.Errorf("Expected empty history after clear, got %d", len(history.History))
	}
}

func TestRequestValidation(t *testing.T) {
	a := setupAPI(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "bad limit", method: http.MethodGet, path: "/api/history?limit=abc", want: http.StatusBadRequest},
		{name: "empty command", method: http.MethodPost, path: "/api/execute", body: `{"command":"  "}`, want: http.StatusBadRequest},
		{name: "malformed json", method: http.MethodPost, path: "/api/execute", body: `{"command":`, want: http.StatusBadRequest},
		{name: "empty memory", method: http.MethodPost, path: "/api/memories", body: `{"text":""}`, want: http.StatusBadRequest},
		{name: "empty speech", method: http.MethodPost, path: "/api/tts/speak", body: `{"text":""}`, want: http.StatusBadRequest},
		{name: "unknown preference", method: http.MethodGet, path: "/api/preferences/theme", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			var errResp ErrorResponse
			decode(t, rec, &errResp)
			if errResp.Error == "" {
				t.Errorf("Expected an error code in %s", rec.Body.String())
			}
		})
	}
}

func TestPreferencesAndMemories(t *testing.T) {
	a := setupAPI(t, "")

	if rec := a.do(t, http.MethodPost, "/api/preferences/voice", `{"value":"female"}`); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var pref PreferenceResponse
	decode(t, a.do(t, http.MethodGet, "/api/preferences/voice", ""), &pref)
	if pref.Key != "voice" || pref.Value != "female" {
		t.Errorf("Unexpected preference %+v", pref)
	}

	a.do(t, http.MethodPost, "/api/memories", `{"text":"My sister lives in Pune"}`)
	a.do(t, http.MethodPost, "/api/memories", `{"text":"Dentist appointment on Friday"}`)

	var memories MemoriesResponse
	decode(t, a.do(t, http.MethodGet, "/api/memories?q=pune", ""), &memories)
	if len(memories.Memories) != 1 || memories.Memories[0] != "My sister lives in Pune" {
		t.Errorf("Unexpected memories %v", memories.Memories)
	}
}

func TestVoicesAndSpeak(t *testing.T) {
	a := setupAPI(t, "")

	var voices struct {
		Voices []repositories.Voice `json:"voices"`
	}
	decode(t, a.do(t, http.MethodGet, "/api/voices", ""), &voices)
	if len(voices.Voices) != 1 || voices.Voices[0].ID != "en" {
		t.Errorf("Unexpected voices %+v", voices)
	}

	var speak SpeakResponse
	decode(t, a.do(t, http.MethodPost, "/api/tts/speak", `{"text":"hello"}`), &speak)
	if speak.Success || speak.Audio != "" || speak.Text != "hello" {
		t.Errorf("Expected degraded speech without a synthesizer, got %+v", speak)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := setupAPI(t, "")
	a.do(t, http.MethodPost, "/api/tts/speak", `{"text":"hello"}`)

	rec := a.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "voiceast_synthesis_total") {
		t.Errorf("Expected synthesis counter in metrics output")
	}
}

func TestToken(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		body   string
		want   int
	}{
		{name: "valid", secret: "jwt", body: `{"client_id":"tablet","secret_key":"client-secret"}`, want: http.StatusOK},
		{name: "wrong secret", secret: "jwt", body: `{"client_id":"tablet","secret_key":"nope"}`, want: http.StatusUnauthorized},
		{name: "missing fields", secret: "jwt", body: `{"client_id":"tablet"}`, want: http.StatusBadRequest},
		{name: "auth disabled", secret: "", body: `{"client_id":"tablet","secret_key":"client-secret"}`, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := setupAPI(t, tt.secret)
			rec := a.do(t, http.MethodPost, "/api/v1/auth/token", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}

			var token TokenResponse
			decode(t, rec, &token)
			claims, err := a.issuer.ValidateToken(token.Token)
			if err != nil {
				t.Fatalf("Issued token does not validate: %v", err)
			}
			if claims.ClientID != "tablet" || token.ClientID != "tablet" {
				t.Errorf("Unexpected claims %+v", claims)
			}
		})
	}
}

func TestWebSocketAuth(t *testing.T) {
	a := setupAPI(t, "jwt-secret")
	server := httptest.NewServer(a.echo)
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Expected connection without token to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %v", resp)
	}

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected invalid token to be rejected, got %v", err)
	}

	token, _, err := a.issuer.GenerateClientToken("tablet")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Expected authenticated connection, got %v", err)
	}
	defer conn.Close()

	var connected map[string]interface{}
	if err := conn.ReadJSON(&connected); err != nil {
		t.Fatalf("Failed to read connected message: %v", err)
	}
	if connected["type"] != domain.TypeConnected {
		t.Errorf("Expected connected message, got %v", connected)
	}
}

func TestWebSocketOpenWithoutSecret(t *testing.T) {
	a := setupAPI(t, "")
	server := httptest.NewServer(a.echo)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Expected open endpoint, got %v", err)
	}
	conn.Close()
}
