package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/quantalink/qnet-gateway/internal/config"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, overrides ...config.TierLimits) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Environment: "test"},
		Tiers:  overrides,
	}

	s := New(cfg, zap.NewNop(), nil, nil)
	t.Cleanup(func() {
		s.Shutdown(context.Background())
	})
	return s
}

func doExecute(t *testing.T, s *Server, apiKey string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/execute", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestExecuteMissingKey(t *testing.T) {
	s := newTestServer(t)

	w := doExecute(t, s, "", map[string]any{"protocol": "entangle"})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != "INVALID_API_KEY" {
		t.Errorf("code = %v, want INVALID_API_KEY", body["code"])
	}
}

func TestExecuteSandbox(t *testing.T) {
	s := newTestServer(t)

	w := doExecute(t, s, "qn_test_abc123", map[string]any{"protocol": "entangle"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["backend"] != "simulator" {
		t.Errorf("backend = %v, want simulator", body["backend"])
	}
	if body["job_id"] == "" || body["job_id"] == nil {
		t.Error("job_id missing from response")
	}
	if body["bell_state"] == nil {
		t.Error("bell_state missing from entangle response")
	}

	if got := w.Header().Get("X-API-Tier"); got != "sandbox" {
		t.Errorf("X-API-Tier = %q, want sandbox", got)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "1000" {
		t.Errorf("X-RateLimit-Limit = %q, want 1000", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "999" {
		t.Errorf("X-RateLimit-Remaining = %q, want 999", got)
	}
	if w.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset header missing")
	}
}

func TestExecuteUnknownPrefixDefaultsToSandbox(t *testing.T) {
	s := newTestServer(t)

	w := doExecute(t, s, "sk_not_one_of_ours", map[string]any{"protocol": "teleport"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-API-Tier"); got != "sandbox" {
		t.Errorf("X-API-Tier = %q, want sandbox", got)
	}
}

func TestExecuteMinuteLimit(t *testing.T) {
	s := newTestServer(t, config.TierLimits{
		Name:              "sandbox",
		RequestsPerMinute: 2,
		RequestsPerHour:   100,
		RequestsPerDay:    1000,
	})

	key := "qn_test_limited"
	for i := 0; i < 2; i++ {
		if w := doExecute(t, s, key, map[string]any{"protocol": "qkd"}); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, body %s", i+1, w.Code, w.Body.String())
		}
	}

	w := doExecute(t, s, key, map[string]any{"protocol": "qkd"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	body := decodeBody(t, w)
	if body["code"] != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %v, want RATE_LIMIT_EXCEEDED", body["code"])
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "minute rate limit exceeded. Limit: 2 requests") {
		t.Errorf("unexpected error message %q", msg)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}

	// Another key is unaffected.
	if w := doExecute(t, s, "qn_test_other", map[string]any{"protocol": "qkd"}); w.Code != http.StatusOK {
		t.Errorf("independent key: status = %d, want 200", w.Code)
	}
}

func TestExecuteEnterpriseHardware(t *testing.T) {
	s := newTestServer(t)

	w := doExecute(t, s, "qn_ent_corp", map[string]any{
		"protocol": "entangle",
		"backend":  "hardware",
		"qubits":   4,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["backend"] != "hardware" {
		t.Errorf("backend = %v, want hardware", body["backend"])
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "unlimited" {
		t.Errorf("X-RateLimit-Limit = %q, want unlimited", got)
	}
	if got := w.Header().Get("X-API-Tier"); got != "enterprise" {
		t.Errorf("X-API-Tier = %q, want enterprise", got)
	}
}

func TestExecuteHardwareDenied(t *testing.T) {
	s := newTestServer(t)

	for _, key := range []string{"qn_test_abc", "qn_live_def"} {
		w := doExecute(t, s, key, map[string]any{
			"protocol": "teleport",
			"backend":  "hardware",
		})

		if w.Code != http.StatusForbidden {
			t.Fatalf("key %s: status = %d, want 403", key, w.Code)
		}
		if body := decodeBody(t, w); body["code"] != "HARDWARE_ACCESS_DENIED" {
			t.Errorf("key %s: code = %v, want HARDWARE_ACCESS_DENIED", key, body["code"])
		}
	}
}

func TestExecuteInvalidParameters(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"unknown protocol", map[string]any{"protocol": "superdense"}},
		{"missing protocol", map[string]any{"qubits": 2}},
		{"bad backend", map[string]any{"protocol": "entangle", "backend": "mainframe"}},
		{"qubits too high", map[string]any{"protocol": "entangle", "qubits": 65}},
		{"qubits negative", map[string]any{"protocol": "entangle", "qubits": -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doExecute(t, s, "qn_live_abc", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
			}
			if body := decodeBody(t, w); body["code"] != "INVALID_PARAMETERS" {
				t.Errorf("code = %v, want INVALID_PARAMETERS", body["code"])
			}
		})
	}
}

func TestProtocolCatalogue(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/protocols", nil)
	req.Header.Set("X-API-Key", "qn_test_abc")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Protocols []struct {
			Name string `json:"name"`
		} `json:"protocols"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Protocols) != 3 {
		t.Fatalf("got %d protocols, want 3", len(body.Protocols))
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Generate a little traffic so the decision counter exists.
	doExecute(t, s, "qn_test_abc", map[string]any{"protocol": "entangle"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "qnet_gateway") {
		t.Error("metrics output missing gateway namespace")
	}
}
