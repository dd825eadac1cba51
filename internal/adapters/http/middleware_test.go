package httpadapter

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureDefaultLogger(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestAccessLogIncludesTenantWhenHeaderPresent(t *testing.T) {
	buf := captureDefaultLogger(t, slog.LevelInfo)
	handler := accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set(tenantIDHeader, "tenant-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	if !strings.Contains(line, `"tenant_id":"tenant-1"`) {
		t.Fatalf("access log missing tenant attribute: %s", line)
	}
	if !strings.Contains(line, `"path":"/api/documents"`) {
		t.Fatalf("access log missing path: %s", line)
	}
}

func TestAccessLogOmitsTenantWhenHeaderAbsent(t *testing.T) {
	buf := captureDefaultLogger(t, slog.LevelInfo)
	handler := accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if strings.Contains(buf.String(), "tenant_id") {
		t.Fatalf("access log must not carry an empty tenant attribute: %s", buf.String())
	}
}

func TestAccessLogDemotesHealthProbesToDebug(t *testing.T) {
	buf := captureDefaultLogger(t, slog.LevelInfo)
	handler := accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if buf.Len() != 0 {
		t.Fatalf("healthy probe must log at debug only, got %s", buf.String())
	}

	// failing probes still surface at error level
	failing := accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Fatalf("failing probe must log at error, got %s", buf.String())
	}
}
