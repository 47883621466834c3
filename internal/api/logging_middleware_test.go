package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"carteira/pkg/carteira"
)

func setupRouterWithLogger(t *testing.T, logger *slog.Logger) (http.Handler, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	core, err := carteira.OpenWithOptions(carteira.Options{DBPath: dbPath, Logger: logger})
	if err != nil {
		t.Fatalf("open core: %v", err)
	}

	router := NewRouter(core)
	cleanup := func() {
		_ = core.Close()
	}
	return router, cleanup
}

func TestNewRouterLogsRequestCompleted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	router, cleanup := setupRouterWithLogger(t, logger)
	defer cleanup()

	rr := doRequest(router, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, "http request completed") {
		t.Fatalf("expected request completion log, got %q", logs)
	}
	if !strings.Contains(logs, "method=GET") {
		t.Fatalf("expected method field, got %q", logs)
	}
}

func TestNewRouterLogsWarnOnClientError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	router, cleanup := setupRouterWithLogger(t, logger)
	defer cleanup()

	rr := doRequest(router, http.MethodGet, "/api/positions/abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, "level=WARN") {
		t.Fatalf("expected WARN level log for 4xx, got %q", logs)
	}
}
