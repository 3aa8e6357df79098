package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/realtime"
	"github.com/shiptrack/tracking-system/pkg/logger"
)

func TestWebSocketHandler_RejectsPlainHTTPRequest(t *testing.T) {
	logger.Reset()
	logger.Init(logger.Options{Output: io.Discard})
	t.Cleanup(logger.Reset)

	hub := realtime.NewHub(realtime.NewRegistry(), zerolog.Nop())
	h := NewWebSocketHandler(hub, &recordingQueue{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Serve(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a request without upgrade headers", rec.Code)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("client registered despite failed upgrade")
	}
}
