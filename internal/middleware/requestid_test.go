package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func requestIDProbe(t *testing.T, inbound string) (ctxID, headerID string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/agent/chat", nil)
	if inbound != "" {
		req.Header.Set("X-Request-ID", inbound)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get("X-Request-ID")
}

func TestRequestIDHonorsInboundHeader(t *testing.T) {
	ctxID, headerID := requestIDProbe(t, "client-abc-123")
	if ctxID != "client-abc-123" || headerID != "client-abc-123" {
		t.Fatalf("inbound id not honored: ctx=%q header=%q", ctxID, headerID)
	}
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	ctxID, headerID := requestIDProbe(t, "")
	if ctxID == "" || ctxID != headerID {
		t.Fatalf("generated id mismatch: ctx=%q header=%q", ctxID, headerID)
	}
}

func TestRequestIDRegeneratesOversizedHeader(t *testing.T) {
	oversized := strings.Repeat("x", maxRequestIDLen+1)
	ctxID, _ := requestIDProbe(t, oversized)
	if ctxID == oversized || ctxID == "" {
		t.Fatalf("oversized inbound id should be replaced, got %q", ctxID)
	}
}
