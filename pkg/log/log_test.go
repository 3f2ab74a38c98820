package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNew_AddsServiceFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", ServiceName: "chat-gateway", InstanceID: "i-1"}, &buf)
	l.Debug().Msg("hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "chat-gateway", lines[0][FieldService])
	assert.Equal(t, "i-1", lines[0][FieldInstanceID])
	assert.Equal(t, "hello", lines[0]["message"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn"}, &buf)
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["message"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestCtx_FallsBackToGlobal(t *testing.T) {
	assert.Equal(t, L(), Ctx(context.Background()))

	var buf bytes.Buffer
	ctx := WithConn(WithLogger(context.Background(), New(Config{}, &buf)), "conn-1")
	Ctx(ctx).Info().Msg("tagged")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "conn-1", lines[0][FieldConnID])
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{}, &buf)

	var seen bool
	h := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Ctx(r.Context()).Info().Msg("inside")
		seen = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, seen)
	reqID := rec.Header().Get("X-Request-ID")
	assert.NotEmpty(t, reqID)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, reqID, lines[0][FieldRequestID])
	assert.Equal(t, "10.0.0.1", lines[1][FieldClientIP])
	assert.Equal(t, float64(http.StatusTeapot), lines[1][FieldStatus])
}

func TestHTTPMiddleware_KeepsIncomingRequestID(t *testing.T) {
	h := HTTPMiddleware(New(Config{Level: "disabled"}, nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	r := gin.New()
	r.Use(GinMiddleware(New(Config{}, &buf)))
	r.GET("/api/v1/chatrooms/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/chatrooms/3", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "/api/v1/chatrooms/:id", lines[0][FieldPath])
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	assert.Equal(t, "192.168.1.5", clientIP(req))

	req.Header.Set("X-Real-IP", " 172.16.0.9 ")
	assert.Equal(t, "172.16.0.9", clientIP(req))
}
