package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
		wantMsg   string
	}{
		{"Success", http.StatusOK, "INFO", "request completed"},
		{"Client Error", http.StatusConflict, "WARN", "request rejected"},
		{"Server Error", http.StatusInternalServerError, "ERROR", "server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			handler := NewStructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("ok"))
			}))

			req := httptest.NewRequest(http.MethodPost, "/books/b1/borrow", nil)
			req.Header.Set("X-User-ID", "u1")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			var entry struct {
				Level    string `json:"level"`
				Msg      string `json:"msg"`
				Request  map[string]any
				Response map[string]any
			}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, tt.wantMsg, entry.Msg)
			assert.Equal(t, "u1", entry.Request["user_id"])
			assert.Equal(t, float64(tt.status), entry.Response["status"])
			assert.Equal(t, float64(2), entry.Response["bytes"])
		})
	}
}
