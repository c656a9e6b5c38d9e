package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantCode   int
		wantStatus string
		wantMsg    string
		wantData   bool
	}{
		{
			name:       "Success",
			write:      func(w http.ResponseWriter) { Success(w, map[string]string{"k": "v"}, "done") },
			wantCode:   http.StatusOK,
			wantStatus: "OK",
			wantMsg:    "done",
			wantData:   true,
		},
		{
			name:       "Error",
			write:      func(w http.ResponseWriter) { Error(w, http.StatusNotFound, "Not found") },
			wantCode:   http.StatusNotFound,
			wantStatus: "Not Found",
			wantMsg:    "Not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, float64(tt.wantCode), body["status_code"])
			assert.Equal(t, tt.wantMsg, body["message"])
			_, hasData := body["data"]
			assert.Equal(t, tt.wantData, hasData)
		})
	}
}

func TestRaw(t *testing.T) {
	rec := httptest.NewRecorder()
	Raw(rec, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
