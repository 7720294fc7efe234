package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, map[string]bool{"success": true})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestWriteJSON_Unencodable(t *testing.T) {
	w := httptest.NewRecorder()
	assert.NotPanics(t, func() { WriteJSON(w, http.StatusOK, make(chan int)) })
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "model not found")

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "model not found", body["error"])
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr error
		bad     bool
	}{
		{name: "valid", body: `{"a":1}`, limit: 64},
		{name: "default limit", body: `{"a":1}`},
		{name: "too large", body: `{"a":"` + strings.Repeat("x", 64) + `"}`, limit: 16, wantErr: ErrBodyTooLarge},
		{name: "malformed", body: `{"a":`, limit: 64, bad: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/post-model", strings.NewReader(tt.body))
			var v map[string]any
			err := DecodeJSON(req, tt.limit, &v)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.bad:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.EqualValues(t, 1, v["a"])
			}
		})
	}
}

func TestReadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/post-model", strings.NewReader("0123456789"))
	body, err := ReadBody(req, 10)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(body))

	req = httptest.NewRequest(http.MethodPost, "/post-model", strings.NewReader("0123456789A"))
	_, err = ReadBody(req, 10)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}
