package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, "card already listed")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"card already listed"}`, rec.Body.String())
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Title string `json:"title"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","owner_id":"someone"}`))

	err := Decode(r, &dst)
	assert.ErrorIs(t, err, ErrInvalidJSON)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Dragon"}`))
	require.NoError(t, Decode(r, &dst))
	assert.Equal(t, "Dragon", dst.Title)
}
