package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerconnex-backend/internal/upload"
)

func TestFileHandler_ServesSignedMemoryURL(t *testing.T) {
	store := upload.NewMemoryStore("http://localhost:8080/files", "attachments")
	require.NoError(t, store.Put(context.Background(), "submissions/1-abc.png", "image/png", strings.NewReader("png")))
	signed, err := store.SignedURL(context.Background(), "submissions/1-abc.png", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/files", (&FileHandler{Objects: store}).Routes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png", w.Body.String())

	for _, path := range []string{
		"/files/attachments/submissions/missing.png",
		"/files/other/submissions/1-abc.png",
		"/files/attachments/submissions/1-abc.png?expires=1",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
