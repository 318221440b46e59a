package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// ObjectReader is the read side of the in-memory object store.
type ObjectReader interface {
	Bucket() string
	Object(key string) (contentType string, data []byte, ok bool)
}

// FileHandler serves uploads kept in process memory at the URLs the memory
// store hands out: /files/{bucket}/{key}?expires={unix}.
type FileHandler struct {
	Objects ObjectReader
	Now     func() time.Time
}

func (h *FileHandler) Routes(r chi.Router) {
	r.Get("/{bucket}/*", h.ServeObject)
}

func (h *FileHandler) ServeObject(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "bucket") != h.Objects.Bucket() {
		http.NotFound(w, r)
		return
	}
	if raw := r.URL.Query().Get("expires"); raw != "" {
		exp, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || h.now().Unix() > exp {
			http.NotFound(w, r)
			return
		}
	}
	ct, data, ok := h.Objects.Object(chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *FileHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
