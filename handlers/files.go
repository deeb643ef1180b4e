package handlers

import (
	"errors"
	"net/http"

	"github.com/spgsite/cms-api/storage"

	"github.com/gorilla/mux"
)

// FilesHandler serves the objects of the bucket at their public URLs
type FilesHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h FilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if vars["bucket"] != h.Bucket.Name() {
		h.RespondError(w, http.StatusNotFound, "Bucket not found", nil)
		return
	}

	f, info, err := h.Bucket.Open(vars["path"])
	if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		h.RespondError(w, http.StatusNotFound, "Object not found", nil)
		return
	} else if err != nil {
		h.RespondError(w, http.StatusInternalServerError, "Failed to open object", err)
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "public, max-age=3600")
	if len(info.ContentType) > 0 {
		w.Header().Set("Content-Type", info.ContentType)
	}

	http.ServeContent(w, r, info.Path, info.ModTime, f)
}
