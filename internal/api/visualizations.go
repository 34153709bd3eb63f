package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/querychat/querychat/internal/auth"
	"github.com/querychat/querychat/internal/storage"
)

const visualizationsRoute = "/v1/visualizations/"

func handleGetVisualization(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	key, ok := visualizationKey(deps, w, r)
	if !ok {
		return
	}
	info, err := deps.Store.Stat(r.Context(), key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	body, err := deps.Store.Get(r.Context(), key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	defer body.Close()

	header := w.Header()
	header.Set("Content-Type", storage.ContentTypePNG)
	header.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if info.ETag != "" {
		header.Set("ETag", strconv.Quote(info.ETag))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil && deps.Logger != nil {
		deps.Logger.WarnContext(r.Context(), "visualization stream interrupted",
			slog.String("key", key), slog.Any("error", err))
	}
}

func handleDeleteVisualization(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	key, ok := visualizationKey(deps, w, r)
	if !ok {
		return
	}
	if err := deps.Store.Delete(r.Context(), key); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// visualizationKey resolves the object key of the request. Authenticated
// callers only see keys under their own caller prefix; other keys answer
// 404 like missing ones.
func visualizationKey(deps Dependencies, w http.ResponseWriter, r *http.Request) (string, bool) {
	if deps.Store == nil {
		writeError(w, http.StatusNotFound, "visualization storage is disabled")
		return "", false
	}
	key := r.PathValue("key")
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		owner, _, _ := strings.Cut(key, "/")
		if owner != storage.SafeName(identity.CallerID) {
			writeError(w, http.StatusNotFound, storage.ErrObjectNotFound.Error())
			return "", false
		}
	}
	return key, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrObjectNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
