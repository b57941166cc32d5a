package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/osenchi/internal/records"
	"github.com/JaimeStill/osenchi/pkg/formatting"
	"github.com/JaimeStill/osenchi/pkg/handlers"
	"github.com/JaimeStill/osenchi/pkg/routes"
	"github.com/JaimeStill/osenchi/pkg/storage"
)

// objectsHandler reads and writes pipeline objects directly. It lets operators
// stage an input file and inspect the classified output.
type objectsHandler struct {
	store   storage.System
	logger  *slog.Logger
	maxSize int64
}

func newObjectsHandler(store storage.System, logger *slog.Logger, maxSize int64) *objectsHandler {
	return &objectsHandler{
		store:   store,
		logger:  logger.With("handler", "objects"),
		maxSize: maxSize,
	}
}

func (h *objectsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/objects/{bucket}",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.get},
			{Method: "PUT", Pattern: "/{key...}", Handler: h.put},
		},
	}
}

func (h *objectsHandler) get(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Get(r.Context(), r.PathValue("bucket"), r.PathValue("key"))
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", records.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *objectsHandler) put(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxSize))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	bucket, key := r.PathValue("bucket"), r.PathValue("key")
	if err := h.store.Put(r.Context(), bucket, key, data, records.ContentType); err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	h.logger.Info("object stored", "bucket", bucket, "key", key, "size", formatting.FormatBytes(int64(len(data)), 1))
	handlers.RespondJSON(w, http.StatusCreated, map[string]any{
		"bucket": bucket,
		"key":    key,
		"size":   len(data),
	})
}
