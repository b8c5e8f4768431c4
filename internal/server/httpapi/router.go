package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/logging"
)

type Handler struct {
	svc            Services
	logger         logging.Logger
	maxUploadBytes int64
}

// NewRouter wires every route. Routes marked optional accept a missing
// credential; routes marked required answer 401 without one.
func NewRouter(svc Services, maxUploadBytes int64, logger logging.Logger) http.Handler {
	h := &Handler{svc: svc, logger: logger.With("module", "http"), maxUploadBytes: maxUploadBytes}
	optional := func(f http.HandlerFunc) http.Handler { return h.authenticate(f) }
	required := func(f http.HandlerFunc) http.Handler { return h.authenticate(requireClient(f)) }

	mux := http.NewServeMux()

	mux.Handle("PUT /archive", optional(h.upload))
	mux.Handle("GET /archive/{id}", optional(h.download))
	mux.Handle("GET /archive/{id}/metadata", optional(h.metadata))
	mux.HandleFunc("GET /archive/{id}/preview", h.preview)
	mux.Handle("PATCH /archive/{id}", required(h.rename))
	mux.Handle("DELETE /archive/{id}", required(h.deleteArchive))

	mux.HandleFunc("GET /archive/{id}/like", h.likeSummary)
	mux.Handle("PUT /archive/{id}/like", required(h.like))
	mux.Handle("DELETE /archive/{id}/like", required(h.unlike))

	mux.Handle("GET /archives", optional(h.listArchives))
	mux.HandleFunc("GET /dimensions", h.dimensions)
	mux.Handle("GET /dimension/{id}/archives", optional(h.listDimensionArchives))

	mux.Handle("GET /whoami", required(h.whoami))
	mux.Handle("PATCH /whoami", required(h.updateWhoami))

	mux.HandleFunc("GET /bonjour", bonjour)

	return withRequestID(h.logging(h.recoverer(mux)))
}

func bonjour(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "opacity version:%d build_date:%s", common.Version, common.BuildDate)
}
