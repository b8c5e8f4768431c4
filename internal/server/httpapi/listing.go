package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/server/services"
)

func listInput(r *http.Request) services.ListInput {
	q := r.URL.Query()
	return services.ListInput{
		By:          q.Get("by"),
		Order:       q.Get("order"),
		Predecessor: q.Get("predecessor"),
	}
}

func (h *Handler) listArchives(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, listInput(r))
}

func (h *Handler) listDimensionArchives(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, r, common.Errorf(common.ErrorValidation, "Bad dimension id."))
		return
	}
	in := listInput(r)
	in.DimensionID = &id
	h.list(w, r, in)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, in services.ListInput) {
	page, err := h.svc.Queries.List(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageView(page))
}

func (h *Handler) dimensions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Queries.Dimensions(r.Context(), r.URL.Query().Get("first"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]dimensionView, 0, len(rows))
	for _, d := range rows {
		out = append(out, dimensionView{ID: d.ID, Name: d.Name, Emoji: d.Emoji, QuizCount: d.QuizCount})
	}
	writeJSON(w, http.StatusOK, out)
}
