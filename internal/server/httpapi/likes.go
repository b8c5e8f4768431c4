package httpapi

import "net/http"

func (h *Handler) likeSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Likes.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	people := s.People
	if people == nil {
		people = []string{}
	}
	writeJSON(w, http.StatusOK, likesView{Count: s.Count, People: people})
}

func (h *Handler) like(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Likes.Like(r.Context(), r.PathValue("id"), ClientIDFromCtx(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) unlike(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Likes.Unlike(r.Context(), r.PathValue("id"), ClientIDFromCtx(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
