package httpapi

import "net/http"

func (h *Handler) whoami(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Identity.Whoami(r.Context(), ClientIDFromCtx(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, whoamiView{ClientName: c.Name, Name: c.OwnerName})
}

func (h *Handler) updateWhoami(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	err := h.svc.Identity.UpdateWhoami(r.Context(), ClientIDFromCtx(r.Context()),
		field(r, "client-name"), field(r, "owner-name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
