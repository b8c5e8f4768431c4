package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/opacity/internal/server/blobstore"
	"github.com/dmitrijs2005/opacity/internal/server/services"
)

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseUploadForm(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer form.content.Close()
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	res, err := h.svc.Ingester.Ingest(r.Context(), services.IngestInput{
		Content:    form.content,
		FileName:   form.fileName,
		Name:       form.name,
		ClientID:   ClientIDFromCtx(r.Context()),
		ClientName: form.clientName,
		OwnerName:  form.ownerName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{ArchiveID: res.ArchiveID, JWT: res.Credential})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Archives.Download(r.Context(), r.PathValue("id"), ClientIDFromCtx(r.Context()), r.Header.Get("If-None-Match"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if d.RedirectURL != "" {
		http.Redirect(w, r, d.RedirectURL, http.StatusFound)
		return
	}
	if d.Info.ETag != "" {
		w.Header().Set("ETag", d.Info.ETag)
	}
	if d.NotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	defer d.Body.Close()

	w.Header().Set("Content-Type", d.Info.ContentType)
	w.Header().Set("Content-Disposition", blobstore.ContentDisposition(d.FileName))
	if d.Info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.Info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, d.Body); err != nil {
		h.logger.Warn(r.Context(), "download interrupted",
			"request_id", RequestIDFromCtx(r.Context()), "archive_id", r.PathValue("id"), "error", err)
	}
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Queries.Metadata(r.Context(), r.PathValue("id"), ClientIDFromCtx(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	modified := a.UpdateTime.UTC().Truncate(time.Second)
	w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
	if ims, err := http.ParseTime(r.Header.Get("If-Modified-Since")); err == nil && !modified.After(ims) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, newArchiveView(a))
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.svc.Archives.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]previewView, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, previewView{Name: q.Name, Preview: q.Preview})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Archives.Rename(r.Context(), r.PathValue("id"), ClientIDFromCtx(r.Context()), field(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteArchive(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Archives.Delete(r.Context(), r.PathValue("id"), ClientIDFromCtx(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
