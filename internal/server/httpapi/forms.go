package httpapi

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/opacity/internal/common"
)

// maxMemory is the part of a multipart body kept in memory; the rest is
// spooled to temporary files.
const maxMemory = 8 << 20

// uploadForm is the decoded PUT /archive body.
type uploadForm struct {
	content    multipart.File
	fileName   string
	name       *string
	clientName *string
	ownerName  *string
}

// parseForm accepts multipart and urlencoded bodies alike.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.Errorf(common.ErrorValidation, "Content too large.")
		}
		return common.Errorf(common.ErrorValidation, "Bad form.")
	}
	return nil
}

// field returns the value of an optional form field, nil when it is absent.
func field(r *http.Request, key string) *string {
	if r.MultipartForm != nil {
		if v, ok := r.MultipartForm.Value[key]; ok && len(v) > 0 {
			return &v[0]
		}
	}
	if v, ok := r.PostForm[key]; ok && len(v) > 0 {
		return &v[0]
	}
	return nil
}

func (h *Handler) parseUploadForm(w http.ResponseWriter, r *http.Request) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := parseForm(r); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("content")
	if err != nil {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
		return nil, common.Errorf(common.ErrorValidation, "Missing content.")
	}
	return &uploadForm{
		content:    file,
		fileName:   header.Filename,
		name:       field(r, "name"),
		clientName: field(r, "client-name"),
		ownerName:  field(r, "owner-name"),
	}, nil
}
