package controllers

import (
	"io"
	"net/http"

	"convo_server/apperrors"
	"convo_server/services"
)

// 10 MB cap on attachment uploads
const maxAttachmentBytes = 10 << 20

// AttachmentController accepts multipart content uploads and returns the
// stored URL for inclusion in a message.
type AttachmentController struct {
	S3 *services.S3Service
}

func NewAttachmentController(s3 *services.S3Service) *AttachmentController {
	return &AttachmentController{S3: s3}
}

func (c *AttachmentController) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := CurrentUser(r.Context()); !ok {
		writeError(w, apperrors.Unauthenticated("not authenticated"))
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		writeError(w, apperrors.Validation("invalid multipart body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperrors.Validation("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes))
	if err != nil {
		writeError(w, apperrors.Validation("failed to read file"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment, err := c.S3.UploadAttachment(r.Context(), data, header.Filename, contentType)
	if err != nil {
		writeError(w, apperrors.Upstream("failed to store attachment", err))
		return
	}
	writeJSON(w, http.StatusOK, attachment)
}
