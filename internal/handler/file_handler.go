package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"duochat/internal/app/relay"
	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
	"duochat/internal/pkg/req"
	"duochat/internal/pkg/resp"
)

const (
	// MaxAttachmentBytes caps the size of a single uploaded attachment.
	MaxAttachmentBytes int64 = 10 << 20 // 10 MB

	// PresignDownloadTTL is how long a generated download URL stays valid.
	PresignDownloadTTL = 5 * time.Minute

	// attachmentKeyPrefix namespaces attachment objects in the bucket.
	attachmentKeyPrefix = "attachments/"
)

// acceptedMIMETypes maps sniffed content types to the media kind a message
// attachment may carry.
var acceptedMIMETypes = map[string]relay.MediaKind{
	"image/jpeg":      relay.MediaKindImage,
	"image/png":       relay.MediaKindImage,
	"image/gif":       relay.MediaKindImage,
	"image/webp":      relay.MediaKindImage,
	"application/pdf": relay.MediaKindPDF,
}

// HandleFileUpload accepts a multipart upload, stores it in the bucket, and
// returns the attachment descriptor the client embeds in its next message.
// The content type is sniffed from the file bytes, not trusted from the form.
func HandleFileUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		if header.Size > MaxAttachmentBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileSizeTooLarge))
			return
		}

		sniffBuf := make([]byte, 512)
		n, _ := file.Read(sniffBuf)
		mimeType := http.DetectContentType(sniffBuf[:n])

		mediaKind, ok := acceptedMIMETypes[mimeType]
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileTypeInvalid))
			return
		}

		if _, err := file.Seek(0, 0); err != nil {
			logx.Error(err, "Failed to rewind uploaded file")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		key := fmt.Sprintf("%s%s%s", attachmentKeyPrefix, uuid.New().String(), ext)

		if err := deps.Storage.Upload(r.Context(), key, mimeType, file); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		logx.Info("Attachment uploaded.",
			"identity", payload.Identity,
			"key", key,
			"size", header.Size,
			"mime_type", mimeType,
		)

		attachment := relay.Attachment{
			Name:      header.Filename,
			URL:       "/api/file/download?key=" + url.QueryEscape(key),
			MediaKind: mediaKind,
		}

		resp.RespondSuccess(w, r, map[string]any{
			"attachment": attachment,
		})
	}
}

// HandleFileDownload redirects to a short-lived presigned URL for the
// requested attachment key.
func HandleFileDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		key := r.URL.Query().Get("key")
		if !strings.HasPrefix(key, attachmentKeyPrefix) || strings.Contains(key, "..") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		presignedURL, err := deps.Storage.PresignDownload(r.Context(), key, PresignDownloadTTL)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, presignedURL, http.StatusFound)
	}
}
