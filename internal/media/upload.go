package media

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"gochat/internal/common"
	"gochat/internal/config"
)

// Upload describes a stored file the way messages reference it.
type Upload struct {
	URL         string                `json:"url"`
	Name        string                `json:"name"`
	Kind        common.AttachmentKind `json:"type"`
	ContentType string                `json:"contentType"`
	Size        int64                 `json:"size"`
}

// Uploader accepts multipart uploads within the configured size and type limits.
type Uploader struct {
	storage  Storage
	maxBytes int64
	allowed  map[string]struct{}
	baseURL  string
}

func NewUploader(storage Storage, cfg config.UploadConfig, baseURL string) *Uploader {
	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(t)] = struct{}{}
	}
	return &Uploader{storage: storage, maxBytes: cfg.MaxBytes, allowed: allowed, baseURL: baseURL}
}

// Receive stores the multipart file in field on behalf of uploaderID.
func (u *Uploader) Receive(w http.ResponseWriter, r *http.Request, field, uploaderID string) (*Upload, error) {
	return u.receive(w, r, field, uploaderID, false)
}

// ReceiveImage is Receive restricted to image content types.
func (u *Uploader) ReceiveImage(w http.ResponseWriter, r *http.Request, field, uploaderID string) (*Upload, error) {
	return u.receive(w, r, field, uploaderID, true)
}

func (u *Uploader) receive(w http.ResponseWriter, r *http.Request, field, uploaderID string, imageOnly bool) (*Upload, error) {
	// room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes+64<<10)

	file, header, err := r.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, common.ValidationError("file exceeds %d bytes", u.maxBytes)
		}
		return nil, common.ValidationError("no file uploaded")
	}
	defer file.Close()

	if header.Size > u.maxBytes {
		return nil, common.ValidationError("file exceeds %d bytes", u.maxBytes)
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)
	if _, ok := u.allowed[contentType]; !ok {
		return nil, common.ValidationError("file type %s is not allowed", contentType)
	}
	kind := common.DetectAttachmentKind(contentType)
	if imageOnly && kind != common.AttachmentKindImage {
		return nil, common.ValidationError("file must be an image")
	}

	name := filepath.Base(header.Filename)
	stored, err := u.storage.Upload(r.Context(), name, contentType, uploaderID, file)
	if err != nil {
		return nil, err
	}

	return &Upload{
		URL:         URL(u.baseURL, stored.ID),
		Name:        name,
		Kind:        kind,
		ContentType: contentType,
		Size:        stored.Size,
	}, nil
}

// detectContentType prefers the part header and falls back to the extension.
func detectContentType(header, filename string) string {
	if header != "" {
		if mediaType, _, err := mime.ParseMediaType(header); err == nil && mediaType != "application/octet-stream" {
			return strings.ToLower(mediaType)
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}
