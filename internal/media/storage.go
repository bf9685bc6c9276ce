// Package media stores uploaded attachments and avatars and serves them back
// under stable /media/{fileId} URLs.
package media

import (
	"context"
	"io"
	"strings"
	"time"
)

type File struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Storage keeps raw payloads. Download on an unknown id returns common.ErrNotFound.
type Storage interface {
	Upload(ctx context.Context, filename, contentType, uploaderID string, content io.Reader) (*File, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, *File, error)
	Delete(ctx context.Context, fileID string) error
}

// URL joins the public base path and a file id.
func URL(baseURL, fileID string) string {
	return strings.TrimRight(baseURL, "/") + "/" + fileID
}
