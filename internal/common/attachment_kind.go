package common

import "strings"

// AttachmentKind is the rendering class of an attachment.
type AttachmentKind string

const (
	AttachmentKindImage AttachmentKind = "image"
	AttachmentKindFile  AttachmentKind = "file"
)

// String returns the string representation
func (k AttachmentKind) String() string {
	return string(k)
}

// IsValid checks if the attachment kind is valid
func (k AttachmentKind) IsValid() bool {
	return k == AttachmentKindImage || k == AttachmentKindFile
}

// DetectAttachmentKind maps a MIME type to the kind clients render it as.
func DetectAttachmentKind(mimeType string) AttachmentKind {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return AttachmentKindImage
	}
	return AttachmentKindFile
}
