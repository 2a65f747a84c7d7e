// Package models defines server-side data models persisted in the database.
package models

import (
	"strings"
	"time"
)

// File type categories derived from the uploaded content type.
const (
	FileTypeImage    = "image"
	FileTypeDocument = "document"
	FileTypeVideo    = "video"
	FileTypeAudio    = "audio"
	FileTypeArchive  = "archive"
	FileTypeOther    = "other"
)

// File describes metadata for a blob stored in object storage.
// The record is immutable once created; it is removed together with the
// blob by an explicit delete.
type File struct {
	ID string
	// Filename is the server-generated name (random id + original extension).
	Filename string
	// OriginalName is the user-supplied name. Untrusted; used only for
	// display and download headers.
	OriginalName string
	// Size of the blob in bytes.
	Size int64
	// BlobKey is the object-storage key. Never serialized to clients.
	BlobKey     string
	ContentType string
	FileType    string
	// Folder is a path-like grouping label, "/" by default.
	Folder     string
	OwnerID    string
	UploadTime time.Time
	CreatedAt  time.Time
}

// DetectFileType maps a MIME content type onto one of the file type
// categories above.
func DetectFileType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch {
	case strings.HasPrefix(ct, "image/"):
		return FileTypeImage
	case strings.HasPrefix(ct, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(ct, "audio/"):
		return FileTypeAudio
	case strings.HasPrefix(ct, "text/"):
		return FileTypeDocument
	}

	switch ct {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/rtf":
		return FileTypeDocument
	case "application/zip",
		"application/x-zip-compressed",
		"application/x-rar-compressed",
		"application/vnd.rar",
		"application/x-7z-compressed",
		"application/x-tar",
		"application/gzip":
		return FileTypeArchive
	}

	return FileTypeOther
}
