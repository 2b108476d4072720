// Package audio handles uploaded audio files: validation, blob storage, and
// the metadata records that tie a file to its owner and conversation.
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxUploadBytes is the largest accepted upload (50 MB)
const MaxUploadBytes = 50 << 20

var (
	// ErrFileTooLarge is returned for uploads over MaxUploadBytes
	ErrFileTooLarge = errors.New("audio file exceeds the 50MB limit")
	// ErrUnsupportedType is returned for MIME types outside the allow list
	ErrUnsupportedType = errors.New("unsupported audio format")
	// ErrInvalidPayload is returned when the upload body cannot be decoded
	ErrInvalidPayload = errors.New("invalid audio payload")
	// ErrNotFound is returned when an audio file record does not exist
	ErrNotFound = errors.New("audio file not found")
)

// allowedMIMETypes is the upload allow list. Browsers disagree on WAV and
// M4A labels, so the common aliases are all accepted.
var allowedMIMETypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
	"audio/mp3":   true,
	"audio/x-m4a": true,
	"audio/mp4":   true,
}

// ValidateUpload checks an upload's declared type and size before any bytes
// are stored
func ValidateUpload(fileName, mimeType string, sizeBytes int64) error {
	if sizeBytes > MaxUploadBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, fileName, sizeBytes)
	}
	if !allowedMIMETypes[mimeType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	return nil
}

// File is the stored metadata for one uploaded audio file
type File struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ConversationID *int64    `json:"conversation_id,omitempty"`
	FileName       string    `json:"file_name"`
	FileURL        string    `json:"file_url"`
	MimeType       string    `json:"mime_type"`
	SizeBytes      int64     `json:"size_bytes"`
	IsReference    bool      `json:"is_reference"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store defines the interface for audio file metadata persistence
type Store interface {
	Create(ctx context.Context, file *File) (*File, error)
	// Get returns ErrNotFound when the record is missing or owned by
	// another user
	Get(ctx context.Context, id, userID int64) (*File, error)
	// ListByUser returns the user's files, newest first
	ListByUser(ctx context.Context, userID int64) ([]*File, error)
}

// BlobStore defines the interface for storing raw audio bytes
type BlobStore interface {
	// Put stores the blob under key and returns a URL the client can fetch
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}
