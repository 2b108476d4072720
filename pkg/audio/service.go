package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"

	"github.com/google/uuid"
)

// UploadRequest carries one base64-encoded audio upload. SizeBytes is the
// size the client claims for the decoded payload.
type UploadRequest struct {
	FileName       string `json:"file_name"`
	MimeType       string `json:"mime_type"`
	SizeBytes      int64  `json:"size_bytes"`
	DataBase64     string `json:"data_base64"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
	IsReference    bool   `json:"is_reference"`
}

// Service validates uploads, writes the blob, and records metadata
type Service struct {
	store Store
	blobs BlobStore
}

// NewService creates an upload service
func NewService(store Store, blobs BlobStore) *Service {
	return &Service{store: store, blobs: blobs}
}

// Upload decodes, validates, and stores one audio file. The decoded payload
// is what gets validated against the size cap, and a declared size that
// disagrees with it is rejected, so a client cannot lie its way past the cap.
func (s *Service) Upload(ctx context.Context, userID int64, req UploadRequest) (*File, error) {
	data, err := base64.StdEncoding.DecodeString(req.DataBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if req.SizeBytes > 0 && req.SizeBytes != int64(len(data)) {
		return nil, fmt.Errorf("%w: declared size %d does not match payload size %d",
			ErrInvalidPayload, req.SizeBytes, len(data))
	}

	if err := ValidateUpload(req.FileName, req.MimeType, int64(len(data))); err != nil {
		return nil, err
	}

	// Blob keys are random so uploads never collide or leak file names
	key := uuid.New().String() + path.Ext(req.FileName)
	url, err := s.blobs.Put(ctx, key, req.MimeType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store audio blob: %w", err)
	}

	return s.store.Create(ctx, &File{
		UserID:         userID,
		ConversationID: req.ConversationID,
		FileName:       req.FileName,
		FileURL:        url,
		MimeType:       req.MimeType,
		SizeBytes:      int64(len(data)),
		IsReference:    req.IsReference,
	})
}

// Get returns one file record for its owner
func (s *Service) Get(ctx context.Context, id, userID int64) (*File, error) {
	return s.store.Get(ctx, id, userID)
}

// ListByUser returns the user's files, newest first
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*File, error) {
	return s.store.ListByUser(ctx, userID)
}
