package audio

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an audio metadata store backed by the given database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a metadata record for an uploaded file
func (s *PostgresStore) Create(ctx context.Context, file *File) (*File, error) {
	query := `
		INSERT INTO audio_files (user_id, conversation_id, file_name, file_url, mime_type, size_bytes, is_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		file.UserID, file.ConversationID, file.FileName, file.FileURL,
		file.MimeType, file.SizeBytes, file.IsReference,
	).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file record: %w", err)
	}
	return file, nil
}

// Get returns a file record only if the given user owns it
func (s *PostgresStore) Get(ctx context.Context, id, userID int64) (*File, error) {
	query := `
		SELECT id, user_id, conversation_id, file_name, file_url, mime_type, size_bytes, is_reference, created_at
		FROM audio_files
		WHERE id = $1 AND user_id = $2
	`

	file := &File{}
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&file.ID, &file.UserID, &file.ConversationID, &file.FileName, &file.FileURL,
		&file.MimeType, &file.SizeBytes, &file.IsReference, &file.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audio file: %w", err)
	}
	return file, nil
}

// ListByUser returns the user's files, newest first
func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]*File, error) {
	query := `
		SELECT id, user_id, conversation_id, file_name, file_url, mime_type, size_bytes, is_reference, created_at
		FROM audio_files
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio files: %w", err)
	}
	defer rows.Close()

	files := make([]*File, 0)
	for rows.Next() {
		file := &File{}
		if err := rows.Scan(
			&file.ID, &file.UserID, &file.ConversationID, &file.FileName, &file.FileURL,
			&file.MimeType, &file.SizeBytes, &file.IsReference, &file.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audio file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audio files: %w", err)
	}
	return files, nil
}
