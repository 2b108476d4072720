package chat

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a conversation store backed by the given database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateConversation creates a new conversation for a user
func (s *PostgresStore) CreateConversation(ctx context.Context, userID int64, title string) (*Conversation, error) {
	query := `
		INSERT INTO conversations (user_id, title, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	conv := &Conversation{UserID: userID, Title: title}
	err := s.db.QueryRowContext(ctx, query, userID, title).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recently updated first
func (s *PostgresStore) ListConversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]*Conversation, 0)
	for rows.Next() {
		conv := &Conversation{}
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}
	return conversations, nil
}

// GetConversation returns a conversation only if the given user owns it
func (s *PostgresStore) GetConversation(ctx context.Context, id, userID int64) (*Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`

	conv := &Conversation{}
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// DeleteConversation removes a conversation and its messages in one transaction
func (s *PostgresStore) DeleteConversation(ctx context.Context, id, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Messages go first so the conversation row never dangles
	messagesQuery := `
		DELETE FROM messages
		WHERE conversation_id IN (SELECT id FROM conversations WHERE id = $1 AND user_id = $2)
	`
	if _, err := tx.ExecContext(ctx, messagesQuery, id, userID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TouchConversation bumps updated_at to the current time
func (s *PostgresStore) TouchConversation(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// CreateMessage appends a message to a conversation
func (s *PostgresStore) CreateMessage(ctx context.Context, conversationID int64, role Role, content string) (*Message, error) {
	query := `
		INSERT INTO messages (conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	msg := &Message{ConversationID: conversationID, Role: role, Content: content}
	err := s.db.QueryRowContext(ctx, query, conversationID, string(role), content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return msg, nil
}

// ListMessages returns a conversation's messages oldest first. Ties on
// created_at break on id so insertion order always holds.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*Message, 0)
	for rows.Next() {
		msg := &Message{}
		var role string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}
