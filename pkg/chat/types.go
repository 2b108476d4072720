package chat

import (
	"context"
	"errors"
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrNotFound is returned when a conversation does not exist or belongs to a
// different user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("conversation not found")

// Conversation is a chat thread owned by one user
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one entry in a conversation
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChatMessage is the wire shape sent to the model
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store defines the interface for conversation persistence
type Store interface {
	CreateConversation(ctx context.Context, userID int64, title string) (*Conversation, error)
	// ListConversations returns the user's conversations, most recently
	// updated first.
	ListConversations(ctx context.Context, userID int64) ([]*Conversation, error)
	// GetConversation returns ErrNotFound when the conversation is missing
	// or owned by another user.
	GetConversation(ctx context.Context, id, userID int64) (*Conversation, error)
	// DeleteConversation removes a conversation and its messages in one
	// transaction. Deleting someone else's conversation is ErrNotFound.
	DeleteConversation(ctx context.Context, id, userID int64) error
	// TouchConversation bumps updated_at so the thread sorts to the top
	TouchConversation(ctx context.Context, id int64) error

	CreateMessage(ctx context.Context, conversationID int64, role Role, content string) (*Message, error)
	// ListMessages returns messages oldest first
	ListMessages(ctx context.Context, conversationID int64) ([]*Message, error)
}

// Completer defines the interface to the language model
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
