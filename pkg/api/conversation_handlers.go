package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mixmentor/mixmentor/pkg/chat"
	"github.com/mixmentor/mixmentor/pkg/httputil"
	"github.com/mixmentor/mixmentor/pkg/middleware"
	"github.com/mixmentor/mixmentor/pkg/pricing"
)

// maxMessageLength caps a single chat message
const maxMessageLength = 32_000

type createConversationRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type conversationDetail struct {
	Conversation *chat.Conversation `json:"conversation"`
	Messages     []*chat.Message    `json:"messages"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req createConversationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New conversation"
	}

	conv, err := s.deps.Chat.CreateConversation(r.Context(), user.ID, title)
	if err != nil {
		s.deps.Logger.WithError(err).Error("failed to create conversation")
		httputil.WriteInternalError(w, errors.New("failed to create conversation"))
		return
	}
	httputil.WriteCreated(w, conv)
}

// handleListConversations degrades to an empty list when the store is
// unreadable; the client renders an empty sidebar instead of an error page.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	convs, err := s.deps.Chat.ListConversations(r.Context(), user.ID)
	if err != nil {
		s.deps.Logger.WithError(err).Error("failed to list conversations")
		convs = []*chat.Conversation{}
	}
	if convs == nil {
		convs = []*chat.Conversation{}
	}
	httputil.WriteSuccess(w, convs)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	conv, messages, err := s.deps.Chat.GetConversation(r.Context(), user.ID, id)
	if err != nil {
		s.writeChatError(w, err, "failed to load conversation")
		return
	}
	if messages == nil {
		messages = []*chat.Message{}
	}
	httputil.WriteSuccess(w, conversationDetail{Conversation: conv, Messages: messages})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Chat.DeleteConversation(r.Context(), user.ID, id); err != nil {
		s.writeChatError(w, err, "failed to delete conversation")
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req sendMessageRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if !httputil.RequireNonEmpty(w, content, "content") {
		return
	}
	if len(content) > maxMessageLength {
		httputil.WriteBadRequest(w, "message is too long")
		return
	}

	reply, err := s.deps.Chat.SendMessage(r.Context(), user.ID, id, content)
	if err != nil {
		s.writeChatError(w, err, "failed to send message")
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.MessagesTotal.WithLabelValues(string(chat.RoleAssistant)).Inc()
	}
	httputil.WriteCreated(w, reply)
}

// writeChatError maps chat service errors to status codes
func (s *Server) writeChatError(w http.ResponseWriter, err error, logMessage string) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		httputil.WriteNotFoundError(w, "conversation not found")
	case pricing.IsLimitReached(err):
		var limitErr *pricing.LimitReachedError
		errors.As(err, &limitErr)
		if s.deps.Metrics != nil {
			s.deps.Metrics.LimitRejectedTotal.WithLabelValues(string(limitErr.Kind), string(limitErr.Tier)).Inc()
		}
		httputil.WriteLimitReached(w, limitErr.Error(), s.deps.Catalog.UpgradeMessage(limitErr.Tier, limitErr.Kind))
	default:
		s.deps.Logger.WithError(err).Error(logMessage)
		httputil.WriteInternalError(w, errors.New(logMessage))
	}
}
