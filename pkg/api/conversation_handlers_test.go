package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixmentor/mixmentor/pkg/chat"
)

func TestCreateConversation(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader(`{"title":"Mixing vocals"}`))
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var conv chat.Conversation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&conv))
	assert.Equal(t, "Mixing vocals", conv.Title)
	assert.Equal(t, int64(7), conv.UserID)
}

func TestCreateConversationDefaultsTitle(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader(`{"title":"   "}`))
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var conv chat.Conversation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&conv))
	assert.Equal(t, "New conversation", conv.Title)
}

func TestListConversationsDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	f.chatStore.listErr = assert.AnError

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetConversationWithMessages(t *testing.T) {
	f := newFixture(t)
	f.chatStore.addConversation(3, 7, "Sidechain setup")
	f.chatStore.CreateMessage(context.Background(), 3, chat.RoleUser, "How do I sidechain in Ableton?")

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/3", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var detail conversationDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&detail))
	assert.Equal(t, int64(3), detail.Conversation.ID)
	require.Len(t, detail.Messages, 1)
	assert.Equal(t, chat.RoleUser, detail.Messages[0].Role)
}

func TestGetConversationOwnedByAnotherUser(t *testing.T) {
	f := newFixture(t)
	f.chatStore.addConversation(3, 99, "Someone else's thread")

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/3", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t)
	f.chatStore.addConversation(3, 7, "Old thread")

	req := httptest.NewRequest(http.MethodDelete, "/api/conversations/3", nil)
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.chatStore.conversations)
}

func TestSendMessageReturnsReply(t *testing.T) {
	f := newFixture(t)
	f.chatStore.addConversation(3, 7, "EQ questions")

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/3/messages",
		strings.NewReader(`{"content":"My mix sounds muddy"}`))
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var reply chat.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.Equal(t, chat.RoleAssistant, reply.Role)
	assert.Equal(t, "Try a high-pass filter around 100Hz.", reply.Content)

	// User message and reply are both persisted
	assert.Len(t, f.chatStore.messages[3], 2)
}

func TestSendMessageEmptyContent(t *testing.T) {
	f := newFixture(t)
	f.chatStore.addConversation(3, 7, "EQ questions")

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/3/messages",
		strings.NewReader(`{"content":"   "}`))
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageUnknownConversation(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/99/messages",
		strings.NewReader(`{"content":"hello"}`))
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageModelFailure(t *testing.T) {
	f := newFixture(t)
	f.chatStore.addConversation(3, 7, "EQ questions")
	f.completer.err = assert.AnError

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/3/messages",
		strings.NewReader(`{"content":"hello"}`))
	req.AddCookie(f.login(t, 7))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
