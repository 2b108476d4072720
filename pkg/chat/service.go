package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mixmentor/mixmentor/pkg/observability"
	"github.com/mixmentor/mixmentor/pkg/pricing"
	"github.com/mixmentor/mixmentor/pkg/usage"
)

// systemPrompt frames every model call
const systemPrompt = `You are an expert music production assistant specializing in Cubase and Ableton Live. You help producers with:

- DAW features, workflows, and shortcuts for Cubase and Ableton
- Mixing and mastering techniques (EQ, compression, reverb, delay, etc.)
- Music theory (chord progressions, scales, harmony, melody)
- Technical troubleshooting (audio routing, latency, CPU optimization)
- Plugin recommendations and settings
- Production techniques and creative ideas

Provide clear, practical advice. When discussing technical settings, be specific with values and explain why. Keep responses concise but informative.`

// fallbackReply is stored when the model returns nothing
const fallbackReply = "I'm sorry, I couldn't generate a response."

// analysisHistoryWindow caps how many prior messages an audio analysis call
// carries; analysis prompts are large and old chat context adds little.
const analysisHistoryWindow = 5

// Service orchestrates the message round-trip: persistence, prompt assembly,
// the model call, and usage accounting for gated features.
type Service struct {
	store   Store
	llm     Completer
	ledger  usage.Ledger
	catalog *pricing.Catalog
	logger  *observability.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService creates a chat orchestrator
func NewService(store Store, llm Completer, ledger usage.Ledger, catalog *pricing.Catalog, logger *observability.Logger) *Service {
	return &Service{
		store:   store,
		llm:     llm,
		ledger:  ledger,
		catalog: catalog,
		logger:  logger,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// lockConversation serializes sends within one conversation. Two concurrent
// sends would otherwise interleave their history reads and message writes.
func (s *Service) lockConversation(id int64) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// CreateConversation opens a new thread for a user
func (s *Service) CreateConversation(ctx context.Context, userID int64, title string) (*Conversation, error) {
	return s.store.CreateConversation(ctx, userID, title)
}

// ListConversations returns the user's threads, most recently updated first
func (s *Service) ListConversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

// GetConversation returns one thread with its messages. Missing threads and
// threads owned by someone else both come back as ErrNotFound.
func (s *Service) GetConversation(ctx context.Context, userID, id int64) (*Conversation, []*Message, error) {
	conv, err := s.store.GetConversation(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return conv, messages, nil
}

// DeleteConversation removes a thread and its messages. The thread's send
// lock is evicted with it so the lock map tracks live conversations only.
func (s *Service) DeleteConversation(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteConversation(ctx, id, userID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
	return nil
}

// SendMessage persists the user's message, asks the model for a reply with
// the full conversation history as context, and persists the reply.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID int64, text string) (*Message, error) {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	if _, err := s.store.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if _, err := s.store.CreateMessage(ctx, conversationID, RoleUser, text); err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return s.complete(ctx, conversationID, history)
}

// AnalyzeRequest describes one audio analysis: the track to analyze, an
// optional reference track to compare against, and an optional user prompt.
type AnalyzeRequest struct {
	ConversationID int64
	AudioURL       string
	ReferenceURL   string
	Prompt         string
}

// messageText is the user message persisted for an analysis. The audio URLs
// ride inside the message so the model sees which tracks to reason about.
func (r AnalyzeRequest) messageText() string {
	var b strings.Builder
	b.WriteString("Analyze this audio file: ")
	b.WriteString(r.AudioURL)
	if r.ReferenceURL != "" {
		b.WriteString("\nReference track: ")
		b.WriteString(r.ReferenceURL)
	}
	if r.Prompt != "" {
		b.WriteString("\n\n")
		b.WriteString(r.Prompt)
	}
	return b.String()
}

// AnalyzeAudio runs an analysis through the model behind the entitlement
// gate. The ledger entry is written only after the model has answered, so a
// failed analysis never consumes quota.
func (s *Service) AnalyzeAudio(ctx context.Context, userID int64, tier pricing.Tier, req AnalyzeRequest) (*Message, error) {
	if req.AudioURL == "" {
		return nil, fmt.Errorf("audio URL is required")
	}

	lifetime := tier == pricing.TierFree
	used, err := s.ledger.Count(ctx, userID, pricing.UsageAudioAnalysis, lifetime)
	if err != nil {
		// Fail closed: an unreadable ledger must not grant free analyses
		return nil, fmt.Errorf("failed to check usage: %w", err)
	}
	if s.catalog.HasReachedLimit(tier, pricing.UsageAudioAnalysis, used, lifetime) {
		return nil, &pricing.LimitReachedError{
			Tier:  tier,
			Kind:  pricing.UsageAudioAnalysis,
			Used:  used,
			Limit: s.catalog.LimitFor(tier, pricing.UsageAudioAnalysis),
		}
	}

	unlock := s.lockConversation(req.ConversationID)
	defer unlock()

	if _, err := s.store.GetConversation(ctx, req.ConversationID, userID); err != nil {
		return nil, err
	}

	if _, err := s.store.CreateMessage(ctx, req.ConversationID, RoleUser, req.messageText()); err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if len(history) > analysisHistoryWindow {
		history = history[len(history)-analysisHistoryWindow:]
	}

	reply, err := s.complete(ctx, req.ConversationID, history)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Record(ctx, usage.Entry{UserID: userID, Kind: pricing.UsageAudioAnalysis}); err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}
	return reply, nil
}

// complete assembles the prompt, calls the model, and persists the reply
func (s *Service) complete(ctx context.Context, conversationID int64, history []*Message) (*Message, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	for _, msg := range history {
		messages = append(messages, ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to get model response: %w", err)
	}
	if reply == "" {
		s.logger.WithField("conversation_id", conversationID).Warn("model returned empty response, storing fallback")
		reply = fallbackReply
	}

	saved, err := s.store.CreateMessage(ctx, conversationID, RoleAssistant, reply)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return saved, nil
}
