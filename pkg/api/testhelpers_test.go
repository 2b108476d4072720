package api

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/audio"
	"github.com/mixmentor/mixmentor/pkg/chat"
	"github.com/mixmentor/mixmentor/pkg/observability"
	"github.com/mixmentor/mixmentor/pkg/pricing"
	"github.com/mixmentor/mixmentor/pkg/usage"
)

// mockUserStore implements accounts.Store with overridable behavior
type mockUserStore struct {
	getByIDFunc func(ctx context.Context, id int64) (*accounts.User, error)
}

func (m *mockUserStore) UpsertByOpenID(ctx context.Context, params accounts.UpsertParams) (*accounts.User, error) {
	return nil, accounts.ErrNotFound
}

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*accounts.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &accounts.User{ID: id, OpenID: "openid-test", Name: "Test User", Role: "user", Tier: pricing.TierPro}, nil
}

func (m *mockUserStore) GetByOpenID(ctx context.Context, openID string) (*accounts.User, error) {
	return nil, accounts.ErrNotFound
}

func (m *mockUserStore) GetByStripeCustomer(ctx context.Context, customerID string) (*accounts.User, error) {
	return nil, accounts.ErrNotFound
}

func (m *mockUserStore) SetStripeCustomer(ctx context.Context, userID int64, customerID string) error {
	return nil
}

func (m *mockUserStore) ApplyCheckout(ctx context.Context, userID int64, tier pricing.Tier, customerID, subscriptionID string) error {
	return nil
}

func (m *mockUserStore) UpdateSubscriptionByCustomer(ctx context.Context, customerID, status string, endsAt *time.Time, tier *pricing.Tier) error {
	return nil
}

// mockChatStore is an in-memory chat.Store
type mockChatStore struct {
	conversations map[int64]*chat.Conversation
	messages      map[int64][]*chat.Message
	nextMessageID int64
	listErr       error
}

func newMockChatStore() *mockChatStore {
	return &mockChatStore{
		conversations: make(map[int64]*chat.Conversation),
		messages:      make(map[int64][]*chat.Message),
	}
}

func (m *mockChatStore) addConversation(id, userID int64, title string) {
	m.conversations[id] = &chat.Conversation{ID: id, UserID: userID, Title: title}
}

func (m *mockChatStore) CreateConversation(ctx context.Context, userID int64, title string) (*chat.Conversation, error) {
	id := int64(len(m.conversations) + 1)
	conv := &chat.Conversation{ID: id, UserID: userID, Title: title, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.conversations[id] = conv
	return conv, nil
}

func (m *mockChatStore) ListConversations(ctx context.Context, userID int64) ([]*chat.Conversation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*chat.Conversation
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (m *mockChatStore) GetConversation(ctx context.Context, id, userID int64) (*chat.Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, chat.ErrNotFound
	}
	return conv, nil
}

func (m *mockChatStore) DeleteConversation(ctx context.Context, id, userID int64) error {
	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return chat.ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	return nil
}

func (m *mockChatStore) TouchConversation(ctx context.Context, id int64) error {
	return nil
}

func (m *mockChatStore) CreateMessage(ctx context.Context, conversationID int64, role chat.Role, content string) (*chat.Message, error) {
	m.nextMessageID++
	msg := &chat.Message{ID: m.nextMessageID, ConversationID: conversationID, Role: role, Content: content, CreatedAt: time.Now()}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	return msg, nil
}

func (m *mockChatStore) ListMessages(ctx context.Context, conversationID int64) ([]*chat.Message, error) {
	return m.messages[conversationID], nil
}

// mockCompleter returns a canned reply and captures what it was asked
type mockCompleter struct {
	mu       sync.Mutex
	received [][]chat.ChatMessage
	reply    string
	err      error
}

func (m *mockCompleter) Complete(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, messages)
	return m.reply, m.err
}

// mockLedger implements usage.Ledger
type mockLedger struct {
	countFunc     func(ctx context.Context, userID int64, kind pricing.UsageKind, lifetime bool) (int, error)
	breakdownFunc func(ctx context.Context, userID int64) (*usage.Breakdown, error)
	recorded      []usage.Entry
}

func (m *mockLedger) Record(ctx context.Context, entry usage.Entry) error {
	m.recorded = append(m.recorded, entry)
	return nil
}

func (m *mockLedger) Count(ctx context.Context, userID int64, kind pricing.UsageKind, lifetime bool) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, userID, kind, lifetime)
	}
	return 0, nil
}

func (m *mockLedger) MonthlyCost(ctx context.Context, userID int64) (int, error) {
	return 0, nil
}

func (m *mockLedger) MonthlyBreakdown(ctx context.Context, userID int64) (*usage.Breakdown, error) {
	if m.breakdownFunc != nil {
		return m.breakdownFunc(ctx, userID)
	}
	return &usage.Breakdown{Month: usage.MonthKey(time.Now()), Counts: map[pricing.UsageKind]int{}}, nil
}

// mockAudioStore is an in-memory audio.Store
type mockAudioStore struct {
	files   []*audio.File
	nextID  int64
	listErr error
}

func (m *mockAudioStore) Create(ctx context.Context, file *audio.File) (*audio.File, error) {
	m.nextID++
	file.ID = m.nextID
	file.CreatedAt = time.Now()
	m.files = append(m.files, file)
	return file, nil
}

func (m *mockAudioStore) Get(ctx context.Context, id, userID int64) (*audio.File, error) {
	for _, f := range m.files {
		if f.ID == id && f.UserID == userID {
			return f, nil
		}
	}
	return nil, audio.ErrNotFound
}

func (m *mockAudioStore) ListByUser(ctx context.Context, userID int64) ([]*audio.File, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*audio.File
	for _, f := range m.files {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

// mockBlobStore records blobs in memory
type mockBlobStore struct {
	keys []string
}

func (m *mockBlobStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	m.keys = append(m.keys, key)
	return "https://blobs.test/" + key, nil
}

// mockAuth implements Authenticator
type mockAuth struct {
	user  *accounts.User
	token string
	err   error
}

func (m *mockAuth) LoginURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}

func (m *mockAuth) HandleCallback(ctx context.Context, code string) (*accounts.User, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return m.user, m.token, nil
}

// mockBilling implements BillingService
type mockBilling struct {
	checkoutFunc func(ctx context.Context, userID int64, tier pricing.Tier) (string, error)
	webhookFunc  func(ctx context.Context, payload []byte, sigHeader string) error
}

func (m *mockBilling) CreateCheckoutSession(ctx context.Context, userID int64, tier pricing.Tier) (string, error) {
	if m.checkoutFunc != nil {
		return m.checkoutFunc(ctx, userID, tier)
	}
	return "https://checkout.stripe.test/session", nil
}

func (m *mockBilling) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if m.webhookFunc != nil {
		return m.webhookFunc(ctx, payload, sigHeader)
	}
	return nil
}

// fixture bundles a server wired to mocks with a live handler
type fixture struct {
	handler    http.Handler
	sessions   *accounts.SessionStore
	users      *mockUserStore
	chatStore  *mockChatStore
	completer  *mockCompleter
	ledger     *mockLedger
	audioStore *mockAudioStore
	blobs      *mockBlobStore
	auth       *mockAuth
	billing    *mockBilling
	catalog    *pricing.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	catalog := pricing.NewCatalog()
	sessions := accounts.NewSessionStore(client, time.Hour)

	f := &fixture{
		sessions:   sessions,
		users:      &mockUserStore{},
		chatStore:  newMockChatStore(),
		completer:  &mockCompleter{reply: "Try a high-pass filter around 100Hz."},
		ledger:     &mockLedger{},
		audioStore: &mockAudioStore{},
		blobs:      &mockBlobStore{},
		auth:       &mockAuth{},
		billing:    &mockBilling{},
		catalog:    catalog,
	}

	server := NewServer(Deps{
		Users:         f.users,
		Sessions:      sessions,
		Auth:          f.auth,
		Chat:          chat.NewService(f.chatStore, f.completer, f.ledger, catalog, logger),
		Audio:         audio.NewService(f.audioStore, f.blobs),
		Ledger:        f.ledger,
		Catalog:       catalog,
		Billing:       f.billing,
		Metrics:       observability.NewMetrics(prometheus.NewRegistry()),
		Logger:        logger,
		SecureCookies: false,
		SessionTTL:    time.Hour,
	})
	f.handler = server.Routes()
	return f
}

// login opens a session for a user ID and returns the cookie to send
func (f *fixture) login(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	token, err := f.sessions.Create(context.Background(), userID)
	require.NoError(t, err)
	return &http.Cookie{Name: accounts.CookieName, Value: token}
}
