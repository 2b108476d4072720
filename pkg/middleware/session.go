package middleware

import (
	"net/http"
	"strconv"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/contextkeys"
	"github.com/mixmentor/mixmentor/pkg/httputil"
	"github.com/mixmentor/mixmentor/pkg/observability"
)

// SessionMiddleware resolves the session cookie to a user record
type SessionMiddleware struct {
	sessions *accounts.SessionStore
	users    accounts.Store
	logger   *observability.Logger
	optional bool
}

// NewSessionMiddleware creates session middleware. With optional set,
// requests without a valid session pass through unauthenticated.
func NewSessionMiddleware(sessions *accounts.SessionStore, users accounts.Store, logger *observability.Logger, optional bool) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
		users:    users,
		logger:   logger,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with session authentication
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accounts.CookieName)
		if err != nil || cookie.Value == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "not logged in")
			return
		}

		userID, err := m.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			if err != accounts.ErrSessionNotFound {
				m.logger.WithError(err).Error("failed to resolve session")
			}
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "session expired")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			// A session pointing at a deleted user is treated as expired
			if err != accounts.ErrNotFound {
				m.logger.WithError(err).WithField("user_id", userID).Error("failed to load session user")
			}
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "session expired")
			return
		}

		ctx := contextkeys.WithUser(r.Context(), user)
		ctx = contextkeys.WithSessionToken(ctx, cookie.Value)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(user.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser extracts the authenticated user from the request, or nil
func GetUser(r *http.Request) *accounts.User {
	value := r.Context().Value(contextkeys.UserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*accounts.User)
	if !ok {
		return nil
	}
	return user
}

// RequireAdmin rejects requests from non-admin users
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r)
		if user == nil {
			httputil.WriteUnauthorized(w, "not logged in")
			return
		}
		if user.Role != "admin" {
			httputil.WriteForbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
