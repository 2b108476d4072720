// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/mixmentor/mixmentor/pkg/contextkeys"
//	ctx = context.WithValue(ctx, contextkeys.UserKey, user)
//	user := ctx.Value(contextkeys.UserKey).(*accounts.User)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains the authenticated user
	// Set by: middleware.SessionMiddleware (pkg/middleware/session.go)
	// Required by: All protected API endpoints
	// Type: *accounts.User
	UserKey Key = "user"

	// SessionTokenKey contains the opaque session token from the cookie
	// Set by: middleware.SessionMiddleware
	// Used by: Logout handler to delete the session
	// Type: string
	SessionTokenKey Key = "session_token"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestLogger
	// Used by: Logger, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: middleware.SessionMiddleware after session resolution
	// Used by: Logger, user-scoped operations
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: middleware.RequestLogger
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// RequestStartTimeKey contains request start timestamp
	// Set by: middleware.RequestLogger
	// Used by: Duration calculation for request logs
	// Type: time.Time
	RequestStartTimeKey Key = "request_start_time"
)

// Helper functions for type-safe context operations

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user interface{}) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// WithSessionToken adds the session token to the context
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, SessionTokenKey, token)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithRequestStartTime adds request start time to the context
func WithRequestStartTime(ctx context.Context, startTime interface{}) context.Context {
	return context.WithValue(ctx, RequestStartTimeKey, startTime)
}

// GetSessionToken retrieves the session token from context
func GetSessionToken(ctx context.Context) string {
	if token, ok := ctx.Value(SessionTokenKey).(string); ok {
		return token
	}
	return ""
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
