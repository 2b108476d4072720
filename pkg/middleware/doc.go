// Package middleware provides HTTP middleware for session authentication,
// request logging, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware: cookie-based session
// resolution, request-scoped structured logging, panic recovery, and rate
// limiting (in-memory and Redis-backed).
//
// # Middleware Components
//
// SessionMiddleware: cookie session authentication
//
//	sessions := middleware.NewSessionMiddleware(sessionStore, userStore, logger, false)
//	router.Use(sessions.Handler)
//	// Resolves the session cookie, loads the user, adds it to the context
//
// RequestLogger: request IDs and structured request logs
//
//	router.Use(middleware.RequestLogger(logger))
//
// RateLimitMiddleware: in-memory rate limiting
//
//	limits := middleware.NewRateLimitMiddleware()
//	router.Use(limits.Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting for the
// model-backed endpoints
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, middleware.CompletionRateLimitConfig(), "ratelimit:chat")
//	chatRoutes.Use(middleware.NewDistributedRateLimitMiddleware(limiter).Handler)
//
// # Rate Limiting
//
// Default (Anonymous): 60 req/min, 10 burst
// Per-User: 300 req/min, 30 burst
// Completion endpoints: 20 req/min, 5 burst
//
// # Related Packages
//
//   - pkg/accounts: Session and user stores
//   - pkg/contextkeys: Context key definitions
package middleware
