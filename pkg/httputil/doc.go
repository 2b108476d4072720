// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and common HTTP middleware patterns.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, data)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteUnauthorized(w, "Not logged in")
//	httputil.WriteNotFoundError(w, "Conversation not found")
//	httputil.WriteLimitReached(w, "limit reached", upgradeMessage)
//
// # Request Parsing
//
// JSON parsing:
//
//	var req SendMessageRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	limit, err := httputil.ParseQueryInt(r, "limit", 20)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.CORSMiddleware([]string{"*"}),
//		httputil.MaxBytesMiddleware(70*1024*1024),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Session authentication and request logging middleware
package httputil
