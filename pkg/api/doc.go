// Package api wires the HTTP surface: route registration, request
// decoding, and the mapping from domain errors to status codes.
//
// # Overview
//
// The Server holds every service as an injected dependency and exposes
// Routes(), a gorilla/mux router with the middleware chain applied.
// Handlers stay thin: decode, call the service, encode. Domain rules
// (ownership, entitlements, signature checks) live in the service
// packages.
//
// # Usage Example
//
//	server := api.NewServer(api.Deps{
//	    Users:    userStore,
//	    Sessions: sessionStore,
//	    Chat:     chatService,
//	    ...
//	})
//	http.ListenAndServe(":8080", server.Routes())
//
// # Related Packages
//
//   - pkg/chat: conversation and completion orchestration
//   - pkg/billing: checkout sessions and Stripe webhooks
//   - pkg/middleware: session resolution and rate limiting
package api
