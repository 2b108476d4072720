// Package billing integrates with Stripe for subscription checkout and keeps
// local subscription state in sync through webhooks.
//
// # Overview
//
// Checkout happens on Stripe-hosted pages: CreateCheckoutSession finds or
// creates the Stripe customer for the user and returns the session URL to
// redirect to. All subscription state changes flow back through the webhook
// endpoint, whose payloads are verified against the endpoint secret before
// anything is applied. Processed event IDs are persisted so Stripe's retry
// delivery never applies an event twice.
//
// # Handled Events
//
//   - checkout.session.completed: activate the purchased tier
//   - customer.subscription.updated: sync status and period end
//   - customer.subscription.deleted: drop the account back to free
//
// Everything else is acknowledged and ignored.
//
// # Related Packages
//
//   - pkg/accounts: user rows carrying the Stripe customer/subscription refs
//   - pkg/pricing: tier table with the Stripe price IDs
package billing
