package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/mixmentor/mixmentor/pkg/billing"
	"github.com/mixmentor/mixmentor/pkg/httputil"
	"github.com/mixmentor/mixmentor/pkg/middleware"
	"github.com/mixmentor/mixmentor/pkg/pricing"
)

// maxWebhookBytes bounds a webhook delivery; Stripe events are small
const maxWebhookBytes = 1 << 20

type checkoutRequest struct {
	Tier string `json:"tier"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// handleCheckout creates a Stripe-hosted checkout session for a paid tier
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var req checkoutRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	tier, ok := pricing.TierFor(req.Tier)
	if !ok {
		httputil.WriteBadRequest(w, "unknown tier: "+req.Tier)
		return
	}

	url, err := s.deps.Billing.CreateCheckoutSession(r.Context(), user.ID, tier)
	if err != nil {
		if errors.Is(err, billing.ErrNotPurchasable) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		s.deps.Logger.WithError(err).WithField("user_id", user.ID).Error("failed to create checkout session")
		httputil.WriteInternalError(w, errors.New("failed to create checkout session"))
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.CheckoutSessionsTotal.WithLabelValues(string(tier)).Inc()
	}
	httputil.WriteSuccess(w, checkoutResponse{URL: url})
}

// handleWebhook applies one Stripe delivery. The body is read raw; any
// transformation before signature verification would invalidate it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read payload")
		return
	}

	err = s.deps.Billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrSignatureInvalid) {
			if s.deps.Metrics != nil {
				s.deps.Metrics.WebhookEventsTotal.WithLabelValues("unknown", "signature_invalid").Inc()
			}
			httputil.WriteBadRequest(w, "invalid signature")
			return
		}
		// Non-2xx makes Stripe retry the delivery
		s.deps.Logger.WithError(err).Error("failed to process webhook event")
		httputil.WriteInternalError(w, errors.New("failed to process event"))
		return
	}

	httputil.WriteSuccess(w, map[string]bool{"received": true})
}
