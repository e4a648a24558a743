package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cardapioweb/cardapio/internal/logger"
	"github.com/cardapioweb/cardapio/internal/mercadopago"
	"go.uber.org/zap"
)

// WebhookService reconciles an order against the provider's payment record
type WebhookService interface {
	Reconcile(ctx context.Context, providerPaymentID string) error
}

// WebhookHandler receives payment-provider callbacks. Deliveries arrive
// at-least-once, out of order and concurrently; internal failures are logged
// and the provider is always acked, its own retry mechanism is the recovery
// path.
type WebhookHandler struct {
	svc    WebhookService
	secret string
}

// NewWebhookHandler creates new WebhookHandler instance
func NewWebhookHandler(svc WebhookService, secret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret}
}

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
	DataID json.Number `json:"data_id"`
	ID     json.Number `json:"id"`
}

// Receive handles the provider callback. The body is only mined for the
// payment id; the authoritative status is re-fetched by the reconciler.
// Responds 200 regardless of internal outcome.
func (wh *WebhookHandler) Receive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !mercadopago.ValidateSignature(r, wh.secret) {
			// log and keep going; rejecting would only trigger a retry storm
			logger.Log.Warn("webhook signature mismatch")
		}

		id := r.URL.Query().Get("data.id")
		if id == "" {
			id = r.URL.Query().Get("id")
		}
		if id == "" {
			var body webhookBody
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				switch {
				case body.Data.ID != "":
					id = body.Data.ID.String()
				case body.DataID != "":
					id = body.DataID.String()
				case body.ID != "":
					id = body.ID.String()
				}
			}
			defer r.Body.Close()
		}

		if id == "" {
			logger.Log.Warn("webhook without payment id")
			ack(w)
			return
		}

		if err := wh.svc.Reconcile(r.Context(), id); err != nil {
			logger.Log.Error("webhook reconciliation failed",
				zap.String("paymentId", id),
				zap.Error(err))
		}

		ack(w)
	}
}

func ack(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
