package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/cardapioweb/cardapio/internal/service"
)

// PaymentService opens charges with the payment provider
type PaymentService interface {
	// CreatePixIntent opens a pix charge and records the payment ref
	CreatePixIntent(ctx context.Context, publicID, payerEmail string) (*service.PixIntent, error)
	// ChargeCard charges a tokenized card and reconciles its status
	ChargeCard(ctx context.Context, publicID string, card models.CardCharge) (*models.ProviderPayment, error)
	// OrderTotal returns the amount due for an order by public token
	OrderTotal(ctx context.Context, publicID string) (int64, error)
}

// PaymentHandler represents HTTP handler for payment-related requests
type PaymentHandler struct {
	svc       PaymentService
	publicKey string
}

// NewPaymentHandler creates new PaymentHandler instance
func NewPaymentHandler(svc PaymentService, publicKey string) *PaymentHandler {
	return &PaymentHandler{svc: svc, publicKey: publicKey}
}

type intentRequest struct {
	OrderPublicID string `json:"orderPublicId"`
	Method        string `json:"method"`
	PayerEmail    string `json:"payerEmail"`
}

type pixIntentResponse struct {
	PaymentID    string `json:"paymentId"`
	QRCode       string `json:"qrCode"`
	QRCodeBase64 string `json:"qrCodeBase64"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	Amount       int64  `json:"amount"`
}

type cardInitResponse struct {
	PublicKey     string `json:"publicKey"`
	Amount        int64  `json:"amount"`
	OrderPublicID string `json:"orderPublicId"`
}

// CreateIntent opens a payment for an order
// 200 — intent created
// 400 — malformed request or unknown method
// 404 — unknown order token
// 502 — payment provider rejected or unreachable
func (ph *PaymentHandler) CreateIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req intentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderPublicID == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		switch req.Method {
		case "card_init":
			amount, err := ph.svc.OrderTotal(r.Context(), req.OrderPublicID)
			if err != nil {
				writePaymentError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, cardInitResponse{
				PublicKey:     ph.publicKey,
				Amount:        amount,
				OrderPublicID: req.OrderPublicID,
			})
		case "pix":
			intent, err := ph.svc.CreatePixIntent(r.Context(), req.OrderPublicID, req.PayerEmail)
			if err != nil {
				writePaymentError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, pixIntentResponse{
				PaymentID:    intent.PaymentID,
				QRCode:       intent.QRCode,
				QRCodeBase64: intent.QRCodeBase64,
				ExpiresAt:    intent.ExpiresAt,
				Amount:       intent.Amount,
			})
		default:
			http.Error(w, "unknown payment method", http.StatusBadRequest)
		}
	}
}

type cardChargeRequest struct {
	OrderPublicID   string `json:"orderPublicId"`
	Token           string `json:"token"`
	IssuerID        string `json:"issuerId"`
	PaymentMethodID string `json:"paymentMethodId"`
	Installments    int    `json:"installments"`
	PayerEmail      string `json:"payerEmail"`
}

type cardChargeResponse struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

// ChargeCard charges a tokenized card for an order
// 200 — charge submitted, status returned
// 400 — malformed request
// 404 — unknown order token
// 502 — payment provider rejected or unreachable
func (ph *PaymentHandler) ChargeCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cardChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			req.OrderPublicID == "" || req.Token == "" || req.PaymentMethodID == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		payment, err := ph.svc.ChargeCard(r.Context(), req.OrderPublicID, models.CardCharge{
			Token:           req.Token,
			IssuerID:        req.IssuerID,
			PaymentMethodID: req.PaymentMethodID,
			Installments:    req.Installments,
			PayerEmail:      req.PayerEmail,
		})
		if err != nil {
			writePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, cardChargeResponse{
			PaymentID: payment.ID,
			Status:    payment.Status,
		})
	}
}

func writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrDataNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, models.ErrUpstreamPayment):
		http.Error(w, "payment provider failure", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
