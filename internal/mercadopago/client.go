// Package mercadopago is the payment-provider collaborator. The core treats
// it as the opaque authority on payment truth: the checkout flow opens charges
// here and the reconciler re-fetches their status here.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/google/uuid"
)

const providerName = "mercadopago"

// Client calls the Mercado Pago payments API
type Client struct {
	client      *http.Client
	baseURL     string
	accessToken string
}

// NewClient creates new Client instance
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     baseURL,
		accessToken: accessToken,
	}
}

// Name returns the provider identifier stored on orders
func (c *Client) Name() string {
	return providerName
}

type payerRequest struct {
	Email string `json:"email"`
}

type paymentRequest struct {
	TransactionAmount float64      `json:"transaction_amount"`
	Description       string       `json:"description"`
	PaymentMethodID   string       `json:"payment_method_id,omitempty"`
	Token             string       `json:"token,omitempty"`
	IssuerID          string       `json:"issuer_id,omitempty"`
	Installments      int          `json:"installments,omitempty"`
	Payer             payerRequest `json:"payer"`
	ExternalReference string       `json:"external_reference"`
}

type paymentResponse struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	ExternalReference  string `json:"external_reference"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			ExpiresAt    string `json:"expires_at"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (r *paymentResponse) toModel() *models.ProviderPayment {
	return &models.ProviderPayment{
		ID:                strconv.FormatInt(r.ID, 10),
		Status:            r.Status,
		ExternalReference: r.ExternalReference,
		QRCode:            r.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64:      r.PointOfInteraction.TransactionData.QRCodeBase64,
		QRExpiresAt:       r.PointOfInteraction.TransactionData.ExpiresAt,
	}
}

// CreatePixCharge opens a pix payment for the order. The amount is converted
// to currency units only at this boundary; everything internal stays in cents.
func (c *Client) CreatePixCharge(ctx context.Context, order *models.Order, payerEmail string) (*models.ProviderPayment, error) {
	body := paymentRequest{
		TransactionAmount: float64(order.Total) / 100,
		Description:       fmt.Sprintf("Pedido %s", order.PublicID),
		PaymentMethodID:   "pix",
		Payer:             payerRequest{Email: payerEmail},
		ExternalReference: order.PublicID,
	}
	return c.createPayment(ctx, body)
}

// CreateCardCharge charges a tokenized card for the order
func (c *Client) CreateCardCharge(ctx context.Context, order *models.Order, card models.CardCharge) (*models.ProviderPayment, error) {
	installments := card.Installments
	if installments < 1 {
		installments = 1
	}
	body := paymentRequest{
		TransactionAmount: float64(order.Total) / 100,
		Description:       fmt.Sprintf("Pedido %s", order.PublicID),
		PaymentMethodID:   card.PaymentMethodID,
		Token:             card.Token,
		IssuerID:          card.IssuerID,
		Installments:      installments,
		Payer:             payerRequest{Email: card.PayerEmail},
		ExternalReference: order.PublicID,
	}
	return c.createPayment(ctx, body)
}

// GetPayment fetches the authoritative payment record by id
func (c *Client) GetPayment(ctx context.Context, id string) (*models.ProviderPayment, error) {
	u, err := url.JoinPath(c.baseURL, "v1", "payments", id)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamPayment, err)
	}
	defer resp.Body.Close()

	return c.decodePayment(resp)
}

func (c *Client) createPayment(ctx context.Context, body paymentRequest) (*models.ProviderPayment, error) {
	u, err := url.JoinPath(c.baseURL, "v1", "payments")
	if err != nil {
		return nil, err
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	// the payments API rejects retried creates without an idempotency key
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamPayment, err)
	}
	defer resp.Body.Close()

	return c.decodePayment(resp)
}

func (c *Client) decodePayment(resp *http.Response) (*models.ProviderPayment, error) {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		payment := paymentResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
		return payment.toModel(), nil
	case http.StatusNotFound:
		return nil, models.ErrDataNotFound
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrUpstreamPayment, resp.StatusCode, msg)
	}
}
