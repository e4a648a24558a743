package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cardapioweb/cardapio/internal/hub"
	"github.com/cardapioweb/cardapio/internal/logger"
	"github.com/cardapioweb/cardapio/internal/models"
	"go.uber.org/zap"
)

// stalePendingAge is how long a pending payment may sit untouched before the
// poller re-reconciles it against the provider.
const stalePendingAge = 2 * time.Minute

// PaymentOrderRepository is interface for the payment-side order writes
type PaymentOrderRepository interface {
	// GetOrderByPublicID returns the order by public token
	GetOrderByPublicID(ctx context.Context, publicID string) (*models.Order, error)
	// SetOrderPaymentRef records the provider and its payment id on the order
	SetOrderPaymentRef(ctx context.Context, orderID uint64, provider, ref string) error
	// UpdateOrderPayment applies the update only when the row still carries
	// prev, advancing fulfillment only if the row is still received. Returns
	// the resulting fulfillment status and whether the update was applied.
	UpdateOrderPayment(ctx context.Context, orderID uint64, upd models.PaymentUpdate, prev models.PaymentStatus) (models.Status, bool, error)
	// ListStalePendingPayments returns pending orders untouched since cutoff
	ListStalePendingPayments(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

// PaymentProvider is the external authority on payment truth
type PaymentProvider interface {
	// Name returns the provider identifier stored on orders
	Name() string
	// CreatePixCharge opens a pix payment for the order
	CreatePixCharge(ctx context.Context, order *models.Order, payerEmail string) (*models.ProviderPayment, error)
	// CreateCardCharge charges a tokenized card for the order
	CreateCardCharge(ctx context.Context, order *models.Order, card models.CardCharge) (*models.ProviderPayment, error)
	// GetPayment fetches the authoritative payment record by id
	GetPayment(ctx context.Context, id string) (*models.ProviderPayment, error)
}

// PixIntent is what the customer needs to pay a pix charge.
type PixIntent struct {
	PaymentID    string
	QRCode       string
	QRCodeBase64 string
	ExpiresAt    string
	Amount       int64
}

// PaymentService opens charges with the provider and reconciles their status
// back onto orders. Reconciliation is idempotent: provider callbacks arrive
// at-least-once, out of order and concurrently.
type PaymentService struct {
	repo     PaymentOrderRepository
	provider PaymentProvider
	hub      Publisher
}

// NewPaymentService creates new PaymentService instance
func NewPaymentService(repo PaymentOrderRepository, provider PaymentProvider, hub Publisher) *PaymentService {
	return &PaymentService{
		repo:     repo,
		provider: provider,
		hub:      hub,
	}
}

// OrderTotal returns the amount due for an order by public token
func (ps *PaymentService) OrderTotal(ctx context.Context, publicID string) (int64, error) {
	order, err := ps.repo.GetOrderByPublicID(ctx, publicID)
	if err != nil {
		return 0, err
	}
	return order.Total, nil
}

// CreatePixIntent opens a pix charge for the order and records the payment ref
func (ps *PaymentService) CreatePixIntent(ctx context.Context, publicID, payerEmail string) (*PixIntent, error) {
	order, err := ps.repo.GetOrderByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	payment, err := ps.provider.CreatePixCharge(ctx, order, payerEmail)
	if err != nil {
		return nil, fmt.Errorf("create pix charge: %w", err)
	}

	if err := ps.repo.SetOrderPaymentRef(ctx, order.ID, ps.provider.Name(), payment.ID); err != nil {
		return nil, fmt.Errorf("record payment ref: %w", err)
	}

	return &PixIntent{
		PaymentID:    payment.ID,
		QRCode:       payment.QRCode,
		QRCodeBase64: payment.QRCodeBase64,
		ExpiresAt:    payment.QRExpiresAt,
		Amount:       order.Total,
	}, nil
}

// ChargeCard charges a tokenized card and reconciles the returned status
// immediately; card payments resolve synchronously more often than not.
func (ps *PaymentService) ChargeCard(ctx context.Context, publicID string, card models.CardCharge) (*models.ProviderPayment, error) {
	order, err := ps.repo.GetOrderByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	payment, err := ps.provider.CreateCardCharge(ctx, order, card)
	if err != nil {
		return nil, fmt.Errorf("create card charge: %w", err)
	}

	if err := ps.apply(ctx, order, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// Reconcile brings the order's payment status into agreement with the
// provider's record. The authoritative status is always re-fetched by id;
// the callback body is never trusted. An order reference that resolves to
// nothing is logged and acknowledged as a no-op.
func (ps *PaymentService) Reconcile(ctx context.Context, providerPaymentID string) error {
	payment, err := ps.provider.GetPayment(ctx, providerPaymentID)
	if err != nil {
		return fmt.Errorf("get payment %s: %w", providerPaymentID, err)
	}

	if payment.ExternalReference == "" {
		logger.Log.Warn("payment has no external reference", zap.String("paymentId", providerPaymentID))
		return nil
	}

	order, err := ps.repo.GetOrderByPublicID(ctx, payment.ExternalReference)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			logger.Log.Warn("payment references unknown order",
				zap.String("paymentId", providerPaymentID),
				zap.String("reference", payment.ExternalReference))
			return nil
		}
		return err
	}

	return ps.apply(ctx, order, payment)
}

// ReconcilePending re-reconciles orders stuck in pending with a payment ref.
// Covers webhooks the provider gave up retrying.
func (ps *PaymentService) ReconcilePending(ctx context.Context) error {
	orders, err := ps.repo.ListStalePendingPayments(ctx, time.Now().Add(-stalePendingAge))
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}

	for _, order := range orders {
		if err := ps.Reconcile(ctx, order.PaymentRef); err != nil {
			logger.Log.Error("reconcile pending payment failed",
				zap.String("publicId", order.PublicID),
				zap.Error(err))
		}
	}

	return nil
}

// apply maps the provider status and conditionally updates the order. The
// write is a compare-and-swap on the payment status read here, so two
// concurrent reconciliations of the same order cannot double-apply; only the
// winner announces. The received→accepted advance is decided inside the
// write, not here, so a staff status change landing between this read and
// the write is never dragged backward.
func (ps *PaymentService) apply(ctx context.Context, order *models.Order, payment *models.ProviderPayment) error {
	next, known := mapProviderStatus(payment.Status)
	if !known {
		logger.Log.Warn("unknown provider payment status",
			zap.String("paymentId", payment.ID),
			zap.String("providerStatus", payment.Status))
		return nil
	}

	if !order.PaymentStatus.CanTransition(next) {
		return nil
	}

	status, applied, err := ps.repo.UpdateOrderPayment(ctx, order.ID, models.PaymentUpdate{
		PaymentStatus: next,
		Status:        models.StatusAccepted,
		Provider:      ps.provider.Name(),
		Ref:           payment.ID,
	}, order.PaymentStatus)
	if err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	if !applied {
		// a concurrent reconciliation won the race
		return nil
	}

	logger.Log.Info("payment reconciled",
		zap.String("publicId", order.PublicID),
		zap.String("paymentStatus", string(next)),
		zap.String("status", string(status)))

	event := models.Event{
		Type:          models.EventOrderUpdate,
		PublicID:      order.PublicID,
		Status:        status,
		PaymentStatus: next,
	}
	ps.hub.Publish(order.PublicID, event)
	ps.hub.Publish(hub.StoreKey(order.StoreID), event)

	return nil
}

// mapProviderStatus maps the provider's payment status onto ours
func mapProviderStatus(status string) (models.PaymentStatus, bool) {
	switch status {
	case "approved", "authorized":
		return models.PaymentPaid, true
	case "in_process", "pending":
		return models.PaymentPending, true
	case "rejected", "cancelled":
		return models.PaymentFailed, true
	case "refunded", "charged_back":
		return models.PaymentRefunded, true
	}
	return "", false
}
