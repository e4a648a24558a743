package worker

import (
	"context"
	"time"

	"github.com/cardapioweb/cardapio/internal/logger"
	"go.uber.org/zap"
)

// PaymentService re-reconciles payments stuck in pending
type PaymentService interface {
	ReconcilePending(ctx context.Context) error
}

// PaymentPoller periodically re-reconciles stale pending payments against the
// provider. Webhooks are the primary path; this covers the ones that got lost.
type PaymentPoller struct {
	svc      PaymentService
	interval time.Duration
}

// NewPaymentPoller creates new PaymentPoller instance
func NewPaymentPoller(svc PaymentService, interval time.Duration) *PaymentPoller {
	return &PaymentPoller{svc: svc, interval: interval}
}

// Run polls until the context is cancelled
func (pp *PaymentPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(pp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Debug("payment poller is done")
			return
		case <-ticker.C:
			if err := pp.svc.ReconcilePending(ctx); err != nil {
				logger.Log.Error("reconcile pending payments", zap.Error(err))
			}
		}
	}
}
