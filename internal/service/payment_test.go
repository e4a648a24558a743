package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cardapioweb/cardapio/internal/hub"
	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePaymentRepo keeps orders in memory with the same compare-and-swap
// discipline the postgres repository has. beforePaymentWrite, when set, runs
// right before the payment write to interleave a competing change.
type fakePaymentRepo struct {
	mu                 sync.Mutex
	orders             map[uint64]*models.Order
	beforePaymentWrite func()
}

func newFakePaymentRepo(orders ...*models.Order) *fakePaymentRepo {
	repo := &fakePaymentRepo{orders: map[uint64]*models.Order{}}
	for _, order := range orders {
		cp := *order
		repo.orders[order.ID] = &cp
	}
	return repo
}

func (f *fakePaymentRepo) get(id uint64) models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.orders[id]
}

func (f *fakePaymentRepo) setStatus(id uint64, status models.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[id].Status = status
}

func (f *fakePaymentRepo) GetOrderByPublicID(_ context.Context, publicID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.PublicID == publicID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, models.ErrDataNotFound
}

func (f *fakePaymentRepo) SetOrderPaymentRef(_ context.Context, orderID uint64, provider, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return models.ErrDataNotFound
	}
	order.PaymentProvider = provider
	order.PaymentRef = ref
	return nil
}

func (f *fakePaymentRepo) UpdateOrderPayment(_ context.Context, orderID uint64, upd models.PaymentUpdate, prev models.PaymentStatus) (models.Status, bool, error) {
	if f.beforePaymentWrite != nil {
		f.beforePaymentWrite()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.PaymentStatus != prev {
		return "", false, nil
	}
	order.PaymentStatus = upd.PaymentStatus
	// fulfillment advances only from received, and only on payment
	if order.Status == models.StatusReceived && upd.PaymentStatus == models.PaymentPaid {
		order.Status = upd.Status
	}
	order.PaymentProvider = upd.Provider
	order.PaymentRef = upd.Ref
	order.UpdatedAt = time.Now()
	return order.Status, true, nil
}

func (f *fakePaymentRepo) ListStalePendingPayments(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stale []models.Order
	for _, order := range f.orders {
		if order.PaymentStatus == models.PaymentPending && order.PaymentRef != "" && order.UpdatedAt.Before(cutoff) {
			stale = append(stale, *order)
		}
	}
	return stale, nil
}

type fakeProvider struct {
	payments map[string]*models.ProviderPayment
	err      error
}

func (f *fakeProvider) Name() string { return "mercadopago" }

func (f *fakeProvider) CreatePixCharge(_ context.Context, order *models.Order, _ string) (*models.ProviderPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProviderPayment{ID: "pix-1", Status: "pending", ExternalReference: order.PublicID, QRCode: "qr-payload"}, nil
}

func (f *fakeProvider) CreateCardCharge(_ context.Context, order *models.Order, _ models.CardCharge) (*models.ProviderPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProviderPayment{ID: "card-1", Status: "approved", ExternalReference: order.PublicID}, nil
}

func (f *fakeProvider) GetPayment(_ context.Context, id string) (*models.ProviderPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	payment, ok := f.payments[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	return payment, nil
}

// capturePublisher records published events per channel key.
type capturePublisher struct {
	mu     sync.Mutex
	events map[string][]models.Event
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{events: map[string][]models.Event{}}
}

func (c *capturePublisher) Publish(key string, event models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[key] = append(c.events[key], event)
}

func (c *capturePublisher) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events[key])
}

func (c *capturePublisher) last(key string) models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events[key]
	return events[len(events)-1]
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:            1,
		PublicID:      "tok-1",
		StoreID:       7,
		Type:          models.OrderTypePickup,
		Total:         3620,
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusReceived,
		UpdatedAt:     time.Now(),
	}
}

func TestPaymentService_Reconcile_ApprovedMarksPaidAndAccepts(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: "tok-1"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	require.NoError(t, svc.Reconcile(context.Background(), "pay-1"))

	order := repo.get(1)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, models.StatusAccepted, order.Status)
	assert.Equal(t, "mercadopago", order.PaymentProvider)
	assert.Equal(t, "pay-1", order.PaymentRef)

	require.Equal(t, 1, pub.count("tok-1"))
	require.Equal(t, 1, pub.count(hub.StoreKey(7)))
	event := pub.last("tok-1")
	assert.Equal(t, models.EventOrderUpdate, event.Type)
	assert.Equal(t, models.PaymentPaid, event.PaymentStatus)
	assert.Equal(t, models.StatusAccepted, event.Status)
}

func TestPaymentService_Reconcile_DuplicateDeliveryIsNoop(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: "tok-1"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	require.NoError(t, svc.Reconcile(context.Background(), "pay-1"))
	require.NoError(t, svc.Reconcile(context.Background(), "pay-1"))

	order := repo.get(1)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, models.StatusAccepted, order.Status)

	// exactly one notification per channel, not two
	assert.Equal(t, 1, pub.count("tok-1"))
	assert.Equal(t, 1, pub.count(hub.StoreKey(7)))
}

func TestPaymentService_Reconcile_ConcurrentDeliveries(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: "tok-1"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Reconcile(context.Background(), "pay-1"))
		}()
	}
	wg.Wait()

	order := repo.get(1)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, models.StatusAccepted, order.Status)

	// the compare-and-swap lets exactly one delivery through
	assert.Equal(t, 1, pub.count("tok-1"))
	assert.Equal(t, 1, pub.count(hub.StoreKey(7)))
}

func TestPaymentService_Reconcile_PaidNeverRegressesToPending(t *testing.T) {
	order := pendingOrder()
	order.PaymentStatus = models.PaymentPaid
	order.Status = models.StatusAccepted
	repo := newFakePaymentRepo(order)
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-1": {ID: "pay-1", Status: "in_process", ExternalReference: "tok-1"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	require.NoError(t, svc.Reconcile(context.Background(), "pay-1"))

	got := repo.get(1)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.Equal(t, 0, pub.count("tok-1"))
}

func TestPaymentService_Reconcile_DoesNotResetKitchenProgress(t *testing.T) {
	order := pendingOrder()
	order.Status = models.StatusInKitchen
	repo := newFakePaymentRepo(order)
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: "tok-1"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	require.NoError(t, svc.Reconcile(context.Background(), "pay-1"))

	got := repo.get(1)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	// payment landing after staff progressed the order must not move it back
	assert.Equal(t, models.StatusInKitchen, got.Status)
}

func TestPaymentService_Reconcile_StaffProgressDuringReconcileSurvives(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	// staff moves the order to the kitchen after the reconciler's read but
	// before its write
	repo.beforePaymentWrite = func() {
		repo.setStatus(1, models.StatusInKitchen)
	}
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: "tok-1"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	require.NoError(t, svc.Reconcile(context.Background(), "pay-1"))

	got := repo.get(1)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, models.StatusInKitchen, got.Status)

	// the announcement carries the status the row actually ended up with
	require.Equal(t, 1, pub.count("tok-1"))
	event := pub.last("tok-1")
	assert.Equal(t, models.StatusInKitchen, event.Status)
	assert.Equal(t, models.PaymentPaid, event.PaymentStatus)
}

func TestPaymentService_Reconcile_FailedAttemptCanStillSucceed(t *testing.T) {
	order := pendingOrder()
	order.PaymentStatus = models.PaymentFailed
	repo := newFakePaymentRepo(order)
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-2": {ID: "pay-2", Status: "approved", ExternalReference: "tok-1"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	require.NoError(t, svc.Reconcile(context.Background(), "pay-2"))

	got := repo.get(1)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, models.StatusAccepted, got.Status)
}

func TestPaymentService_Reconcile_UnknownOrderReferenceIsAcknowledged(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-9": {ID: "pay-9", Status: "approved", ExternalReference: "no-such-order"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	assert.NoError(t, svc.Reconcile(context.Background(), "pay-9"))
	assert.Equal(t, 0, pub.count("tok-1"))
}

func TestPaymentService_Reconcile_UnknownProviderStatusKeepsOrder(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-1": {ID: "pay-1", Status: "in_mediation", ExternalReference: "tok-1"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	require.NoError(t, svc.Reconcile(context.Background(), "pay-1"))

	got := repo.get(1)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.Equal(t, 0, pub.count("tok-1"))
}

func TestPaymentService_Reconcile_ProviderFailureIsReported(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	provider := &fakeProvider{err: errors.New("connection refused")}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	assert.Error(t, svc.Reconcile(context.Background(), "pay-1"))
	assert.Equal(t, 0, pub.count("tok-1"))
}

func TestPaymentService_CreatePixIntent(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	provider := &fakeProvider{}
	svc := NewPaymentService(repo, provider, newCapturePublisher())

	intent, err := svc.CreatePixIntent(context.Background(), "tok-1", "payer@test.com")
	require.NoError(t, err)

	assert.Equal(t, "pix-1", intent.PaymentID)
	assert.Equal(t, "qr-payload", intent.QRCode)
	assert.Equal(t, int64(3620), intent.Amount)

	order := repo.get(1)
	assert.Equal(t, "mercadopago", order.PaymentProvider)
	assert.Equal(t, "pix-1", order.PaymentRef)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
}

func TestPaymentService_ChargeCard_AppliesReturnedStatus(t *testing.T) {
	repo := newFakePaymentRepo(pendingOrder())
	provider := &fakeProvider{}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	payment, err := svc.ChargeCard(context.Background(), "tok-1", models.CardCharge{Token: "card-token", PaymentMethodID: "visa"})
	require.NoError(t, err)
	assert.Equal(t, "approved", payment.Status)

	order := repo.get(1)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, models.StatusAccepted, order.Status)
	assert.Equal(t, 1, pub.count("tok-1"))
}

func TestPaymentService_ReconcilePending(t *testing.T) {
	stale := pendingOrder()
	stale.PaymentRef = "pay-1"
	stale.UpdatedAt = time.Now().Add(-10 * time.Minute)

	fresh := pendingOrder()
	fresh.ID = 2
	fresh.PublicID = "tok-2"
	fresh.PaymentRef = "pay-2"

	noRef := pendingOrder()
	noRef.ID = 3
	noRef.PublicID = "tok-3"
	noRef.UpdatedAt = time.Now().Add(-10 * time.Minute)

	repo := newFakePaymentRepo(stale, fresh, noRef)
	provider := &fakeProvider{payments: map[string]*models.ProviderPayment{
		"pay-1": {ID: "pay-1", Status: "approved", ExternalReference: "tok-1"},
		"pay-2": {ID: "pay-2", Status: "approved", ExternalReference: "tok-2"},
	}}
	pub := newCapturePublisher()
	svc := NewPaymentService(repo, provider, pub)

	require.NoError(t, svc.ReconcilePending(context.Background()))

	// only the stale order with a ref was re-reconciled
	assert.Equal(t, models.PaymentPaid, repo.get(1).PaymentStatus)
	assert.Equal(t, models.PaymentPending, repo.get(2).PaymentStatus)
	assert.Equal(t, models.PaymentPending, repo.get(3).PaymentStatus)
}
