package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cardapioweb/cardapio/internal/hub"
	"github.com/cardapioweb/cardapio/internal/logger"
	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/cardapioweb/cardapio/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts the order with items and options atomically
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrderByPublicID returns the order by public token
	GetOrderByPublicID(ctx context.Context, publicID string) (*models.Order, error)
	// GetOrderForStore returns the order header scoped by store
	GetOrderForStore(ctx context.Context, storeID, orderID uint64) (*models.Order, error)
	// ListOpenOrders returns the store's non-terminal orders
	ListOpenOrders(ctx context.Context, storeID uint64) ([]models.Order, error)
	// UpdateFulfillmentStatus rewrites the fulfillment status, scoped by store
	UpdateFulfillmentStatus(ctx context.Context, storeID, orderID uint64, status models.Status) (*models.Order, error)
}

// StoreRepository is interface for store and table lookups
type StoreRepository interface {
	// GetStoreBySlug returns store by its URL slug
	GetStoreBySlug(ctx context.Context, slug string) (*models.Store, error)
	// GetStoreByID returns store by id
	GetStoreByID(ctx context.Context, id uint64) (*models.Store, error)
	// GetActiveTable returns an active table belonging to the store
	GetActiveTable(ctx context.Context, storeID, tableID uint64) (*models.Table, error)
}

// Pricer recomputes totals from trusted catalog data
type Pricer interface {
	Price(ctx context.Context, store *models.Store, req pricing.Request) (*models.PricedOrder, error)
}

// Publisher fans state-change events out to push subscribers
type Publisher interface {
	Publish(key string, event models.Event)
}

// CheckoutRequest is a submitted cart. Prices are absent on purpose; the
// pricing engine recomputes everything server side.
type CheckoutRequest struct {
	Type          string
	TableID       uint64
	CustomerName  string
	CustomerPhone string
	Address       json.RawMessage
	Items         []pricing.LineRequest
	CouponCode    string
}

// OrderService orchestrates checkout and owns the fulfillment state machine
type OrderService struct {
	repo   OrderRepository
	stores StoreRepository
	pricer Pricer
	hub    Publisher
}

// NewOrderService creates new OrderService instance
func NewOrderService(repo OrderRepository, stores StoreRepository, pricer Pricer, hub Publisher) *OrderService {
	return &OrderService{
		repo:   repo,
		stores: stores,
		pricer: pricer,
		hub:    hub,
	}
}

// Quote prices the cart without persisting anything. It shares the pricing
// call with Checkout so preview and authoritative totals always agree.
func (os *OrderService) Quote(ctx context.Context, slug string, req CheckoutRequest) (*models.PricedOrder, error) {
	store, err := os.stores.GetStoreBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	orderType, err := models.ParseOrderType(req.Type)
	if err != nil {
		return nil, err
	}

	return os.pricer.Price(ctx, store, pricing.Request{
		Type:       orderType,
		Items:      req.Items,
		CouponCode: req.CouponCode,
	})
}

// Checkout reprices the cart, persists the order at (received, pending) and
// announces it to the owning store. The announcement goes out strictly after
// the commit, so subscribers never see an order that failed to persist.
func (os *OrderService) Checkout(ctx context.Context, slug string, req CheckoutRequest) (*models.Order, error) {
	store, err := os.stores.GetStoreBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	orderType, err := models.ParseOrderType(req.Type)
	if err != nil {
		return nil, err
	}

	var tableID *uint64
	if orderType == models.OrderTypeDineIn {
		table, err := os.stores.GetActiveTable(ctx, store.ID, req.TableID)
		if err != nil {
			return nil, models.ErrTableUnavailable
		}
		tableID = &table.ID
	}

	priced, err := os.pricer.Price(ctx, store, pricing.Request{
		Type:       orderType,
		Items:      req.Items,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return nil, fmt.Errorf("price cart: %w", err)
	}
	if len(priced.Items) == 0 {
		return nil, models.ErrEmptyCart
	}

	order := &models.Order{
		PublicID:      uuid.NewString(),
		StoreID:       store.ID,
		Type:          orderType,
		TableID:       tableID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Subtotal:      priced.Subtotal,
		DeliveryFee:   priced.DeliveryFee,
		PackagingFee:  priced.PackagingFee,
		Discount:      priced.Discount,
		Total:         priced.Total,
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusReceived,
	}
	if orderType == models.OrderTypeDelivery && len(req.Address) > 0 {
		order.Address = req.Address
	}
	for _, item := range priced.Items {
		line := models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
		for _, option := range item.Options {
			optionID := option.OptionID
			line.Options = append(line.Options, models.ItemOption{
				OptionID: &optionID,
				Name:     option.Name,
				Price:    option.Price,
			})
		}
		order.Items = append(order.Items, line)
	}

	order, err = os.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	os.hub.Publish(hub.StoreKey(store.ID), models.Event{
		Type:     models.EventOrderNew,
		PublicID: order.PublicID,
		Status:   order.Status,
	})

	return order, nil
}

// GetOrder returns the order with items and its store by public token
func (os *OrderService) GetOrder(ctx context.Context, publicID string) (*models.Order, *models.Store, error) {
	order, err := os.repo.GetOrderByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}

	store, err := os.stores.GetStoreByID(ctx, order.StoreID)
	if err != nil {
		return nil, nil, err
	}

	return order, store, nil
}

// ListOpenOrders returns the store's open-orders snapshot for the kitchen
// display. Callers fetch this first and subscribe to the store stream second,
// tolerating duplicate events over the overlap.
func (os *OrderService) ListOpenOrders(ctx context.Context, storeID uint64) ([]models.Order, error) {
	return os.repo.ListOpenOrders(ctx, storeID)
}

// SetFulfillmentStatus applies a staff status change. The target status must
// be a known fulfillment state and the order must belong to the caller's
// store; an order in a terminal status cannot be moved.
func (os *OrderService) SetFulfillmentStatus(ctx context.Context, storeID, orderID uint64, rawStatus string) (*models.Order, error) {
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	current, err := os.repo.GetOrderForStore(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, models.ErrTerminalStatus
	}
	if current.Status == status {
		return current, nil
	}

	order, err := os.repo.UpdateFulfillmentStatus(ctx, storeID, orderID, status)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("order status updated",
		zap.String("publicId", order.PublicID),
		zap.String("status", string(order.Status)))

	event := models.Event{
		Type:          models.EventOrderUpdate,
		PublicID:      order.PublicID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	}
	os.hub.Publish(order.PublicID, event)
	os.hub.Publish(hub.StoreKey(order.StoreID), event)

	return order, nil
}
