package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardapioweb/cardapio/internal/models"
)

// CatalogRepository is the read-only catalog lookup the engine prices from.
// The engine never trusts a client-submitted price.
type CatalogRepository interface {
	// GetActiveProduct returns an active product of the store
	GetActiveProduct(ctx context.Context, storeID, productID uint64) (*models.Product, error)
	// GetOption returns an option of the store
	GetOption(ctx context.Context, storeID, optionID uint64) (*models.Option, error)
	// GetActiveCoupon returns an active, non-expired coupon by code
	GetActiveCoupon(ctx context.Context, storeID uint64, code string) (*models.Coupon, error)
}

// LineRequest is one client cart line: ids and quantity only, never prices.
type LineRequest struct {
	ProductID uint64   `json:"productId"`
	Quantity  int32    `json:"qty"`
	OptionIDs []uint64 `json:"optionIds"`
}

// Request is a cart to be priced.
type Request struct {
	Type       models.OrderType
	Items      []LineRequest
	CouponCode string
}

// Engine recomputes order totals from trusted server-side catalog data. All
// arithmetic is in integer cents. Price has no side effects, so the same call
// serves both the quote preview and the authoritative checkout.
type Engine struct {
	catalog CatalogRepository
}

// NewEngine creates new Engine instance
func NewEngine(catalog CatalogRepository) *Engine {
	return &Engine{catalog: catalog}
}

// Price prices the cart against the store's catalog. Unknown or inactive
// product and option ids are dropped silently rather than failing the whole
// cart; a stale menu tab should degrade, not brick checkout.
func (e *Engine) Price(ctx context.Context, store *models.Store, req Request) (*models.PricedOrder, error) {
	priced := models.PricedOrder{
		StoreID:      store.ID,
		Type:         req.Type,
		PackagingFee: store.PackagingFee,
	}
	if req.Type == models.OrderTypeDelivery {
		priced.DeliveryFee = store.DeliveryFee
	}

	for _, line := range req.Items {
		product, err := e.catalog.GetActiveProduct(ctx, store.ID, line.ProductID)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				continue
			}
			return nil, fmt.Errorf("get product %d: %w", line.ProductID, err)
		}

		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}

		item := models.PricedItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  qty,
		}

		unit := product.Price
		for _, optionID := range line.OptionIDs {
			option, err := e.catalog.GetOption(ctx, store.ID, optionID)
			if err != nil {
				if errors.Is(err, models.ErrDataNotFound) {
					continue
				}
				return nil, fmt.Errorf("get option %d: %w", optionID, err)
			}
			item.Options = append(item.Options, models.PricedOption{
				OptionID: option.ID,
				Name:     option.Name,
				Price:    option.Price,
			})
			unit += option.Price
		}

		priced.Items = append(priced.Items, item)
		priced.Subtotal += unit * int64(qty)
	}

	priced.Discount = e.discount(ctx, store.ID, req.CouponCode, priced.Subtotal)

	total := priced.Subtotal - priced.Discount + priced.DeliveryFee + priced.PackagingFee
	if total < 0 {
		total = 0
	}
	priced.Total = total

	return &priced, nil
}

// discount resolves the coupon code. An absent or invalid code degrades to no
// discount; a bad coupon is never a checkout failure.
func (e *Engine) discount(ctx context.Context, storeID uint64, code string, subtotal int64) int64 {
	if code == "" {
		return 0
	}

	coupon, err := e.catalog.GetActiveCoupon(ctx, storeID, code)
	if err != nil {
		return 0
	}

	switch coupon.Type {
	case models.CouponPercentage:
		// round half up, still integer cents
		return (subtotal*coupon.Value + 50) / 100
	case models.CouponFixed:
		if coupon.Value > subtotal {
			return subtotal
		}
		return coupon.Value
	}

	return 0
}
