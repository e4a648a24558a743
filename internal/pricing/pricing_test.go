package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog serves products, options and coupons from maps.
type fakeCatalog struct {
	products map[uint64]*models.Product
	options  map[uint64]*models.Option
	coupons  map[string]*models.Coupon
}

func (f *fakeCatalog) GetActiveProduct(_ context.Context, storeID, productID uint64) (*models.Product, error) {
	p, ok := f.products[productID]
	if !ok || !p.Active || p.StoreID != storeID {
		return nil, models.ErrDataNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetOption(_ context.Context, storeID, optionID uint64) (*models.Option, error) {
	o, ok := f.options[optionID]
	if !ok || o.StoreID != storeID {
		return nil, models.ErrDataNotFound
	}
	return o, nil
}

func (f *fakeCatalog) GetActiveCoupon(_ context.Context, storeID uint64, code string) (*models.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok || !c.Active || c.StoreID != storeID {
		return nil, models.ErrDataNotFound
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now()) {
		return nil, models.ErrDataNotFound
	}
	return c, nil
}

func testStore() *models.Store {
	return &models.Store{ID: 1, Slug: "burgers", DeliveryFee: 800, PackagingFee: 300}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[uint64]*models.Product{
			10: {ID: 10, StoreID: 1, Name: "Burger", Price: 2800, Active: true},
			11: {ID: 11, StoreID: 1, Name: "Fries", Price: 1200, Active: true},
			12: {ID: 12, StoreID: 1, Name: "Old Burger", Price: 9900, Active: false},
		},
		options: map[uint64]*models.Option{
			20: {ID: 20, StoreID: 1, GroupID: 1, Name: "Extra cheese", Price: 400},
			21: {ID: 21, StoreID: 1, GroupID: 1, Name: "Bacon", Price: 600},
			22: {ID: 22, StoreID: 2, GroupID: 9, Name: "Other store option", Price: 100},
		},
		coupons: map[string]*models.Coupon{
			"PROMO10": {ID: 1, StoreID: 1, Code: "PROMO10", Type: models.CouponPercentage, Value: 10, Active: true},
			"OFF500":  {ID: 2, StoreID: 1, Code: "OFF500", Type: models.CouponFixed, Value: 500, Active: true},
			"BIG":     {ID: 3, StoreID: 1, Code: "BIG", Type: models.CouponFixed, Value: 100000, Active: true},
		},
	}
}

func TestEngine_Price(t *testing.T) {
	engine := NewEngine(testCatalog())
	store := testStore()

	tests := []struct {
		name         string
		req          Request
		wantSubtotal int64
		wantDelivery int64
		wantDiscount int64
		wantTotal    int64
		wantLines    int
	}{
		{
			name: "delivery_with_percentage_coupon",
			req: Request{
				Type:       models.OrderTypeDelivery,
				Items:      []LineRequest{{ProductID: 10, Quantity: 1}},
				CouponCode: "PROMO10",
			},
			wantSubtotal: 2800,
			wantDelivery: 800,
			wantDiscount: 280,
			wantTotal:    3620,
			wantLines:    1,
		},
		{
			name: "pickup_has_no_delivery_fee",
			req: Request{
				Type:  models.OrderTypePickup,
				Items: []LineRequest{{ProductID: 10, Quantity: 2}},
			},
			wantSubtotal: 5600,
			wantDelivery: 0,
			wantDiscount: 0,
			wantTotal:    5900,
			wantLines:    1,
		},
		{
			name: "options_multiply_with_quantity",
			req: Request{
				Type:  models.OrderTypePickup,
				Items: []LineRequest{{ProductID: 10, Quantity: 2, OptionIDs: []uint64{20, 21}}},
			},
			// (2800+400+600)*2
			wantSubtotal: 7600,
			wantDiscount: 0,
			wantTotal:    7900,
			wantLines:    1,
		},
		{
			name: "fixed_coupon_capped_by_subtotal",
			req: Request{
				Type:       models.OrderTypePickup,
				Items:      []LineRequest{{ProductID: 11, Quantity: 1}},
				CouponCode: "BIG",
			},
			wantSubtotal: 1200,
			wantDiscount: 1200,
			wantTotal:    300,
			wantLines:    1,
		},
		{
			name: "fixed_coupon",
			req: Request{
				Type:       models.OrderTypePickup,
				Items:      []LineRequest{{ProductID: 11, Quantity: 1}},
				CouponCode: "OFF500",
			},
			wantSubtotal: 1200,
			wantDiscount: 500,
			wantTotal:    1000,
			wantLines:    1,
		},
		{
			name: "unknown_coupon_degrades_to_no_discount",
			req: Request{
				Type:       models.OrderTypePickup,
				Items:      []LineRequest{{ProductID: 11, Quantity: 1}},
				CouponCode: "NOPE",
			},
			wantSubtotal: 1200,
			wantDiscount: 0,
			wantTotal:    1500,
			wantLines:    1,
		},
		{
			name: "unknown_and_inactive_products_are_dropped",
			req: Request{
				Type: models.OrderTypePickup,
				Items: []LineRequest{
					{ProductID: 10, Quantity: 1},
					{ProductID: 12, Quantity: 1},
					{ProductID: 999, Quantity: 1},
				},
			},
			wantSubtotal: 2800,
			wantTotal:    3100,
			wantLines:    1,
		},
		{
			name: "foreign_and_unknown_options_are_dropped",
			req: Request{
				Type:  models.OrderTypePickup,
				Items: []LineRequest{{ProductID: 10, Quantity: 1, OptionIDs: []uint64{20, 22, 999}}},
			},
			wantSubtotal: 3200,
			wantTotal:    3500,
			wantLines:    1,
		},
		{
			name: "zero_quantity_is_clamped_to_one",
			req: Request{
				Type:  models.OrderTypePickup,
				Items: []LineRequest{{ProductID: 11, Quantity: 0}},
			},
			wantSubtotal: 1200,
			wantTotal:    1500,
			wantLines:    1,
		},
		{
			name: "empty_cart_prices_to_fees_only",
			req: Request{
				Type:  models.OrderTypePickup,
				Items: []LineRequest{{ProductID: 999, Quantity: 1}},
			},
			wantSubtotal: 0,
			wantTotal:    300,
			wantLines:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Price(context.Background(), store, tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSubtotal, got.Subtotal)
			assert.Equal(t, tt.wantDelivery, got.DeliveryFee)
			assert.Equal(t, int64(300), got.PackagingFee)
			assert.Equal(t, tt.wantDiscount, got.Discount)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Len(t, got.Items, tt.wantLines)

			assert.GreaterOrEqual(t, got.Total, int64(0))
			assert.GreaterOrEqual(t, got.Discount, int64(0))
		})
	}
}

func TestEngine_Price_TotalNeverNegative(t *testing.T) {
	catalog := testCatalog()
	// 150% "discount" must clamp the total at zero, not go below
	catalog.coupons["MEGA"] = &models.Coupon{ID: 9, StoreID: 1, Code: "MEGA", Type: models.CouponPercentage, Value: 150, Active: true}
	engine := NewEngine(catalog)
	store := &models.Store{ID: 1, DeliveryFee: 0, PackagingFee: 0}

	got, err := engine.Price(context.Background(), store, Request{
		Type:       models.OrderTypePickup,
		Items:      []LineRequest{{ProductID: 10, Quantity: 1}},
		CouponCode: "MEGA",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Total)
}

func TestEngine_Price_ExpiredCouponIgnored(t *testing.T) {
	catalog := testCatalog()
	past := time.Now().Add(-time.Hour)
	catalog.coupons["OLD"] = &models.Coupon{ID: 8, StoreID: 1, Code: "OLD", Type: models.CouponPercentage, Value: 50, Active: true, ExpiresAt: &past}
	engine := NewEngine(catalog)

	got, err := engine.Price(context.Background(), testStore(), Request{
		Type:       models.OrderTypePickup,
		Items:      []LineRequest{{ProductID: 10, Quantity: 1}},
		CouponCode: "OLD",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Discount)
}

func TestEngine_Price_PureAcrossCalls(t *testing.T) {
	engine := NewEngine(testCatalog())
	store := testStore()
	req := Request{
		Type:       models.OrderTypeDelivery,
		Items:      []LineRequest{{ProductID: 10, Quantity: 1, OptionIDs: []uint64{20}}},
		CouponCode: "PROMO10",
	}

	quote, err := engine.Price(context.Background(), store, req)
	require.NoError(t, err)
	authoritative, err := engine.Price(context.Background(), store, req)
	require.NoError(t, err)

	assert.Equal(t, quote, authoritative)
}
