package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/cardapioweb/cardapio/internal/repository/postgres"
	"github.com/jackc/pgx/v5"
)

const (
	insertOrderQuery = `
						INSERT INTO orders (public_id, store_id, type, table_id, customer_name, customer_phone, address,
											subtotal, delivery_fee, packaging_fee, discount, total, payment_status, status)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
						RETURNING id, created_at, updated_at
`
	insertOrderItemQuery = `
						INSERT INTO order_items (order_id, product_id, name, unit_price, qty)
						VALUES ($1, $2, $3, $4, $5)
						RETURNING id
`
	insertItemOptionQuery = `
						INSERT INTO order_item_options (order_item_id, option_id, name, price)
						VALUES ($1, $2, $3, $4)
						RETURNING id
`
	selectOrderColumns = `id, public_id, store_id, type, table_id, customer_name, customer_phone, address,
						  subtotal, delivery_fee, packaging_fee, discount, total, payment_status, status,
						  payment_provider, payment_ref, created_at, updated_at`

	selectItemsByOrderIDQuery = `
						SELECT id, order_id, product_id, name, unit_price, qty FROM order_items
						WHERE order_id = $1
						ORDER BY id
`
	selectOptionsByItemIDQuery = `
						SELECT id, order_item_id, option_id, name, price FROM order_item_options
						WHERE order_item_id = $1
						ORDER BY id
`
	updateFulfillmentQuery = `
						UPDATE orders
						SET status = $1, updated_at = now()
						WHERE id = $2 AND store_id = $3
						RETURNING ` + selectOrderColumns + `
`
	updateOrderPaymentQuery = `
						UPDATE orders
						SET payment_status = $1,
							status = CASE WHEN status = 'received' AND $1 = 'paid' THEN $2 ELSE status END,
							payment_provider = $3, payment_ref = $4, updated_at = now()
						WHERE id = $5 AND payment_status = $6
						RETURNING status
`
	updatePaymentRefQuery = `
						UPDATE orders
						SET payment_provider = $1, payment_ref = $2, updated_at = now()
						WHERE id = $3
`
)

// OrderRepository implements order persistence over postgres
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts the order header, its line items and their chosen
// options as a single transaction. Partial orders are never observable.
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	tx, err := or.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, insertOrderQuery,
		order.PublicID, order.StoreID, order.Type, order.TableID,
		order.CustomerName, order.CustomerPhone, order.Address,
		order.Subtotal, order.DeliveryFee, order.PackagingFee, order.Discount, order.Total,
		order.PaymentStatus, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return nil, models.ErrConflictData
		}
		return nil, err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRow(ctx, insertOrderItemQuery,
			order.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity,
		).Scan(&item.ID); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}

		for j := range item.Options {
			option := &item.Options[j]
			option.OrderItemID = item.ID
			if err := tx.QueryRow(ctx, insertItemOptionQuery,
				item.ID, option.OptionID, option.Name, option.Price,
			).Scan(&option.ID); err != nil {
				return nil, fmt.Errorf("insert item option: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return order, nil
}

// GetOrderByPublicID returns the order with items and options by public token
func (or *OrderRepository) GetOrderByPublicID(ctx context.Context, publicID string) (*models.Order, error) {
	order, err := or.scanOrder(ctx, `SELECT `+selectOrderColumns+` FROM orders WHERE public_id = $1`, publicID)
	if err != nil {
		return nil, err
	}

	if err := or.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrderForStore returns the order header scoped by store. An order that
// belongs to another store is reported as not found.
func (or *OrderRepository) GetOrderForStore(ctx context.Context, storeID, orderID uint64) (*models.Order, error) {
	return or.scanOrder(ctx, `SELECT `+selectOrderColumns+` FROM orders WHERE id = $1 AND store_id = $2`, orderID, storeID)
}

// ListOpenOrders returns the store's non-terminal orders, oldest first, with
// their items. This is the point-in-time snapshot the kitchen display fetches
// before attaching to the store stream.
func (or *OrderRepository) ListOpenOrders(ctx context.Context, storeID uint64) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, `
						SELECT `+selectOrderColumns+` FROM orders
						WHERE store_id = $1 AND status NOT IN ('delivered', 'cancelled')
						ORDER BY created_at`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := or.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// UpdateFulfillmentStatus rewrites the fulfillment status, scoped by store
func (or *OrderRepository) UpdateFulfillmentStatus(ctx context.Context, storeID, orderID uint64, status models.Status) (*models.Order, error) {
	return or.scanOrder(ctx, updateFulfillmentQuery, status, orderID, storeID)
}

// UpdateOrderPayment applies a reconciled payment update only when the row
// still carries prev. No row back means a concurrent reconciler won the race
// or the update was already applied. The fulfillment advance is guarded in
// the statement itself: a staff change committed between the caller's read
// and this write survives, the order never moves backward. Returns the
// fulfillment status the row ended up with.
func (or *OrderRepository) UpdateOrderPayment(ctx context.Context, orderID uint64, upd models.PaymentUpdate, prev models.PaymentStatus) (models.Status, bool, error) {
	var status models.Status
	err := or.db.QueryRow(ctx, updateOrderPaymentQuery,
		upd.PaymentStatus, upd.Status, upd.Provider, upd.Ref, orderID, prev).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return status, true, nil
}

// SetOrderPaymentRef records the provider and its payment id on the order
func (or *OrderRepository) SetOrderPaymentRef(ctx context.Context, orderID uint64, provider, ref string) error {
	cmd, err := or.db.Exec(ctx, updatePaymentRefQuery, provider, ref, orderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}
	return nil
}

// ListStalePendingPayments returns orders still pending with a payment ref
// that have not moved since the cutoff. These get re-reconciled by the poller.
func (or *OrderRepository) ListStalePendingPayments(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, `
						SELECT `+selectOrderColumns+` FROM orders
						WHERE payment_status = 'pending' AND payment_ref <> '' AND updated_at < $1
						ORDER BY updated_at`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (or *OrderRepository) scanOrder(ctx context.Context, query string, args ...any) (*models.Order, error) {
	order, err := scanOrderRow(or.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return order, nil
}

func scanOrderRow(row pgx.Row) (*models.Order, error) {
	order := models.Order{}
	err := row.Scan(&order.ID, &order.PublicID, &order.StoreID, &order.Type, &order.TableID,
		&order.CustomerName, &order.CustomerPhone, &order.Address,
		&order.Subtotal, &order.DeliveryFee, &order.PackagingFee, &order.Discount, &order.Total,
		&order.PaymentStatus, &order.Status, &order.PaymentProvider, &order.PaymentRef,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (or *OrderRepository) loadItems(ctx context.Context, order *models.Order) error {
	rows, err := or.db.Query(ctx, selectItemsByOrderIDQuery, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.Items = []models.OrderItem{}
	for rows.Next() {
		item := models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		optRows, err := or.db.Query(ctx, selectOptionsByItemIDQuery, item.ID)
		if err != nil {
			return err
		}
		for optRows.Next() {
			option := models.ItemOption{}
			if err := optRows.Scan(&option.ID, &option.OrderItemID, &option.OptionID, &option.Name, &option.Price); err != nil {
				optRows.Close()
				return err
			}
			item.Options = append(item.Options, option)
		}
		optRows.Close()
		if err := optRows.Err(); err != nil {
			return err
		}
	}

	return nil
}
