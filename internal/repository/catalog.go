package repository

import (
	"context"
	"errors"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/cardapioweb/cardapio/internal/repository/postgres"
	"github.com/jackc/pgx/v5"
)

// postgres unique_violation
const pgErrUniqueViolationCode = "23505"

const (
	selectActiveProductQuery = `
						SELECT id, store_id, category_id, name, description, price, image_url, active FROM products
						WHERE id = $1 AND store_id = $2 AND active
`
	selectOptionQuery = `
						SELECT id, store_id, group_id, name, price FROM options
						WHERE id = $1 AND store_id = $2
`
	selectActiveCouponQuery = `
						SELECT id, store_id, code, type, value, active, expires_at FROM coupons
						WHERE store_id = $1 AND code = $2 AND active
						  AND (expires_at IS NULL OR expires_at > now())
`
	selectCategoriesQuery = `
						SELECT id, store_id, name, position FROM categories
						WHERE store_id = $1
						ORDER BY position
`
	selectActiveProductsQuery = `
						SELECT id, store_id, category_id, name, description, price, image_url, active FROM products
						WHERE store_id = $1 AND active
						ORDER BY id
`
	selectOptionGroupsQuery = `
						SELECT id, store_id, name, min, max, required FROM option_groups
						WHERE store_id = $1
						ORDER BY id
`
	selectOptionsByStoreQuery = `
						SELECT id, store_id, group_id, name, price FROM options
						WHERE store_id = $1
						ORDER BY id
`
)

// CatalogRepository implements read-only catalog access over postgres
type CatalogRepository struct {
	db *postgres.DB
}

// NewCatalogRepository creates new CatalogRepository instance
func NewCatalogRepository(db *postgres.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetActiveProduct returns an active product of the store
func (cr *CatalogRepository) GetActiveProduct(ctx context.Context, storeID, productID uint64) (*models.Product, error) {
	product := models.Product{}
	err := cr.db.QueryRow(ctx, selectActiveProductQuery, productID, storeID).
		Scan(&product.ID, &product.StoreID, &product.CategoryID, &product.Name,
			&product.Description, &product.Price, &product.ImageURL, &product.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetOption returns an option of the store
func (cr *CatalogRepository) GetOption(ctx context.Context, storeID, optionID uint64) (*models.Option, error) {
	option := models.Option{}
	err := cr.db.QueryRow(ctx, selectOptionQuery, optionID, storeID).
		Scan(&option.ID, &option.StoreID, &option.GroupID, &option.Name, &option.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &option, nil
}

// GetActiveCoupon returns an active, non-expired coupon by code
func (cr *CatalogRepository) GetActiveCoupon(ctx context.Context, storeID uint64, code string) (*models.Coupon, error) {
	coupon := models.Coupon{}
	err := cr.db.QueryRow(ctx, selectActiveCouponQuery, storeID, code).
		Scan(&coupon.ID, &coupon.StoreID, &coupon.Code, &coupon.Type, &coupon.Value, &coupon.Active, &coupon.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

// ListCategories returns the store's categories ordered by position
func (cr *CatalogRepository) ListCategories(ctx context.Context, storeID uint64) ([]models.Category, error) {
	rows, err := cr.db.Query(ctx, selectCategoriesQuery, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		category := models.Category{}
		if err := rows.Scan(&category.ID, &category.StoreID, &category.Name, &category.Position); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// ListActiveProducts returns the store's active products
func (cr *CatalogRepository) ListActiveProducts(ctx context.Context, storeID uint64) ([]models.Product, error) {
	rows, err := cr.db.Query(ctx, selectActiveProductsQuery, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product := models.Product{}
		if err := rows.Scan(&product.ID, &product.StoreID, &product.CategoryID, &product.Name,
			&product.Description, &product.Price, &product.ImageURL, &product.Active); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// ListOptionGroups returns the store's option groups with their options
func (cr *CatalogRepository) ListOptionGroups(ctx context.Context, storeID uint64) ([]models.OptionGroup, error) {
	rows, err := cr.db.Query(ctx, selectOptionGroupsQuery, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []models.OptionGroup{}
	for rows.Next() {
		group := models.OptionGroup{}
		if err := rows.Scan(&group.ID, &group.StoreID, &group.Name, &group.Min, &group.Max, &group.Required); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := cr.db.Query(ctx, selectOptionsByStoreQuery, storeID)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	byGroup := map[uint64][]models.Option{}
	for optRows.Next() {
		option := models.Option{}
		if err := optRows.Scan(&option.ID, &option.StoreID, &option.GroupID, &option.Name, &option.Price); err != nil {
			return nil, err
		}
		byGroup[option.GroupID] = append(byGroup[option.GroupID], option)
	}
	if err := optRows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		groups[i].Options = byGroup[groups[i].ID]
	}

	return groups, nil
}
