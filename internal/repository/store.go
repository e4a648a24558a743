package repository

import (
	"context"
	"errors"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/cardapioweb/cardapio/internal/repository/postgres"
	"github.com/jackc/pgx/v5"
)

const (
	selectStoreBySlugQuery = `
						SELECT id, name, slug, logo_url, theme_primary, delivery_fee, packaging_fee, created_at FROM stores
						WHERE slug = $1
`
	selectStoreByIDQuery = `
						SELECT id, name, slug, logo_url, theme_primary, delivery_fee, packaging_fee, created_at FROM stores
						WHERE id = $1
`
	selectActiveTableQuery = `
						SELECT id, store_id, name, active FROM tables
						WHERE id = $1 AND store_id = $2 AND active
`
)

// StoreRepository implements store and table access over postgres
type StoreRepository struct {
	db *postgres.DB
}

// NewStoreRepository creates new StoreRepository instance
func NewStoreRepository(db *postgres.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// GetStoreBySlug returns store by its URL slug
func (sr *StoreRepository) GetStoreBySlug(ctx context.Context, slug string) (*models.Store, error) {
	return sr.scanStore(ctx, selectStoreBySlugQuery, slug)
}

// GetStoreByID returns store by id
func (sr *StoreRepository) GetStoreByID(ctx context.Context, id uint64) (*models.Store, error) {
	return sr.scanStore(ctx, selectStoreByIDQuery, id)
}

// GetActiveTable returns an active table belonging to the store
func (sr *StoreRepository) GetActiveTable(ctx context.Context, storeID, tableID uint64) (*models.Table, error) {
	table := models.Table{}
	err := sr.db.QueryRow(ctx, selectActiveTableQuery, tableID, storeID).
		Scan(&table.ID, &table.StoreID, &table.Name, &table.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &table, nil
}

func (sr *StoreRepository) scanStore(ctx context.Context, query string, args ...any) (*models.Store, error) {
	store := models.Store{}
	err := sr.db.QueryRow(ctx, query, args...).
		Scan(&store.ID, &store.Name, &store.Slug, &store.LogoURL, &store.ThemePrimary,
			&store.DeliveryFee, &store.PackagingFee, &store.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &store, nil
}
