package service

import (
	"context"
	"fmt"

	"github.com/cardapioweb/cardapio/internal/models"
)

// CatalogBrowseRepository is interface for public menu reads
type CatalogBrowseRepository interface {
	// ListCategories returns the store's categories ordered by position
	ListCategories(ctx context.Context, storeID uint64) ([]models.Category, error)
	// ListActiveProducts returns the store's active products
	ListActiveProducts(ctx context.Context, storeID uint64) ([]models.Product, error)
	// ListOptionGroups returns the store's option groups with their options
	ListOptionGroups(ctx context.Context, storeID uint64) ([]models.OptionGroup, error)
}

// CatalogService serves the public menu of a store
type CatalogService struct {
	stores  StoreRepository
	catalog CatalogBrowseRepository
}

// NewCatalogService creates new CatalogService instance
func NewCatalogService(stores StoreRepository, catalog CatalogBrowseRepository) *CatalogService {
	return &CatalogService{stores: stores, catalog: catalog}
}

// Menu returns the store's full public catalog
func (cs *CatalogService) Menu(ctx context.Context, slug string) (*models.Menu, error) {
	store, err := cs.stores.GetStoreBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	categories, err := cs.catalog.ListCategories(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	products, err := cs.catalog.ListActiveProducts(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	groups, err := cs.catalog.ListOptionGroups(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("list option groups: %w", err)
	}

	return &models.Menu{
		Store:        store,
		Categories:   categories,
		Products:     products,
		OptionGroups: groups,
	}, nil
}
