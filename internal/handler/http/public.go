package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/cardapioweb/cardapio/internal/pricing"
	"github.com/cardapioweb/cardapio/internal/service"
	"github.com/go-chi/chi/v5"
)

// CatalogService serves the public menu of a store
type CatalogService interface {
	Menu(ctx context.Context, slug string) (*models.Menu, error)
}

// OrderService prices, creates and reads orders
type OrderService interface {
	// Quote prices the cart without persisting anything
	Quote(ctx context.Context, slug string, req service.CheckoutRequest) (*models.PricedOrder, error)
	// Checkout creates the order from a repriced cart
	Checkout(ctx context.Context, slug string, req service.CheckoutRequest) (*models.Order, error)
	// GetOrder returns the order with its store by public token
	GetOrder(ctx context.Context, publicID string) (*models.Order, *models.Store, error)
}

// PublicHandler represents HTTP handler for customer-facing requests
type PublicHandler struct {
	catalog CatalogService
	orders  OrderService
}

// NewPublicHandler creates new PublicHandler instance
func NewPublicHandler(catalog CatalogService, orders OrderService) *PublicHandler {
	return &PublicHandler{catalog: catalog, orders: orders}
}

type storeResponse struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	LogoURL      string `json:"logoUrl,omitempty"`
	ThemePrimary string `json:"themePrimary,omitempty"`
	DeliveryFee  int64  `json:"deliveryFee"`
	PackagingFee int64  `json:"packagingFee"`
}

type categoryResponse struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Position int32  `json:"position"`
}

type productResponse struct {
	ID          uint64 `json:"id"`
	CategoryID  uint64 `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type optionResponse struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type optionGroupResponse struct {
	ID       uint64           `json:"id"`
	Name     string           `json:"name"`
	Min      int32            `json:"min"`
	Max      int32            `json:"max"`
	Required bool             `json:"required"`
	Options  []optionResponse `json:"options"`
}

type menuResponse struct {
	Store        storeResponse         `json:"store"`
	Categories   []categoryResponse    `json:"categories"`
	Products     []productResponse     `json:"products"`
	OptionGroups []optionGroupResponse `json:"optionGroups"`
}

// Menu serves the public catalog of a store
// 200 — catalog returned
// 404 — unknown store slug
// 500 — internal error
func (ph *PublicHandler) Menu() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		menu, err := ph.catalog.Menu(r.Context(), chi.URLParam(r, "storeSlug"))
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				http.Error(w, "store not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := menuResponse{
			Store: storeResponse{
				ID:           menu.Store.ID,
				Name:         menu.Store.Name,
				Slug:         menu.Store.Slug,
				LogoURL:      menu.Store.LogoURL,
				ThemePrimary: menu.Store.ThemePrimary,
				DeliveryFee:  menu.Store.DeliveryFee,
				PackagingFee: menu.Store.PackagingFee,
			},
			Categories:   []categoryResponse{},
			Products:     []productResponse{},
			OptionGroups: []optionGroupResponse{},
		}
		for _, c := range menu.Categories {
			resp.Categories = append(resp.Categories, categoryResponse{ID: c.ID, Name: c.Name, Position: c.Position})
		}
		for _, p := range menu.Products {
			resp.Products = append(resp.Products, productResponse{
				ID: p.ID, CategoryID: p.CategoryID, Name: p.Name,
				Description: p.Description, Price: p.Price, ImageURL: p.ImageURL,
			})
		}
		for _, g := range menu.OptionGroups {
			group := optionGroupResponse{
				ID: g.ID, Name: g.Name, Min: g.Min, Max: g.Max, Required: g.Required,
				Options: []optionResponse{},
			}
			for _, o := range g.Options {
				group.Options = append(group.Options, optionResponse{ID: o.ID, Name: o.Name, Price: o.Price})
			}
			resp.OptionGroups = append(resp.OptionGroups, group)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type checkoutItemRequest struct {
	ProductID uint64   `json:"productId"`
	Qty       int32    `json:"qty"`
	OptionIDs []uint64 `json:"optionIds"`
}

type checkoutRequest struct {
	Type          string                `json:"type"`
	TableID       uint64                `json:"tableId"`
	CustomerName  string                `json:"customerName"`
	CustomerPhone string                `json:"customerPhone"`
	Address       json.RawMessage       `json:"address"`
	CouponCode    string                `json:"couponCode"`
	Items         []checkoutItemRequest `json:"items"`
}

func (req checkoutRequest) toService() service.CheckoutRequest {
	out := service.CheckoutRequest{
		Type:          req.Type,
		TableID:       req.TableID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Address:       req.Address,
		CouponCode:    req.CouponCode,
	}
	for _, item := range req.Items {
		out.Items = append(out.Items, pricing.LineRequest{
			ProductID: item.ProductID,
			Quantity:  item.Qty,
			OptionIDs: item.OptionIDs,
		})
	}
	return out
}

type quoteResponse struct {
	Subtotal     int64 `json:"subtotal"`
	DeliveryFee  int64 `json:"deliveryFee"`
	PackagingFee int64 `json:"packagingFee"`
	Discount     int64 `json:"discount"`
	Total        int64 `json:"total"`
}

// Quote prices a cart as a preview
// 200 — totals returned
// 400 — malformed request or unknown order type
// 404 — unknown store slug
// 500 — internal error
func (ph *PublicHandler) Quote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		priced, err := ph.orders.Quote(r.Context(), chi.URLParam(r, "storeSlug"), req.toService())
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDataNotFound):
				http.Error(w, "store not found", http.StatusNotFound)
			case errors.Is(err, models.ErrInvalidOrderType):
				http.Error(w, "unknown order type", http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, quoteResponse{
			Subtotal:     priced.Subtotal,
			DeliveryFee:  priced.DeliveryFee,
			PackagingFee: priced.PackagingFee,
			Discount:     priced.Discount,
			Total:        priced.Total,
		})
	}
}

type checkoutResponse struct {
	OrderPublicID string `json:"orderPublicId"`
	OrderID       uint64 `json:"orderId"`
}

// Checkout submits a cart and creates the order
// 201 — order created
// 400 — malformed request or unknown order type
// 404 — unknown store slug
// 422 — unavailable table or cart with no priceable items
// 500 — internal error
func (ph *PublicHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		order, err := ph.orders.Checkout(r.Context(), chi.URLParam(r, "storeSlug"), req.toService())
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDataNotFound):
				http.Error(w, "store not found", http.StatusNotFound)
			case errors.Is(err, models.ErrInvalidOrderType):
				http.Error(w, "unknown order type", http.StatusBadRequest)
			case errors.Is(err, models.ErrTableUnavailable):
				http.Error(w, "table is not available", http.StatusUnprocessableEntity)
			case errors.Is(err, models.ErrEmptyCart):
				http.Error(w, "cart has no priceable items", http.StatusUnprocessableEntity)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, checkoutResponse{
			OrderPublicID: order.PublicID,
			OrderID:       order.ID,
		})
	}
}

type orderDetailResponse struct {
	Order orderResponse `json:"order"`
	Store storeResponse `json:"store"`
}

// GetOrder serves the order tracking page data by public token
// 200 — order returned
// 404 — unknown order token
// 500 — internal error
func (ph *PublicHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, store, err := ph.orders.GetOrder(r.Context(), chi.URLParam(r, "publicId"))
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, orderDetailResponse{
			Order: newOrderResponse(order),
			Store: storeResponse{
				ID:           store.ID,
				Name:         store.Name,
				Slug:         store.Slug,
				LogoURL:      store.LogoURL,
				ThemePrimary: store.ThemePrimary,
			},
		})
	}
}

type itemOptionResponse struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type orderItemResponse struct {
	ProductID uint64               `json:"productId"`
	Name      string               `json:"name"`
	UnitPrice int64                `json:"unitPrice"`
	Qty       int32                `json:"qty"`
	Options   []itemOptionResponse `json:"options,omitempty"`
}

type orderResponse struct {
	ID              uint64              `json:"id"`
	PublicID        string              `json:"publicId"`
	StoreID         uint64              `json:"storeId"`
	Type            string              `json:"type"`
	TableID         *uint64             `json:"tableId,omitempty"`
	CustomerName    string              `json:"customerName,omitempty"`
	CustomerPhone   string              `json:"customerPhone,omitempty"`
	Address         json.RawMessage     `json:"address,omitempty"`
	Subtotal        int64               `json:"subtotal"`
	DeliveryFee     int64               `json:"deliveryFee"`
	PackagingFee    int64               `json:"packagingFee"`
	Discount        int64               `json:"discount"`
	Total           int64               `json:"total"`
	PaymentStatus   string              `json:"paymentStatus"`
	Status          string              `json:"status"`
	PaymentProvider string              `json:"paymentProvider,omitempty"`
	CreatedAt       string              `json:"createdAt"`
	Items           []orderItemResponse `json:"items"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:              order.ID,
		PublicID:        order.PublicID,
		StoreID:         order.StoreID,
		Type:            string(order.Type),
		TableID:         order.TableID,
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		Address:         order.Address,
		Subtotal:        order.Subtotal,
		DeliveryFee:     order.DeliveryFee,
		PackagingFee:    order.PackagingFee,
		Discount:        order.Discount,
		Total:           order.Total,
		PaymentStatus:   string(order.PaymentStatus),
		Status:          string(order.Status),
		PaymentProvider: order.PaymentProvider,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		Items:           []orderItemResponse{},
	}
	for _, item := range order.Items {
		line := orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Qty:       item.Quantity,
		}
		for _, option := range item.Options {
			line.Options = append(line.Options, itemOptionResponse{Name: option.Name, Price: option.Price})
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}

// writeJSON writes the response body; the status line is already out, so an
// encode failure can only mean the peer is gone.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
