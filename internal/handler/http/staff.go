package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cardapioweb/cardapio/internal/middleware"
	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/go-chi/chi/v5"
)

// AuthService authenticates staff accounts
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *models.StaffUser, error)
}

// StaffOrderService is the tenant-scoped order surface for kitchen staff
type StaffOrderService interface {
	// ListOpenOrders returns the store's non-terminal orders
	ListOpenOrders(ctx context.Context, storeID uint64) ([]models.Order, error)
	// SetFulfillmentStatus applies a staff status change
	SetFulfillmentStatus(ctx context.Context, storeID, orderID uint64, status string) (*models.Order, error)
}

// StaffHandler represents HTTP handler for staff-facing requests
type StaffHandler struct {
	auth   AuthService
	orders StaffOrderService
}

// NewStaffHandler creates new StaffHandler instance
func NewStaffHandler(auth AuthService, orders StaffOrderService) *StaffHandler {
	return &StaffHandler{auth: auth, orders: orders}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID      uint64 `json:"id"`
		Email   string `json:"email"`
		StoreID uint64 `json:"storeId"`
		Role    string `json:"role"`
	} `json:"user"`
}

// Login authenticates a staff account
// 200 — token issued, auth cookie set
// 400 — malformed request
// 401 — invalid credentials
// 500 — internal error
func (sh *StaffHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		token, user, err := sh.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, models.ErrInvalidCredentials) {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     "auth_token",
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		resp := loginResponse{Token: token}
		resp.User.ID = user.ID
		resp.User.Email = user.Email
		resp.User.StoreID = user.StoreID
		resp.User.Role = user.Role

		writeJSON(w, http.StatusOK, resp)
	}
}

// ListOrders returns the open-orders snapshot for the caller's store. The
// kitchen display fetches this before attaching to the store stream and
// tolerates duplicate events over the overlap.
// 200 — orders returned
// 401 — not authenticated
// 500 — internal error
func (sh *StaffHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := middleware.PayloadFromContext(r.Context())
		if !ok {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		orders, err := sh.orders.ListOpenOrders(r.Context(), payload.StoreID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := []orderResponse{}
		for i := range orders {
			resp = append(resp, newOrderResponse(&orders[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus applies a staff fulfillment status change, scoped to the
// caller's store
// 200 — order updated
// 400 — malformed request or order id
// 404 — order unknown or belongs to another store
// 409 — order already in a terminal status
// 422 — unknown target status
// 500 — internal error
func (sh *StaffHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := middleware.PayloadFromContext(r.Context())
		if !ok {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		orderID, err := strconv.ParseUint(chi.URLParam(r, "orderId"), 10, 64)
		if err != nil {
			http.Error(w, "bad order id", http.StatusBadRequest)
			return
		}

		var req statusUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		order, err := sh.orders.SetFulfillmentStatus(r.Context(), payload.StoreID, orderID, req.Status)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidStatus):
				http.Error(w, "unknown status", http.StatusUnprocessableEntity)
			case errors.Is(err, models.ErrTerminalStatus):
				http.Error(w, "order is in a terminal status", http.StatusConflict)
			case errors.Is(err, models.ErrDataNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order))
	}
}
