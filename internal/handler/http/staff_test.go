package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cardapioweb/cardapio/internal/handler/http/mocks"
	"github.com/cardapioweb/cardapio/internal/middleware"
	"github.com/cardapioweb/cardapio/internal/models"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staffRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	ctx := middleware.WithPayload(req.Context(), &models.TokenPayload{UserID: 3, StoreID: 7, Email: "chef@burgers.test"})
	return req.WithContext(ctx)
}

func TestStaffHandler_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		body       string
		setupMock  func(m *mocks.MockAuthService)
		wantStatus int
	}{
		{
			name: "valid credentials",
			body: `{"email":"chef@burgers.test","password":"s3cret"}`,
			setupMock: func(m *mocks.MockAuthService) {
				m.EXPECT().Login(gomock.Any(), "chef@burgers.test", "s3cret").
					Return("signed-token", &models.StaffUser{ID: 3, StoreID: 7, Email: "chef@burgers.test", Role: "admin"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "wrong password",
			body: `{"email":"chef@burgers.test","password":"wrong"}`,
			setupMock: func(m *mocks.MockAuthService) {
				m.EXPECT().Login(gomock.Any(), "chef@burgers.test", "wrong").
					Return("", nil, models.ErrInvalidCredentials)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing fields",
			body:       `{"email":"chef@burgers.test"}`,
			setupMock:  func(m *mocks.MockAuthService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `not json`,
			setupMock:  func(m *mocks.MockAuthService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := mocks.NewMockAuthService(ctrl)
			tt.setupMock(mockAuth)

			sh := NewStaffHandler(mockAuth, mocks.NewMockStaffOrderService(ctrl))

			req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			sh.Login().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				var resp loginResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "signed-token", resp.Token)
				assert.Equal(t, uint64(7), resp.User.StoreID)

				cookies := rec.Result().Cookies()
				require.Len(t, cookies, 1)
				assert.Equal(t, "auth_token", cookies[0].Name)
				assert.Equal(t, "signed-token", cookies[0].Value)
				assert.True(t, cookies[0].HttpOnly)
			}
		})
	}
}

func TestStaffHandler_ListOrders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("returns store orders", func(t *testing.T) {
		mockOrders := mocks.NewMockStaffOrderService(ctrl)
		mockOrders.EXPECT().ListOpenOrders(gomock.Any(), uint64(7)).Return([]models.Order{
			{ID: 1, PublicID: "tok-1", StoreID: 7, Status: models.StatusReceived},
			{ID: 2, PublicID: "tok-2", StoreID: 7, Status: models.StatusInKitchen},
		}, nil)

		sh := NewStaffHandler(mocks.NewMockAuthService(ctrl), mockOrders)
		rec := httptest.NewRecorder()

		sh.ListOrders().ServeHTTP(rec, staffRequest(http.MethodGet, "/admin/orders", ""))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp []orderResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp, 2)
		assert.Equal(t, "tok-1", resp[0].PublicID)
	})

	t.Run("missing auth payload", func(t *testing.T) {
		sh := NewStaffHandler(mocks.NewMockAuthService(ctrl), mocks.NewMockStaffOrderService(ctrl))
		rec := httptest.NewRecorder()

		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		sh.ListOrders().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestStaffHandler_UpdateOrderStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		orderID    string
		body       string
		setupMock  func(m *mocks.MockStaffOrderService)
		wantStatus int
	}{
		{
			name:    "status updated",
			orderID: "42",
			body:    `{"status":"in_kitchen"}`,
			setupMock: func(m *mocks.MockStaffOrderService) {
				m.EXPECT().SetFulfillmentStatus(gomock.Any(), uint64(7), uint64(42), "in_kitchen").
					Return(&models.Order{ID: 42, PublicID: "tok-42", StoreID: 7, Status: models.StatusInKitchen}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad order id",
			orderID:    "not-a-number",
			body:       `{"status":"ready"}`,
			setupMock:  func(m *mocks.MockStaffOrderService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:    "unknown status",
			orderID: "42",
			body:    `{"status":"vaporized"}`,
			setupMock: func(m *mocks.MockStaffOrderService) {
				m.EXPECT().SetFulfillmentStatus(gomock.Any(), uint64(7), uint64(42), "vaporized").
					Return(nil, models.ErrInvalidStatus)
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:    "terminal order",
			orderID: "42",
			body:    `{"status":"ready"}`,
			setupMock: func(m *mocks.MockStaffOrderService) {
				m.EXPECT().SetFulfillmentStatus(gomock.Any(), uint64(7), uint64(42), "ready").
					Return(nil, models.ErrTerminalStatus)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:    "order of another store",
			orderID: "42",
			body:    `{"status":"ready"}`,
			setupMock: func(m *mocks.MockStaffOrderService) {
				m.EXPECT().SetFulfillmentStatus(gomock.Any(), uint64(7), uint64(42), "ready").
					Return(nil, models.ErrDataNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOrders := mocks.NewMockStaffOrderService(ctrl)
			tt.setupMock(mockOrders)

			sh := NewStaffHandler(mocks.NewMockAuthService(ctrl), mockOrders)

			req := staffRequest(http.MethodPut, "/admin/orders/"+tt.orderID+"/status", tt.body)
			req = withURLParam(req, "orderId", tt.orderID)
			rec := httptest.NewRecorder()

			sh.UpdateOrderStatus().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				var resp orderResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "in_kitchen", resp.Status)
			}
		})
	}
}
