package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/types"
)

func newRouter(t *testing.T, userID uuid.UUID) http.Handler {
	t.Helper()
	h := NewHandlerImpl(newTestService(t), slog.Default())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithUser(req.Context(), types.SessionUser{ID: userID.String()})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/api/orders", h.CreateOrder)
	r.Get("/api/orders", h.ListOrders)
	r.Get("/api/orders/{id}", h.GetOrder)
	r.Patch("/api/orders/{id}", h.UpdateStatus)
	r.Delete("/api/orders/{id}", h.DeleteOrder)
	return r
}

func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestOrderHandlersLifecycle(t *testing.T) {
	r := newRouter(t, uuid.New())

	rr := call(r, http.MethodPost, "/api/orders",
		`{"restaurant":"Green Bowl","items":[{"name":"Soup","quantity":2,"price":4.5}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var order types.Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
	assert.Equal(t, 9.0, order.Total)

	rr = call(r, http.MethodGet, "/api/orders/"+order.ID.String(), "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = call(r, http.MethodPatch, "/api/orders/"+order.ID.String(), `{"status":"delivered"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = call(r, http.MethodPatch, "/api/orders/"+order.ID.String(), `{"status":"preparing"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = call(r, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []types.Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, types.OrderPreparing, list[0].Status)

	rr = call(r, http.MethodDelete, "/api/orders/"+order.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = call(r, http.MethodGet, "/api/orders/"+order.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOrderHandlersRejectBadInput(t *testing.T) {
	r := newRouter(t, uuid.New())

	for _, body := range []string{
		`{"restaurant":"","items":[{"name":"Soup","quantity":1,"price":1}]}`,
		`{"restaurant":"X","items":[]}`,
		`{"restaurant":"X","items":[{"name":"Soup","quantity":0,"price":1}]}`,
		`{"restaurant":"X","items":[{"name":"Soup","quantity":100,"price":1}]}`,
		`{"restaurant":"X","items":[{"name":"Soup","quantity":1,"price":-1}]}`,
		`{"restaurant":"X","items":[{"name":" ","quantity":1,"price":1}]}`,
	} {
		rr := call(r, http.MethodPost, "/api/orders", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}

	rr := call(r, http.MethodGet, "/api/orders/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(r, http.MethodPatch, "/api/orders/"+uuid.NewString(), `{"status":"eaten"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandlersRejectHugePrices(t *testing.T) {
	r := newRouter(t, uuid.New())

	rr := call(r, http.MethodPost, "/api/orders",
		`{"restaurant":"X","items":[{"name":"Caviar","quantity":99,"price":1e308}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = call(r, http.MethodPost, "/api/orders",
		`{"restaurant":"X","items":[{"name":"Caviar","quantity":1,"price":100000.01}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = call(r, http.MethodPost, "/api/orders",
		`{"restaurant":"X","items":[{"name":"Caviar","quantity":99,"price":100000}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var order types.Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
	assert.Equal(t, 9900000.0, order.Total)
}

func TestPostgresOrderRepo_UpdateOrderDetectsRace(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewPostgresOrderRepo(mockPool, slog.Default())
	userID, orderID := uuid.New(), uuid.New()
	now := time.Now()

	mockPool.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 AND user_id = \$2`).
		WithArgs(orderID, userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "restaurant", "items", "notes", "status", "total", "created_at", "updated_at"}).
			AddRow(orderID, userID, "Green Bowl", []byte(`[{"name":"Soup","quantity":1,"price":4.5}]`), "", "placed", 4.5, now, now))
	mockPool.ExpectExec(`UPDATE orders SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "preparing", pgxmock.AnyArg(), pgxmock.AnyArg(), orderID, userID, "placed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err = repo.UpdateOrder(context.Background(), userID, orderID, func(o *types.Order) error {
		require.Len(t, o.Items, 1)
		o.Status = types.OrderPreparing
		return nil
	})
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
