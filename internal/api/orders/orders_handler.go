package orders

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateOrder(w http.ResponseWriter, r *http.Request)
	ListOrders(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
	DeleteOrder(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	service OrderService
	logger  *slog.Logger
}

func NewHandlerImpl(service OrderService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// ids pulls the session user and the {id} path parameter. It writes the error
// response itself and reports false when either is missing.
func ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid order ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, orderID, true
}

func (h *HandlerImpl) writeError(w http.ResponseWriter, r *http.Request, method string, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Order not found")
	case errors.Is(err, types.ErrConflict):
		api.ErrorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrInvalidInput):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Order request failed", slog.String("HandlerImpl", method), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// CreateOrder godoc
// @Summary      Place an order
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        order body types.CreateOrderParams true "Order"
// @Success      201 {object} types.Order
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     SessionCookie
// @Router       /api/orders [post]
func (h *HandlerImpl) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.CreateOrderParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := api.ValidateStruct(params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.CreateOrder(r.Context(), userID, params)
	if err != nil {
		h.writeError(w, r, "CreateOrder", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, order)
}

// ListOrders godoc
// @Summary      List orders
// @Description  Returns the user's orders, newest first.
// @Tags         Orders
// @Produce      json
// @Success      200 {array} types.Order
// @Security     SessionCookie
// @Router       /api/orders [get]
func (h *HandlerImpl) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	list, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "ListOrders", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, list)
}

// GetOrder godoc
// @Summary      Get an order
// @Tags         Orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} types.Order
// @Failure      404 {object} types.Response "Order not found"
// @Security     SessionCookie
// @Router       /api/orders/{id} [get]
func (h *HandlerImpl) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := ids(w, r)
	if !ok {
		return
	}
	order, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, r, "GetOrder", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, order)
}

// UpdateStatus godoc
// @Summary      Change order status
// @Description  placed -> preparing|cancelled, preparing -> delivered|cancelled.
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        status body types.UpdateOrderStatusParams true "New status"
// @Success      200 {object} types.Order
// @Failure      404 {object} types.Response "Order not found"
// @Failure      409 {object} types.Response "Transition not allowed"
// @Security     SessionCookie
// @Router       /api/orders/{id} [patch]
func (h *HandlerImpl) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := ids(w, r)
	if !ok {
		return
	}

	var params types.UpdateOrderStatusParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := api.ValidateStruct(params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), userID, orderID, params.Status)
	if err != nil {
		h.writeError(w, r, "UpdateStatus", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, order)
}

// DeleteOrder godoc
// @Summary      Delete an order
// @Tags         Orders
// @Param        id path string true "Order ID"
// @Success      204
// @Failure      404 {object} types.Response "Order not found"
// @Security     SessionCookie
// @Router       /api/orders/{id} [delete]
func (h *HandlerImpl) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := ids(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), userID, orderID); err != nil {
		h.writeError(w, r, "DeleteOrder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
