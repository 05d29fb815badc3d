package weight

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

type HandlerImpl struct {
	service WeightService
	logger  *slog.Logger
}

func NewHandlerImpl(service WeightService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

func (h *HandlerImpl) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Weight entry not found")
	default:
		h.logger.ErrorContext(r.Context(), "Weight request failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// AddEntry godoc
// @Summary      Record weight
// @Tags         Weight
// @Accept       json
// @Produce      json
// @Param        entry body types.CreateWeightParams true "Weight entry"
// @Success      201 {object} types.WeightEntry
// @Failure      400 {object} types.Response "Invalid Input"
// @Security     SessionCookie
// @Router       /api/weights [post]
func (h *HandlerImpl) AddEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.CreateWeightParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := api.ValidateStruct(params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.service.AddEntry(r.Context(), userID, params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, entry)
}

// ListEntries godoc
// @Summary      List weight entries
// @Description  Oldest first. Bounds accept RFC3339 or YYYY-MM-DD.
// @Tags         Weight
// @Produce      json
// @Param        from query string false "Lower bound"
// @Param        to   query string false "Upper bound"
// @Success      200 {array} types.WeightEntry
// @Failure      400 {object} types.Response "Invalid bounds"
// @Security     SessionCookie
// @Router       /api/weights [get]
func (h *HandlerImpl) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	q := r.URL.Query()
	from, err := ParseBound(q.Get("from"), false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := ParseBound(q.Get("to"), true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), userID, types.WeightFilter{From: from, To: to})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, entries)
}

// DeleteEntry godoc
// @Summary      Delete a weight entry
// @Tags         Weight
// @Param        id path string true "Entry ID"
// @Success      204
// @Failure      404 {object} types.Response "Not found"
// @Security     SessionCookie
// @Router       /api/weights/{id} [delete]
func (h *HandlerImpl) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid entry ID format")
		return
	}
	if err := h.service.DeleteEntry(r.Context(), userID, entryID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary godoc
// @Summary      Weight summary
// @Description  Count, first and latest entry, change, range and BMI when height is known.
// @Tags         Weight
// @Produce      json
// @Success      200 {object} types.WeightSummary
// @Security     SessionCookie
// @Router       /api/weights/summary [get]
func (h *HandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	sum, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, sum)
}
