package chatbot

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/types"
)

type HandlerImpl struct {
	service ChatService
	logger  *slog.Logger
}

func NewHandlerImpl(service ChatService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// fallbackReply maps a failed answer to the text the chat window shows.
func fallbackReply(err error) string {
	if errors.Is(err, types.ErrExecutableNotFound) {
		return MsgNotInstalled
	}
	return MsgUnavailable
}

// Chat godoc
// @Summary      Ask the chatbot
// @Description  Sends the prompt to the language model. Failures still answer 200 with an apology text.
// @Tags         Chatbot
// @Accept       json
// @Produce      json
// @Param        body body types.ChatRequest true "Prompt"
// @Success      200 {object} types.ChatResponse
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     SessionCookie
// @Router       /chatbot [post]
func (h *HandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Chat"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := api.ValidateStruct(req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	l.InfoContext(ctx, "Received prompt", slog.Int("length", len(req.Prompt)))
	answer, err := h.service.Ask(ctx, userID, req.Prompt)
	if err != nil {
		l.WarnContext(ctx, "Chat prompt not answered", slog.Any("error", err))
		answer = fallbackReply(err)
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.ChatResponse{Response: answer})
}

// Recommend godoc
// @Summary      Meal recommendation
// @Description  Asks the model for a meal that fits the stored food preferences.
// @Tags         Chatbot
// @Accept       json
// @Produce      json
// @Param        body body types.RecommendationRequest true "Meal"
// @Success      200 {object} types.ChatResponse
// @Failure      400 {object} types.Response "Invalid Input"
// @Security     SessionCookie
// @Router       /api/recommendations [post]
func (h *HandlerImpl) Recommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Recommend"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.RecommendationRequest
	if r.ContentLength != 0 {
		if err := api.DecodeJSONBody(w, r, &req); err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	if err := api.ValidateStruct(req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := h.service.Recommend(ctx, userID, req)
	if err != nil {
		if !errors.Is(err, types.ErrLLMUnavailable) && !errors.Is(err, types.ErrExecutableNotFound) {
			l.ErrorContext(ctx, "Recommendation failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to build recommendation")
			return
		}
		answer = fallbackReply(err)
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.ChatResponse{Response: answer})
}
