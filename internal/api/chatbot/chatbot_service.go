package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/bytebite/app/observability/metrics"
	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/types"
)

// Replies shown in the chat window when no answer could be produced.
const (
	MsgNotInstalled = "Ollama could not be found. Please check if it's installed correctly."
	MsgUnavailable  = "I'm sorry, your question could not be answered right now! Please contact admin for assistance."
)

// PreferencesProvider supplies the stored food preferences for recommendations.
type PreferencesProvider interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (*types.Preferences, error)
}

var _ ChatService = (*ChatServiceImpl)(nil)

type ChatService interface {
	// Ask returns types.ErrExecutableNotFound or types.ErrLLMUnavailable when
	// no answer could be produced.
	Ask(ctx context.Context, userID uuid.UUID, prompt string) (string, error)
	Recommend(ctx context.Context, userID uuid.UUID, req types.RecommendationRequest) (string, error)
}

type ChatServiceImpl struct {
	logger     *slog.Logger
	chatLogger *slog.Logger
	client     LLMClient
	prefs      PreferencesProvider
	cache      *cache.Cache

	retries        int
	retryDelay     time.Duration
	attemptTimeout time.Duration
}

// NewChatService wires client with the retry policy from cfg. chatLogger
// receives one record per attempt; pass logger itself when no chat log file
// is in use.
func NewChatService(client LLMClient, prefs PreferencesProvider, cfg config.LLMConfig, logger, chatLogger *slog.Logger) *ChatServiceImpl {
	var c *cache.Cache
	if cfg.CacheTTL > 0 {
		c = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}
	return &ChatServiceImpl{
		logger:         logger,
		chatLogger:     chatLogger,
		client:         client,
		prefs:          prefs,
		cache:          c,
		retries:        retries,
		retryDelay:     cfg.RetryDelay,
		attemptTimeout: cfg.AttemptTimeout,
	}
}

func (s *ChatServiceImpl) Ask(ctx context.Context, userID uuid.UUID, prompt string) (string, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "Ask", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("prompt.length", len(prompt)),
	))
	defer span.End()

	answer, err := s.complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no answer")
		return "", err
	}
	span.SetStatus(codes.Ok, "answered")
	return answer, nil
}

func (s *ChatServiceImpl) Recommend(ctx context.Context, userID uuid.UUID, req types.RecommendationRequest) (string, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "Recommend", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("meal", req.Meal),
	))
	defer span.End()

	prefs, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("error loading preferences: %w", err)
	}
	req.Extra = api.Sanitize(req.Extra)
	return s.complete(ctx, RecommendationPrompt(prefs, req))
}

// complete serves prompt from the cache or asks the model, retrying failed
// attempts. A missing executable ends the loop at once.
func (s *ChatServiceImpl) complete(ctx context.Context, prompt string) (string, error) {
	provider := s.client.Provider()
	key := cacheKey(provider, prompt)
	start := time.Now()

	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			s.record(ctx, "cached", start)
			return v.(string), nil
		}
	}

	for attempt := 1; attempt <= s.retries; attempt++ {
		s.chatLogger.InfoContext(ctx, fmt.Sprintf("Attempt %d: Sending prompt to %s.", attempt, provider))

		answer, err := s.attempt(ctx, prompt)
		switch {
		case err == nil:
			s.countAttempt(ctx, provider, "success")
			s.chatLogger.InfoContext(ctx, provider+" responded successfully.", slog.Int("attempt", attempt))
			if s.cache != nil {
				s.cache.SetDefault(key, answer)
			}
			s.record(ctx, "success", start)
			return answer, nil

		case errors.Is(err, types.ErrExecutableNotFound):
			s.countAttempt(ctx, provider, "not_found")
			s.chatLogger.ErrorContext(ctx, provider+" executable not found.", slog.Any("error", err))
			s.record(ctx, "not_found", start)
			return "", err

		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			s.countAttempt(ctx, provider, "timeout")
			s.chatLogger.WarnContext(ctx, "Timeout occurred. Retrying...", slog.Int("attempt", attempt))

		default:
			s.countAttempt(ctx, provider, "error")
			s.chatLogger.WarnContext(ctx, fmt.Sprintf("Attempt %d failed", attempt), slog.Any("error", err))
		}

		if ctx.Err() != nil {
			break
		}
		if attempt < s.retries && !s.wait(ctx) {
			break
		}
	}

	s.chatLogger.ErrorContext(ctx, "All attempts to reach "+provider+" failed.")
	s.record(ctx, "unavailable", start)
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrLLMUnavailable, err)
	}
	return "", types.ErrLLMUnavailable
}

func (s *ChatServiceImpl) attempt(ctx context.Context, prompt string) (string, error) {
	if s.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()
	}
	answer, err := s.client.Generate(ctx, prompt)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return answer, err
}

// wait sleeps for the retry delay and reports false if ctx ended first.
func (s *ChatServiceImpl) wait(ctx context.Context) bool {
	if s.retryDelay <= 0 {
		return true
	}
	t := time.NewTimer(s.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *ChatServiceImpl) countAttempt(ctx context.Context, provider, result string) {
	metrics.Get().LLMAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("result", result),
	))
}

func (s *ChatServiceImpl) record(ctx context.Context, result string, start time.Time) {
	m := metrics.Get()
	m.ChatRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	m.ChatDurationSeconds.Record(ctx, time.Since(start).Seconds())
}
