package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/bytebite/app/db"
	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/api/chatbot"
	"github.com/FACorreiaa/bytebite/internal/api/orders"
	"github.com/FACorreiaa/bytebite/internal/api/profile"
	"github.com/FACorreiaa/bytebite/internal/api/weight"
	"github.com/FACorreiaa/bytebite/internal/router"
	"github.com/FACorreiaa/bytebite/internal/types"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	AuthService    *auth.AuthServiceImpl
	AuthHandler    *auth.AuthHandler
	ProfileHandler *profile.HandlerImpl
	OrderHandler   *orders.HandlerImpl
	WeightHandler  *weight.HandlerImpl
	ChatHandler    *chatbot.HandlerImpl
	OAuthEnabled   bool
}

type repositories struct {
	auth    auth.AuthRepo
	users   profile.UserStore
	profile profile.ProfileRepo
	orders  orders.OrderRepo
	weights weight.WeightRepo
}

// NewContainer initializes and returns a new dependency container. chatLogger
// receives one record per language model call.
func NewContainer(ctx context.Context, cfg *config.Config, logger, chatLogger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	var repos repositories
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := c.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		repos = postgresRepositories(pool, logger)
	case "json":
		var err error
		repos, err = jsonRepositories(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	logger.Info("Storage ready", slog.String("driver", cfg.Storage.Driver))

	authService := auth.NewAuthService(repos.auth, cfg, logger)
	profileService := profile.NewProfileService(repos.profile, repos.users, cfg, logger)
	orderService := orders.NewOrderService(repos.orders, logger)
	weightService := weight.NewWeightService(repos.weights, profileService, logger)

	client, err := NewLLMClient(ctx, cfg.LLM)
	if err != nil {
		c.Close()
		return nil, err
	}
	chatService := chatbot.NewChatService(client, profileService, cfg.LLM, logger, chatLogger)

	c.AuthService = authService
	c.AuthHandler = auth.NewAuthHandler(authService, cfg, logger)
	c.ProfileHandler = profile.NewHandlerImpl(profileService, authService, cfg, logger)
	c.OrderHandler = orders.NewHandlerImpl(orderService, logger)
	c.WeightHandler = weight.NewHandlerImpl(weightService, logger)
	c.ChatHandler = chatbot.NewHandlerImpl(chatService, logger)
	c.OAuthEnabled = auth.SetupOAuth(cfg, logger)

	return c, nil
}

// RouterConfig hands the wired handlers to the router.
func (c *Container) RouterConfig() *router.Config {
	return &router.Config{
		AppConfig:      c.Config,
		Logger:         c.Logger,
		AuthHandler:    c.AuthHandler,
		TokenParser:    c.AuthService,
		ProfileHandler: c.ProfileHandler,
		OrderHandler:   c.OrderHandler,
		WeightHandler:  c.WeightHandler,
		ChatHandler:    c.ChatHandler,
		OAuthEnabled:   c.OAuthEnabled,
	}
}

// NewLLMClient builds the chat backend named by cfg.Provider.
func NewLLMClient(ctx context.Context, cfg config.LLMConfig) (chatbot.LLMClient, error) {
	switch cfg.Provider {
	case "ollama":
		return chatbot.NewOllamaClient(chatbot.NewExecRunner(), cfg.Command, cfg.Model), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("llm.geminiAPIKey is required for the gemini provider")
		}
		return chatbot.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func (c *Container) openPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
		return nil, err
	}
	pool, err := database.Init(dbConfig.ConnectionURL, c.Logger)
	if err != nil {
		return nil, err
	}
	if !database.WaitForDB(ctx, pool, c.Logger) {
		pool.Close()
		return nil, errors.New("database not ready")
	}
	return pool, nil
}

func postgresRepositories(pool *pgxpool.Pool, logger *slog.Logger) repositories {
	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	return repositories{
		auth:    authRepo,
		users:   authRepo,
		profile: profile.NewPostgresProfileRepo(pool, logger),
		orders:  orders.NewPostgresOrderRepo(pool, logger),
		weights: weight.NewPostgresWeightRepo(pool, logger),
	}
}

func jsonRepositories(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (repositories, error) {
	path := func(name string) string { return filepath.Join(cfg.DataDir, name) }

	authRepo := auth.NewJSONAuthRepo(store.NewFile[types.User](path(cfg.CredentialsFile), logger), logger)
	n, err := authRepo.Backfill(ctx)
	if err != nil {
		return repositories{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	if n > 0 {
		logger.Info("Assigned ids to legacy accounts", slog.Int("count", n))
	}

	return repositories{
		auth:    authRepo,
		users:   authRepo,
		profile: profile.NewJSONProfileRepo(store.NewFile[types.Preferences](path(cfg.PreferencesFile), logger), logger),
		orders:  orders.NewJSONOrderRepo(store.NewFile[types.Order](path(cfg.OrdersFile), logger), logger),
		weights: weight.NewJSONWeightRepo(store.NewFile[types.WeightEntry](path(cfg.WeightsFile), logger), logger),
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
