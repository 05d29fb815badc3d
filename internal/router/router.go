package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/bytebite/app/logger"
	appMiddleware "github.com/FACorreiaa/bytebite/app/middleware"
	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/api/chatbot"
	"github.com/FACorreiaa/bytebite/internal/api/orders"
	"github.com/FACorreiaa/bytebite/internal/api/profile"
	"github.com/FACorreiaa/bytebite/internal/api/weight"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AppConfig      *config.Config
	Logger         *slog.Logger
	AuthHandler    *auth.AuthHandler
	TokenParser    auth.TokenParser
	ProfileHandler *profile.HandlerImpl
	OrderHandler   *orders.HandlerImpl
	WeightHandler  *weight.HandlerImpl
	ChatHandler    *chatbot.HandlerImpl
	OAuthEnabled   bool
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()
	appCfg := cfg.AppConfig
	rl := appCfg.RateLimit

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(appMiddleware.SecurityHeaders)
	// Chat attempts can take retries*attemptTimeout, so the server timeout
	// must stay above that.
	r.Use(middleware.Timeout(requestTimeout(appCfg)))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// --- Public Routes ---
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.RateLimitByIP(cfg.Logger, rl.AuthRequests, rl.Window))
		r.Post("/check-email", cfg.AuthHandler.CheckEmail)
		r.Post("/signup", cfg.AuthHandler.Signup)
		r.Post("/login", cfg.AuthHandler.Login)
	})
	r.Get("/login", cfg.AuthHandler.LoginStatus)
	r.Post("/clear-cookies", cfg.AuthHandler.ClearCookies)
	r.Get("/signout", cfg.AuthHandler.Signout)
	if cfg.OAuthEnabled {
		r.Get("/auth/{provider}", cfg.AuthHandler.BeginOAuth)
		r.Get("/auth/{provider}/callback", cfg.AuthHandler.OAuthCallback)
	}

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(cfg.Logger, cfg.TokenParser))

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RateLimitByUser(cfg.Logger, rl.ChatRequests, rl.Window))
			r.Post("/chatbot", cfg.ChatHandler.Chat)
			r.Post("/api/recommendations", cfg.ChatHandler.Recommend)
		})

		r.Get("/api/me", cfg.AuthHandler.Me)

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", cfg.ProfileHandler.GetProfile)
			r.Put("/", cfg.ProfileHandler.UpdateProfile)
			r.Post("/picture", cfg.ProfileHandler.UploadPicture)
			r.Get("/picture", cfg.ProfileHandler.GetPicture)
		})

		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", cfg.OrderHandler.CreateOrder)
			r.Get("/", cfg.OrderHandler.ListOrders)
			r.Get("/{id}", cfg.OrderHandler.GetOrder)
			r.Patch("/{id}", cfg.OrderHandler.UpdateStatus)
			r.Delete("/{id}", cfg.OrderHandler.DeleteOrder)
		})

		r.Route("/api/weights", func(r chi.Router) {
			r.Post("/", cfg.WeightHandler.AddEntry)
			r.Get("/", cfg.WeightHandler.ListEntries)
			r.Get("/summary", cfg.WeightHandler.Summary)
			r.Delete("/{id}", cfg.WeightHandler.DeleteEntry)
		})
	})

	return r
}

func requestTimeout(cfg *config.Config) time.Duration {
	t := cfg.Server.Timeout
	llm := time.Duration(cfg.LLM.Retries)*(cfg.LLM.AttemptTimeout+cfg.LLM.RetryDelay) + 5*time.Second
	if llm > t {
		t = llm
	}
	return t
}
