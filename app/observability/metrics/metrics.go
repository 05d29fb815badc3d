package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginAttemptsTotal     metric.Int64Counter
	SignupsTotal           metric.Int64Counter
	ChatRequestsTotal      metric.Int64Counter
	ChatDurationSeconds    metric.Float64Histogram
	LLMAttemptsTotal       metric.Int64Counter
	StoreOpDurationSeconds metric.Float64Histogram
	StoreOpErrorsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global MeterProvider. Call it
// after the provider is installed so the instruments export through it.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("ByteBite")
		var err error
		m := &AppMetrics{}

		m.LoginAttemptsTotal, err = meter.Int64Counter(
			"auth_login_attempts_total",
			metric.WithDescription("Login attempts partitioned by result"),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_login_attempts_total: %v", err)
		}

		m.SignupsTotal, err = meter.Int64Counter(
			"auth_signups_total",
			metric.WithDescription("Sign-up requests partitioned by result"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_signups_total: %v", err)
		}

		m.ChatRequestsTotal, err = meter.Int64Counter(
			"chat_requests_total",
			metric.WithDescription("Chat prompts answered, partitioned by result"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_requests_total: %v", err)
		}

		m.ChatDurationSeconds, err = meter.Float64Histogram(
			"chat_duration_seconds",
			metric.WithDescription("Time to answer a chat prompt, retries included"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_duration_seconds: %v", err)
		}

		m.LLMAttemptsTotal, err = meter.Int64Counter(
			"llm_attempts_total",
			metric.WithDescription("Individual calls to the language model"),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create llm_attempts_total: %v", err)
		}

		m.StoreOpDurationSeconds, err = meter.Float64Histogram(
			"store_op_duration_seconds",
			metric.WithDescription("Duration of JSON store operations in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create store_op_duration_seconds: %v", err)
		}

		m.StoreOpErrorsTotal, err = meter.Int64Counter(
			"store_op_errors_total",
			metric.WithDescription("Total number of failed JSON store operations"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create store_op_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the application instruments, creating them on first use so
// packages exercised without the server (tests, the admin CLI) still work.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
