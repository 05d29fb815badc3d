package config

import (
	"bytes"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type ServerConfig struct {
	HTTPPort       string        `mapstructure:"HTTPPort"`
	Timeout        time.Duration `mapstructure:"HTTPTimeout"`
	AllowedOrigins []string      `mapstructure:"allowedOrigins"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

// AuthConfig drives session tokens and cookies.
type AuthConfig struct {
	SecretKey     string        `mapstructure:"secretKey"`
	Issuer        string        `mapstructure:"issuer"`
	SessionTTL    time.Duration `mapstructure:"sessionTTL"`
	CookieMaxAge  time.Duration `mapstructure:"cookieMaxAge"`
	SecureCookies bool          `mapstructure:"secureCookies"`
	OAuth         OAuthConfig   `mapstructure:"oauth"`
}

type OAuthConfig struct {
	GoogleClientID     string `mapstructure:"googleClientID"`
	GoogleClientSecret string `mapstructure:"googleClientSecret"`
	CallbackBaseURL    string `mapstructure:"callbackBaseURL"`
	SessionSecret      string `mapstructure:"sessionSecret"`
}

// StorageConfig selects the persistence backend. The json driver keeps every
// collection in its own file under DataDir.
type StorageConfig struct {
	Driver          string `mapstructure:"driver"`
	DataDir         string `mapstructure:"dataDir"`
	CredentialsFile string `mapstructure:"credentialsFile"`
	PreferencesFile string `mapstructure:"preferencesFile"`
	OrdersFile      string `mapstructure:"ordersFile"`
	WeightsFile     string `mapstructure:"weightsFile"`
	UploadsDir      string `mapstructure:"uploadsDir"`
	PublicPicPath   string `mapstructure:"publicPicPath"`
	DefaultPicture  string `mapstructure:"defaultPicture"`
	MaxUploadBytes  int64  `mapstructure:"maxUploadBytes"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Password          string `mapstructure:"password"`
	Port              string `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	DB                string `mapstructure:"db"`
	SSLMODE           string `mapstructure:"SSLMODE"`
	MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
}

// LLMConfig configures the chat backend. Provider is "ollama" (local process)
// or "gemini".
type LLMConfig struct {
	Provider       string        `mapstructure:"provider"`
	Command        string        `mapstructure:"command"`
	Model          string        `mapstructure:"model"`
	Retries        int           `mapstructure:"retries"`
	RetryDelay     time.Duration `mapstructure:"retryDelay"`
	AttemptTimeout time.Duration `mapstructure:"attemptTimeout"`
	CacheTTL       time.Duration `mapstructure:"cacheTTL"`
	LogDir         string        `mapstructure:"logDir"`
	GeminiModel    string        `mapstructure:"geminiModel"`
	GeminiAPIKey   string        `mapstructure:"geminiAPIKey"`
}

type RateLimitConfig struct {
	AuthRequests int           `mapstructure:"authRequests"`
	ChatRequests int           `mapstructure:"chatRequests"`
	Window       time.Duration `mapstructure:"window"`
}

type Config struct {
	Mode         string          `mapstructure:"mode"`
	Dotenv       string          `mapstructure:"dotenv"`
	Server       ServerConfig    `mapstructure:"server"`
	Metrics      MetricsConfig   `mapstructure:"metrics"`
	Auth         AuthConfig      `mapstructure:"auth"`
	Storage      StorageConfig   `mapstructure:"storage"`
	LLM          LLMConfig       `mapstructure:"llm"`
	RateLimit    RateLimitConfig `mapstructure:"rateLimit"`
	Repositories struct {
		Postgres PostgresConfig `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("BYTEBITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Auth.SecretKey == "" {
		// Sessions do not survive a restart in this case.
		key, err := randomKey(32)
		if err != nil {
			return Config{}, fmt.Errorf("failed to generate session secret: %w", err)
		}
		config.Auth.SecretKey = key
		fmt.Println("Warning: auth.secretKey not set, using a random per-process key")
	}
	config.applyDefaults()

	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// applyDefaults fills zero values that would otherwise break the server.
func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == "" {
		c.Server.HTTPPort = "8000"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 60 * time.Second
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "bytebite"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if c.Auth.CookieMaxAge == 0 {
		c.Auth.CookieMaxAge = 30 * 24 * time.Hour
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "json"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "static/json"
	}
	if c.Storage.CredentialsFile == "" {
		c.Storage.CredentialsFile = "credentials.json"
	}
	if c.Storage.PreferencesFile == "" {
		c.Storage.PreferencesFile = "preferences.json"
	}
	if c.Storage.OrdersFile == "" {
		c.Storage.OrdersFile = "orders.json"
	}
	if c.Storage.WeightsFile == "" {
		c.Storage.WeightsFile = "weights.json"
	}
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = "static/img/PFPs"
	}
	if c.Storage.PublicPicPath == "" {
		c.Storage.PublicPicPath = "static/img/PFPs"
	}
	if c.Storage.DefaultPicture == "" {
		c.Storage.DefaultPicture = "default.png"
	}
	if c.Storage.MaxUploadBytes == 0 {
		c.Storage.MaxUploadBytes = 10 * 1024 * 1024
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.Command == "" {
		c.LLM.Command = "ollama"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "tinyllama:1.1b-chat"
	}
	if c.LLM.Retries <= 0 {
		c.LLM.Retries = 3
	}
	if c.LLM.AttemptTimeout == 0 {
		c.LLM.AttemptTimeout = 10 * time.Second
	}
	if c.LLM.LogDir == "" {
		c.LLM.LogDir = "chatbot-logs"
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
}

func randomKey(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
