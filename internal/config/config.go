package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting the API reads.
type Config struct {
	Port       string
	DBDSN      string
	CatalogDir string
	AppBaseURL string

	IntaSend IntaSendConfig
	Resend   ResendConfig
	Supabase SupabaseConfig
	Admin    AdminConfig

	MaxDownloads  int
	SignedURLTTL  time.Duration
	StaleOrderAge time.Duration

	// AllowMockFallback keeps checkout and STK push working with locally
	// generated identifiers when the database or payment credentials are
	// unavailable. Disable in production so failures surface loudly.
	AllowMockFallback bool
}

type IntaSendConfig struct {
	APIKey         string
	PublishableKey string
	Live           bool
	WebhookSecret  string
}

type ResendConfig struct {
	APIKey string
	From   string
}

type SupabaseConfig struct {
	URL        string
	ServiceKey string
	Bucket     string
}

type AdminConfig struct {
	Email     string
	Password  string
	JWTSecret string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		DBDSN:      getEnv("DB_DSN", ""), // MySQL DSN, needs parseTime=true for DATETIME scans
		CatalogDir: getEnv("CATALOG_DIR", "./content"),
		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),
		IntaSend: IntaSendConfig{
			APIKey:         getEnv("INTASEND_API_KEY", ""),
			PublishableKey: getEnv("INTASEND_PUBLISHABLE_KEY", ""),
			Live:           getEnvBool("INTASEND_LIVE", false),
			WebhookSecret:  getEnv("INTASEND_WEBHOOK_SECRET", ""),
		},
		Resend: ResendConfig{
			APIKey: getEnv("RESEND_API_KEY", ""),
			From:   getEnv("RESEND_FROM", "BudgetKE <orders@budgetke.co.ke>"),
		},
		Supabase: SupabaseConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			ServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:     getEnv("SUPABASE_BUCKET", "downloads"),
		},
		Admin: AdminConfig{
			Email:     getEnv("ADMIN_EMAIL", ""),
			Password:  getEnv("ADMIN_PASSWORD", ""),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		MaxDownloads:      getEnvInt("MAX_DOWNLOADS", 5),
		SignedURLTTL:      getEnvDuration("SIGNED_URL_TTL", 5*time.Minute),
		StaleOrderAge:     getEnvDuration("STALE_ORDER_AGE", 24*time.Hour),
		AllowMockFallback: getEnvBool("ALLOW_MOCK_FALLBACK", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBDSN == "" && !c.AllowMockFallback {
		return fmt.Errorf("DB_DSN is required when ALLOW_MOCK_FALLBACK is off")
	}
	if c.MaxDownloads <= 0 {
		return fmt.Errorf("MAX_DOWNLOADS must be positive")
	}
	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
