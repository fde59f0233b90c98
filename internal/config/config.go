// Package config reads the server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Storage string

const (
	StorageMemory    Storage = "memory"
	StoragePostgres  Storage = "postgres"
	StorageFirestore Storage = "firestore"
)

type AIProvider string

const (
	AIMock   AIProvider = "mock"
	AIGemini AIProvider = "gemini"
)

type Analytics string

const (
	AnalyticsNone     Analytics = "none"
	AnalyticsLog      Analytics = "log"
	AnalyticsBigQuery Analytics = "bigquery"
)

type Config struct {
	Env            string
	Port           string
	DevMode        bool
	JWTSecret      string
	FrontendOrigin string

	Storage          Storage
	DatabaseURL      string
	GCPProjectID     string
	GCPLocation      string
	EncryptionSecret string

	AI               AIProvider
	GeminiAPIKey     string
	AnalysisModel    string
	RecommendModel   string
	RecommendTimeout time.Duration
	AnalyzeTimeout   time.Duration
	ChatTimeout      time.Duration

	Analytics       Analytics
	BQDataset       string
	BQLocation      string
	AnalyticsBuffer int

	LedgerMaxAttempts int
	InsightsCacheTTL  time.Duration
	ShutdownTimeout   time.Duration
}

func (c *Config) Development() bool {
	return c.Env == "development"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("APP_ENV", "production"),
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "*"),

		Storage:          Storage(strings.ToLower(getEnv("GLOWRA_STORAGE", string(StorageMemory)))),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GCPProjectID:     os.Getenv("GCP_PROJECT_ID"),
		GCPLocation:      getEnv("GCP_LOCATION", "us-central1"),
		EncryptionSecret: os.Getenv("ENCRYPTION_SECRET"),

		AI:             AIProvider(strings.ToLower(getEnv("GLOWRA_AI", string(AIMock)))),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		AnalysisModel:  getEnv("GEMINI_ANALYSIS_MODEL", "gemini-2.5-pro"),
		RecommendModel: getEnv("GEMINI_RECOMMEND_MODEL", "gemini-2.5-flash"),

		Analytics:  Analytics(strings.ToLower(getEnv("GLOWRA_ANALYTICS", string(AnalyticsLog)))),
		BQDataset:  getEnv("BQ_DATASET", "glowra_analytics"),
		BQLocation: getEnv("BQ_LOCATION", "US"),
	}

	var err error
	if cfg.DevMode, err = getBool("DEV_MODE", false); err != nil {
		return nil, err
	}
	if cfg.RecommendTimeout, err = getDuration("RECOMMEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AnalyzeTimeout, err = getDuration("ANALYZE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChatTimeout, err = getDuration("CHAT_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.InsightsCacheTTL, err = getDuration("INSIGHTS_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.AnalyticsBuffer, err = getInt("ANALYTICS_BUFFER", 256); err != nil {
		return nil, err
	}
	if cfg.LedgerMaxAttempts, err = getInt("LEDGER_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.LedgerMaxAttempts < 1 {
		return fmt.Errorf("LEDGER_MAX_ATTEMPTS must be at least 1, got %d", c.LedgerMaxAttempts)
	}
	if c.JWTSecret == "" && !c.DevMode {
		return fmt.Errorf("JWT_SECRET is required unless DEV_MODE is enabled")
	}

	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	case StorageFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required for firestore storage")
		}
	default:
		return fmt.Errorf("GLOWRA_STORAGE must be memory, postgres or firestore, got %q", c.Storage)
	}
	if c.Storage != StorageMemory && c.EncryptionSecret == "" && !c.DevMode {
		return fmt.Errorf("ENCRYPTION_SECRET is required for persistent storage")
	}

	switch c.AI {
	case AIMock:
	case AIGemini:
		if c.GeminiAPIKey == "" && c.GCPProjectID == "" {
			return fmt.Errorf("GEMINI_API_KEY or GCP_PROJECT_ID is required for the gemini provider")
		}
	default:
		return fmt.Errorf("GLOWRA_AI must be mock or gemini, got %q", c.AI)
	}

	switch c.Analytics {
	case AnalyticsNone, AnalyticsLog:
	case AnalyticsBigQuery:
		if c.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required for bigquery analytics")
		}
		if c.EncryptionSecret == "" {
			return fmt.Errorf("ENCRYPTION_SECRET is required to pseudonymise bigquery analytics")
		}
	default:
		return fmt.Errorf("GLOWRA_ANALYTICS must be none, log or bigquery, got %q", c.Analytics)
	}
	return nil
}
