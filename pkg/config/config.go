package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Kite KiteConfig
	LLM  LLMConfig

	// Domain
	Picker PickerConfig
	News   NewsConfig
	Market MarketConfig

	// PolicyPath points at the strategy policy YAML (empty = built-in defaults)
	PolicyPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// KiteConfig holds the broker market-data API configuration
type KiteConfig struct {
	APIKey      string
	AccessToken string
	BaseURL     string
	RateLimit   float64 // requests per second
	Burst       int
	Timeout     time.Duration
}

// LLMConfig holds the catalyst model configuration
type LLMConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Enabled reports whether the model classifier should be wired
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// PickerConfig holds per-invocation picker settings
type PickerConfig struct {
	TopN               int
	ShortlistLimitLive int
	ShortlistLimitOff  int
	QuoteBatchSize     int
	RelaxFactor        float64
	TechPoolSize       int
	TechTimeout        time.Duration
	NewsTimeout        time.Duration
	PublishSource      string
	PublishMaxCount    int
	LockMinutes        int
	JobLockTTL         time.Duration
	UniverseFile       string
	SectorFile         string // 심볼 → 섹터 YAML (브로커 유니버스용)
}

// NewsConfig holds news ingestion settings
type NewsConfig struct {
	Feeds          []string
	FeedTimeout    time.Duration
	PerSourceCap   int
	MaxArticles    int
	MapConcurrency int
	MapMax         int
	RetentionDays  int
}

// MarketConfig holds the exchange calendar settings
type MarketConfig struct {
	Timezone string
	Holidays []string // YYYY-MM-DD
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Prefix:   getEnv("REDIS_PREFIX", "picker"),
		},

		// External APIs
		Kite: KiteConfig{
			APIKey:      getEnv("KITE_API_KEY", ""),
			AccessToken: getEnv("KITE_ACCESS_TOKEN", ""),
			BaseURL:     getEnv("KITE_BASE_URL", "https://api.kite.trade"),
			RateLimit:   getEnvAsFloat("KITE_RATE_LIMIT", 3),
			Burst:       getEnvAsInt("KITE_BURST", 3),
			Timeout:     getEnvAsDuration("KITE_TIMEOUT", "10s"),
		},

		LLM: LLMConfig{
			APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
			Model:     getEnv("LLM_MODEL", "claude-3-5-haiku-latest"),
			MaxTokens: getEnvAsInt("LLM_MAX_TOKENS", 120),
			Timeout:   getEnvAsDuration("LLM_TIMEOUT", "4s"),
		},

		Picker: PickerConfig{
			TopN:               getEnvAsInt("PICK_TOP_N", 5),
			ShortlistLimitLive: getEnvAsInt("SHORTLIST_LIMIT_LIVE", 80),
			ShortlistLimitOff:  getEnvAsInt("SHORTLIST_LIMIT_OFF", 120),
			QuoteBatchSize:     getEnvAsInt("QUOTE_BATCH_SIZE", 200),
			RelaxFactor:        getEnvAsFloat("SHORTLIST_RELAX_FACTOR", 2),
			TechPoolSize:       getEnvAsInt("TECH_POOL_SIZE", 5),
			TechTimeout:        getEnvAsDuration("TECH_TIMEOUT", "10s"),
			NewsTimeout:        getEnvAsDuration("NEWS_TIMEOUT", "30s"),
			PublishSource:      getEnv("PUBLISH_SOURCE", "preopen"),
			PublishMaxCount:    getEnvAsInt("PUBLISH_MAX_COUNT", 10),
			LockMinutes:        getEnvAsInt("PUBLISH_LOCK_MINUTES", 20),
			JobLockTTL:         getEnvAsDuration("JOB_LOCK_TTL", "90m"),
			UniverseFile:       getEnv("UNIVERSE_FILE", ""),
			SectorFile:         getEnv("SECTOR_FILE", ""),
		},

		News: NewsConfig{
			Feeds:          getEnvAsList("NEWS_FEEDS", defaultFeeds),
			FeedTimeout:    getEnvAsDuration("NEWS_FEED_TIMEOUT", "7s"),
			PerSourceCap:   getEnvAsInt("NEWS_PER_SOURCE_CAP", 80),
			MaxArticles:    getEnvAsInt("NEWS_MAX_ARTICLES", 500),
			MapConcurrency: getEnvAsInt("NEWS_MAP_CONCURRENCY", 8),
			MapMax:         getEnvAsInt("NEWS_MAP_MAX", 3),
			RetentionDays:  getEnvAsInt("NEWS_RETENTION_DAYS", 7),
		},

		Market: MarketConfig{
			Timezone: getEnv("MARKET_TZ", "Asia/Kolkata"),
			Holidays: getEnvAsList("MARKET_HOLIDAYS", nil),
		},

		PolicyPath: getEnv("POLICY_PATH", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var defaultFeeds = []string{
	"https://www.livemint.com/rss/markets",
	"https://economictimes.indiatimes.com/markets/stocks/rssfeeds/2146842.cms",
	"https://www.moneycontrol.com/rss/business.xml",
	"https://www.cnbctv18.com/commonfeeds/v1/cne/rss/market.xml",
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Picker.TopN <= 0 {
		return fmt.Errorf("PICK_TOP_N must be > 0")
	}
	if c.Picker.TechPoolSize <= 0 || c.News.MapConcurrency <= 0 {
		return fmt.Errorf("TECH_POOL_SIZE and NEWS_MAP_CONCURRENCY must be > 0")
	}
	for _, h := range c.Market.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return fmt.Errorf("MARKET_HOLIDAYS entry %q must be YYYY-MM-DD", h)
		}
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
