package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/maltedev/catalog-scraper/internal/scraper"
)

type Config struct {
	Catalog  CatalogConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Output   OutputConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type CatalogConfig struct {
	Origin          string
	CategoryPath    string
	RegionName      string
	RegionLabel     string
	RegionIndex     int
	DuplicatePolicy scraper.DuplicatePolicy
	Labels          scraper.LabelTable
}

type ScraperConfig struct {
	PriceWaitTimeout   time.Duration
	DetailSettleDelay  time.Duration
	RegionSettleDelay  time.Duration
	ListingConcurrency int
	RateLimitMin       time.Duration
	RateLimitMax       time.Duration
	HTTPTimeout        time.Duration
	UserAgents         []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type OutputConfig struct {
	Dir string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			slog.Warn(".env file found but could not be loaded", "error", err)
		}
	}

	cfg := &Config{
		Catalog: CatalogConfig{
			Origin:          getEnvOrDefault("CATALOG_ORIGIN", "https://online.metro-cc.ru"),
			CategoryPath:    getEnvOrDefault("CATALOG_CATEGORY", "chaj-kofe-kakao/kofe"),
			RegionName:      getEnvOrDefault("CATALOG_REGION_NAME", "Санкт-Петербург"),
			RegionLabel:     getEnvOrDefault("CATALOG_REGION_LABEL", "Saint-Petersburg"),
			RegionIndex:     getIntOrDefault("CATALOG_REGION_INDEX", -1),
			DuplicatePolicy: scraper.DuplicatePolicy(getEnvOrDefault("CATALOG_DUPLICATE_POLICY", string(scraper.LastWriteWins))),
			Labels:          getLabelsOrDefault("CATALOG_LABELS", scraper.DefaultLabels()),
		},
		Scraper: ScraperConfig{
			PriceWaitTimeout:   getDurationOrDefault("SCRAPER_PRICE_WAIT_TIMEOUT", 10*time.Second),
			DetailSettleDelay:  getDurationOrDefault("SCRAPER_DETAIL_SETTLE", 5*time.Second),
			RegionSettleDelay:  getDurationOrDefault("SCRAPER_REGION_SETTLE", 5*time.Second),
			ListingConcurrency: getIntOrDefault("SCRAPER_LISTING_CONCURRENCY", 1),
			RateLimitMin:       getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 0),
			RateLimitMax:       getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 0),
			HTTPTimeout:        getDurationOrDefault("SCRAPER_HTTP_TIMEOUT", 30*time.Second),
			UserAgents:         getStringSliceOrDefault("SCRAPER_USER_AGENTS", defaultUserAgents()),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "ru-RU,ru;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Moscow"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "ru-RU"),
		},
		Output: OutputConfig{
			Dir: getEnvOrDefault("OUTPUT_DIR", "."),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "catalog"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 5)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:catalog"),
		},
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8085),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Catalog.Origin == "" {
		return fmt.Errorf("CATALOG_ORIGIN is required")
	}

	if c.Catalog.CategoryPath == "" {
		return fmt.Errorf("CATALOG_CATEGORY is required")
	}

	if c.Catalog.RegionName == "" && c.Catalog.RegionIndex < 0 {
		return fmt.Errorf("either CATALOG_REGION_NAME or CATALOG_REGION_INDEX must be set")
	}

	if c.Catalog.RegionLabel == "" {
		return fmt.Errorf("CATALOG_REGION_LABEL is required")
	}

	switch c.Catalog.DuplicatePolicy {
	case scraper.LastWriteWins, scraper.RejectDuplicate:
	default:
		return fmt.Errorf("unknown CATALOG_DUPLICATE_POLICY %q", c.Catalog.DuplicatePolicy)
	}

	if c.Scraper.ListingConcurrency < 1 {
		return fmt.Errorf("SCRAPER_LISTING_CONCURRENCY must be at least 1")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Scraper.PriceWaitTimeout <= 0 {
		return fmt.Errorf("SCRAPER_PRICE_WAIT_TIMEOUT must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Enabled && c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required when DB_ENABLED is set")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// getLabelsOrDefault parses "label=field,label=field".
func getLabelsOrDefault(key string, defaultValue scraper.LabelTable) scraper.LabelTable {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	labels := make(scraper.LabelTable)
	for _, pair := range strings.Split(value, ",") {
		label, field, ok := strings.Cut(pair, "=")
		label, field = strings.TrimSpace(label), strings.TrimSpace(field)
		if !ok || label == "" || field == "" {
			continue
		}
		labels[label] = field
	}

	if len(labels) == 0 {
		return defaultValue
	}
	return labels
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}
