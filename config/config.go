package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/The-culture-connection/businessesgrabber/pkg/errors"
)

// Discovery strategy names
const (
	StrategySitemap    = "sitemap"
	StrategyPagination = "pagination"
	StrategyBrowser    = "browser"
)

// Config represents the application configuration
type Config struct {
	// Directory site configuration
	EntryURL        string
	SitemapURL      string
	BaseURL         string
	DetailPath      string
	CategoryPath    string
	DiscoveryMethod string

	// Discovery loop bounds
	MaxPages    int
	StaleRounds int
	MaxRounds   int

	// Extraction pacing and checkpointing
	RequestDelay       time.Duration
	FetchTimeout       time.Duration
	CheckpointInterval int
	ResumeFrom         string

	// Output configuration
	OutputDir      string
	OutputBasename string
	Formats        []string
	CategorySheets bool

	// Memcache configuration (rate-limit block keys)
	MemcacheAddr string
	BlockTime    int

	// Redis configuration (optional record stream)
	RedisAddr         string
	RedisDB           int
	RedisStreamPrefix string
	RedisStreamCount  int
	RedisStreamMaxLen int

	// Browser strategy
	ChromeHeadless bool

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	maxPages, _ := strconv.Atoi(getEnv("MAX_PAGES", "50"))
	staleRounds, _ := strconv.Atoi(getEnv("STALE_ROUNDS", "5"))
	maxRounds, _ := strconv.Atoi(getEnv("MAX_ROUNDS", "150"))
	requestDelay, _ := strconv.Atoi(getEnv("REQUEST_DELAY_MS", "1000"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "15"))
	checkpointInterval, _ := strconv.Atoi(getEnv("CHECKPOINT_INTERVAL", "25"))
	blockTime, _ := strconv.Atoi(getEnv("BLOCK_TIME_SECONDS", "500"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisStreamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	redisStreamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))

	return Config{
		EntryURL:        getEnv("ENTRY_URL", "https://thevoiceofblackcincinnati.com/black-business-directory/"),
		SitemapURL:      getEnv("SITEMAP_URL", "https://thevoiceofblackcincinnati.com/businesses-sitemap.xml"),
		BaseURL:         getEnv("BASE_URL", "https://thevoiceofblackcincinnati.com"),
		DetailPath:      getEnv("DETAIL_PATH", "/black-owned-business/"),
		CategoryPath:    getEnv("CATEGORY_PATH", "/black-owned-business-type/"),
		DiscoveryMethod: getEnv("DISCOVERY_METHOD", StrategySitemap),

		MaxPages:    maxPages,
		StaleRounds: staleRounds,
		MaxRounds:   maxRounds,

		RequestDelay:       time.Duration(requestDelay) * time.Millisecond,
		FetchTimeout:       time.Duration(fetchTimeout) * time.Second,
		CheckpointInterval: checkpointInterval,
		ResumeFrom:         getEnv("RESUME_FROM", ""),

		OutputDir:      getEnv("OUTPUT_DIR", "."),
		OutputBasename: getEnv("OUTPUT_BASENAME", "businesses"),
		Formats:        splitList(getEnv("OUTPUT_FORMATS", "xlsx,csv,json")),
		CategorySheets: getEnv("CATEGORY_SHEETS", "false") == "true",

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),
		BlockTime:    blockTime,

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisDB:           redisDB,
		RedisStreamPrefix: getEnv("REDIS_STREAM_PREFIX", "businesses"),
		RedisStreamCount:  redisStreamCount,
		RedisStreamMaxLen: redisStreamMaxLen,

		ChromeHeadless: getEnv("CHROME_HEADLESS", "true") == "true",

		Environment: getEnv("GRABBER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for invalid combinations
func (c *Config) Validate() error {
	switch c.DiscoveryMethod {
	case StrategySitemap:
		if c.SitemapURL == "" {
			return errors.NewConfiguration("sitemap discovery requires SITEMAP_URL", nil)
		}
	case StrategyPagination, StrategyBrowser:
		if c.EntryURL == "" {
			return errors.NewConfiguration("discovery requires ENTRY_URL", nil)
		}
	default:
		return errors.NewConfiguration("unknown discovery method: "+c.DiscoveryMethod, nil)
	}

	if c.BaseURL == "" {
		return errors.NewConfiguration("BASE_URL must be set", nil)
	}
	if c.DetailPath == "" {
		return errors.NewConfiguration("DETAIL_PATH must be set", nil)
	}
	if c.CheckpointInterval <= 0 {
		return errors.NewConfiguration("CHECKPOINT_INTERVAL must be positive", nil)
	}
	if c.MaxPages <= 0 || c.MaxRounds <= 0 || c.StaleRounds <= 0 {
		return errors.NewConfiguration("discovery bounds must be positive", nil)
	}

	for _, f := range c.Formats {
		switch f {
		case "xlsx", "csv", "json":
		default:
			return errors.NewConfiguration("unknown output format: "+f, nil)
		}
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
