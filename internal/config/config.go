package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingServiceKey is returned by Validate when TRAIN_API_KEY is unset
var ErrMissingServiceKey = errors.New("TRAIN_API_KEY is not set")

// Config holds all configuration for the collector and the dataset server
type Config struct {
	// TAGO TrainInfoService
	ServiceKey  string
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Rate governor
	ListDelay     time.Duration // city and station listing calls
	MetaDelay     time.Duration // train type listing
	ProbeDelay    time.Duration // route probes
	MaxProbeCalls int           // kept below the provider's daily quota

	// Sampling
	FlushEvery int    // checkpoint routes.json every N completed origins
	DepDate    string // YYYYMMDD, defaults to today in Asia/Seoul

	// Output
	DataDir     string
	MetricsFile string
	// collection is skipped while the dataset is younger than this (0 always collects)
	MinRefreshAge time.Duration

	// Run journal (empty path disables it)
	JournalPath          string
	JournalRetentionDays int

	// Hub stations and category rules
	CatalogFile string
	Catalog     *Catalog

	// Dataset server
	Port        string
	CORSOrigins []string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		ServiceKey:  getEnv("TRAIN_API_KEY", ""),
		APIBaseURL:  getEnv("TRAIN_API_URL", "http://apis.data.go.kr/1613000/TrainInfoService"),
		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,

		ListDelay:     getEnvMillis("LIST_DELAY_MS", 200),
		MetaDelay:     getEnvMillis("META_DELAY_MS", 300),
		ProbeDelay:    getEnvMillis("PROBE_DELAY_MS", 60),
		MaxProbeCalls: getEnvInt("MAX_PROBE_CALLS", 9000),

		FlushEvery: getEnvInt("FLUSH_EVERY", 5),
		DepDate:    getEnv("DEP_DATE", Today()),

		DataDir:     getEnv("DATA_DIR", "data"),
		MetricsFile: getEnv("METRICS_FILE", ""),

		MinRefreshAge: time.Duration(getEnvInt("MIN_REFRESH_HOURS", 0)) * time.Hour,

		JournalPath:          getEnv("JOURNAL_DATABASE", "data/journal.db"),
		JournalRetentionDays: getEnvInt("JOURNAL_RETENTION_DAYS", 30),

		CatalogFile: getEnv("CATALOG_FILE", ""),

		Port:        getEnv("PORT", "8082"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if cfg.FlushEvery < 1 {
		cfg.FlushEvery = 1
	}

	catalog, err := LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	cfg.Catalog = catalog

	return cfg, nil
}

// Validate checks the settings the collector cannot run without
func (c *Config) Validate() error {
	if c.ServiceKey == "" {
		return ErrMissingServiceKey
	}
	return nil
}

// MaskedKey returns the first characters of the service key for log output
func (c *Config) MaskedKey() string {
	if len(c.ServiceKey) <= 10 {
		return c.ServiceKey
	}
	return c.ServiceKey[:10] + "..."
}

// Today returns the current date in Korea as YYYYMMDD
func Today() string {
	return time.Now().In(seoulLocation()).Format("20060102")
}

func seoulLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*3600)
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	ms := getEnvInt(key, defaultValue)
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

// splitList parses a comma-separated list, dropping blank entries
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
