package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	BackendMemory        = "memory"
	BackendFile          = "file"
	BackendSQLite        = "sqlite"
	BackendElasticsearch = "elasticsearch"
)

// DefaultSourceURL is the answers page scraped when PREVWORD_SOURCE_URL is unset.
const DefaultSourceURL = "https://wordfinder.yourdictionary.com/wordle/answers/"

// Common contains the resolver parameters shared by every service.
type Common struct {
	SourceURL          string
	ExtractStrategy    string
	ExtractRulesFile   string
	CacheBackend       string
	CachePath          string
	CacheKey           string
	CachePolicy        string
	CacheMaxAge        time.Duration
	ElasticsearchAddr  string
	ElasticsearchIndex string
	FetchTimeout       time.Duration
	FetchUserAgent     string
	FetchAccept        string
	FetchMaxBodyKB     int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr string
}

// Worker configures the scheduled resolve-and-publish loop.
type Worker struct {
	Common
	Interval        time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	PublishAttempts int
}

// SQLitePath is the database file used by the sqlite backend.
func (c Common) SQLitePath() string {
	return filepath.Join(c.CachePath, "cache.sqlite")
}

// LoadCommon builds the shared config from environment variables.
func LoadCommon() (*Common, error) {
	c := &Common{
		SourceURL:          getEnv("PREVWORD_SOURCE_URL", DefaultSourceURL),
		ExtractStrategy:    strings.ToLower(getEnv("EXTRACT_STRATEGY", "")),
		ExtractRulesFile:   getEnv("EXTRACT_RULES_FILE", ""),
		CacheBackend:       strings.ToLower(getEnv("CACHE_BACKEND", BackendFile)),
		CachePath:          getEnv("CACHE_PATH", "data"),
		CacheKey:           getEnv("CACHE_KEY", "previousWordleWords"),
		CachePolicy:        strings.ToLower(getEnv("CACHE_POLICY", "exact")),
		CacheMaxAge:        getDuration("CACHE_MAX_AGE", "12h"),
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "prevword-cache"),
		FetchTimeout:       getDuration("FETCH_TIMEOUT", "30s"),
		FetchUserAgent:     getEnv("FETCH_USER_AGENT", "prevword/1.0"),
		FetchAccept:        getEnv("FETCH_ACCEPT", "*/*"),
		FetchMaxBodyKB:     getInt("FETCH_MAX_BODY_KB", 4096),
	}

	switch c.CacheBackend {
	case BackendMemory, BackendFile, BackendSQLite, BackendElasticsearch:
	default:
		return nil, fmt.Errorf("CACHE_BACKEND %q is not one of memory, file, sqlite, elasticsearch", c.CacheBackend)
	}
	switch c.CachePolicy {
	case "exact":
	case "ttl":
		if c.CacheMaxAge <= 0 {
			return nil, fmt.Errorf("CACHE_MAX_AGE must be positive for the ttl policy")
		}
	default:
		return nil, fmt.Errorf("CACHE_POLICY %q is not one of exact, ttl", c.CachePolicy)
	}
	if c.CacheKey == "" {
		return nil, fmt.Errorf("CACHE_KEY cannot be empty")
	}
	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.FetchMaxBodyKB <= 0 {
		return nil, fmt.Errorf("FETCH_MAX_BODY_KB must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	common, err := LoadCommon()
	if err != nil {
		return nil, err
	}
	return &API{
		Common:   *common,
		BindAddr: getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
	}, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	common, err := LoadCommon()
	if err != nil {
		return nil, err
	}
	c := &Worker{
		Common:          *common,
		Interval:        getDuration("WORKER_INTERVAL", "1h"),
		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "prevword_resolutions"),
		PublishAttempts: getInt("WORKER_PUBLISH_ATTEMPTS", 5),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("WORKER_INTERVAL must be positive")
	}
	if c.PublishAttempts <= 0 {
		return nil, fmt.Errorf("WORKER_PUBLISH_ATTEMPTS must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
