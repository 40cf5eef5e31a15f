package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains the store and search-index parameters shared by every
// service.
type Common struct {
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	FeedRootPath       string
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Generation holds the model-call parameters shared by the API and worker.
type Generation struct {
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiModel      string
	ItemsPerCategory int
	CategoryPause    time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Generation
	BindAddr string
}

// Worker holds configuration for the Kafka -> feed generation worker.
type Worker struct {
	Common
	Generation
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// Uploader configures the static feed upload tool.
type Uploader struct {
	Common
	FeedFile string
}

// Retention configures the search-index cleanup loop.
type Retention struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
	Interval           time.Duration
	MaxAge             time.Duration
	BatchSize          int
}

func loadCommon() Common {
	return Common{
		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0),
		FeedRootPath:       getEnv("FEED_ROOT_PATH", "curatedContent"),
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "feed_items"),
	}
}

func loadGeneration() (Generation, error) {
	g := Generation{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    os.Getenv("GEMINI_BASE_URL"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		ItemsPerCategory: getInt("FEED_ITEMS_PER_CATEGORY", 25),
		CategoryPause:    getDuration("FEED_CATEGORY_PAUSE", "5s"),
	}

	if g.GeminiAPIKey == "" {
		return g, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if g.ItemsPerCategory <= 0 {
		return g, fmt.Errorf("FEED_ITEMS_PER_CATEGORY must be positive")
	}
	if g.CategoryPause < 0 {
		return g, fmt.Errorf("FEED_CATEGORY_PAUSE cannot be negative")
	}

	return g, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	gen, err := loadGeneration()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:     loadCommon(),
		Generation: gen,
		BindAddr:   getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	gen, err := loadGeneration()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:         loadCommon(),
		Generation:     gen,
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "feed_jobs"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "feed-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 1000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadUploader builds an Uploader config from environment variables.
func LoadUploader(feedFile string) (*Uploader, error) {
	c := &Uploader{
		Common:   loadCommon(),
		FeedFile: feedFile,
	}

	if c.FeedFile == "" {
		return nil, fmt.Errorf("feed file path must be provided")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "feed_items"),
		Interval:           getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:             getDuration("RETENTION_MAX_AGE", "168h"),
		BatchSize:          getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
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
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
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
