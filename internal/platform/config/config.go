package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	strlist "zgjedhjet/pkg/platform/strings"
)

// Config is the full service configuration. Defaults come from Default, an
// optional YAML file named by CONFIG_FILE overlays them, and environment
// variables win over both.
type Config struct {
	Server        Server              `yaml:"server"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Redis         RedisConfig         `yaml:"redis"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Suggestions   SuggestionsConfig   `yaml:"suggestions"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// PostgresConfig configures the canonical record store. An empty URL selects
// the in-memory store.
type PostgresConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the suggestion counter store. An empty URL selects
// the in-memory store.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ElasticsearchConfig configures the search index. An empty address list
// selects the in-memory index.
type ElasticsearchConfig struct {
	Addresses          []string `yaml:"addresses"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	Index              string   `yaml:"index"`
	SearchWindow       int      `yaml:"search_window"`
	SuggestBucketLimit int      `yaml:"suggest_bucket_limit"`
}

// SuggestionsConfig configures municipality autocomplete.
type SuggestionsConfig struct {
	CounterKey string `yaml:"counter_key"`
	DefaultTop int    `yaml:"default_top"`
	MaxTop     int    `yaml:"max_top"`
}

// KafkaConfig configures the operations audit sink. No brokers keeps audit
// events in memory.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	AuditTopic string   `yaml:"audit_topic"`
	ClientID   string   `yaml:"client_id"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  64 << 20,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Elasticsearch: ElasticsearchConfig{
			Index:              "zgjedhjet",
			SearchWindow:       10000,
			SuggestBucketLimit: 10000,
		},
		Suggestions: SuggestionsConfig{
			CounterKey: "municipality:suggestions",
			DefaultTop: 10,
			MaxTop:     1000,
		},
		Kafka: KafkaConfig{
			AuditTopic: "results.audit",
			ClientID:   "zgjedhjet",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// FromEnv builds the config from defaults, the optional CONFIG_FILE and
// environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(getenv, "HTTP_ADDR", &c.Server.Addr)
	setString(getenv, "DATABASE_URL", &c.Postgres.URL)
	setString(getenv, "REDIS_URL", &c.Redis.URL)
	setList(getenv, "ELASTICSEARCH_URL", &c.Elasticsearch.Addresses)
	setString(getenv, "ELASTICSEARCH_USERNAME", &c.Elasticsearch.Username)
	setString(getenv, "ELASTICSEARCH_PASSWORD", &c.Elasticsearch.Password)
	setString(getenv, "ELASTICSEARCH_INDEX", &c.Elasticsearch.Index)
	setString(getenv, "SUGGESTIONS_COUNTER_KEY", &c.Suggestions.CounterKey)
	setList(getenv, "KAFKA_BROKERS", &c.Kafka.Brokers)
	setString(getenv, "KAFKA_AUDIT_TOPIC", &c.Kafka.AuditTopic)
	setString(getenv, "LOG_LEVEL", &c.Logging.Level)
	setString(getenv, "LOG_FORMAT", &c.Logging.Format)

	if v := getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
		}
		c.Server.MaxUploadBytes = n
	}
	if v := getenv("ELASTICSEARCH_SEARCH_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse ELASTICSEARCH_SEARCH_WINDOW: %w", err)
		}
		c.Elasticsearch.SearchWindow = n
	}
	return nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.Elasticsearch.Index == "" {
		return fmt.Errorf("elasticsearch index is required")
	}
	if c.Elasticsearch.SearchWindow <= 0 || c.Elasticsearch.SuggestBucketLimit <= 0 {
		return fmt.Errorf("elasticsearch search window and bucket limit must be positive")
	}
	if c.Suggestions.CounterKey == "" {
		return fmt.Errorf("suggestion counter key is required")
	}
	if c.Suggestions.DefaultTop < 1 || c.Suggestions.DefaultTop > c.Suggestions.MaxTop {
		return fmt.Errorf("suggestion default top must be between 1 and %d", c.Suggestions.MaxTop)
	}
	return nil
}

func setString(getenv func(string) string, key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func setList(getenv func(string) string, key string, dst *[]string) {
	if v := strlist.SplitList(getenv(key), ","); v != nil {
		*dst = v
	}
}
