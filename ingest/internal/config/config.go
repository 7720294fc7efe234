package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Status       StatusConfig       `mapstructure:"status"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Lock         LockConfig         `mapstructure:"lock"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Tessellation TessellationConfig `mapstructure:"tessellation"`
	DLQ          DLQConfig          `mapstructure:"dlq"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type AuthConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type StorageConfig struct {
	Backend         string        `mapstructure:"backend"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	PathStyle       bool          `mapstructure:"path_style"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	SiteBucket      string        `mapstructure:"site_bucket"`
	StagingBucket   string        `mapstructure:"staging_bucket"`
	DataFolder      string        `mapstructure:"data_folder"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type StatusConfig struct {
	Backend      string        `mapstructure:"backend"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	Mongo      MongoConfig      `mapstructure:"mongo"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type PostgresConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Database   string `mapstructure:"database"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	SSLMode    string `mapstructure:"sslmode"`
	MaxConns   int32  `mapstructure:"max_conns"`
	Migrations string `mapstructure:"migrations"`
}

// ConnString renders the pgx/golang-migrate connection URL.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

type OpenSearchConfig struct {
	URL             string `mapstructure:"url"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	TLSSkipVerify   bool   `mapstructure:"tls_skip_verify"`
	Index           string `mapstructure:"index"`
	RetryOnConflict int    `mapstructure:"retry_on_conflict"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type LockConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Prefix   string        `mapstructure:"prefix"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type TessellationConfig struct {
	Notify  bool   `mapstructure:"notify"`
	Subject string `mapstructure:"subject"`
}

type DLQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"` // file or jetstream
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_body_bytes", 32<<20)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "modelhub")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.path_style", false)
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.site_bucket", "models-site")
	v.SetDefault("storage.staging_bucket", "models-staging")
	v.SetDefault("storage.data_folder", "data")
	v.SetDefault("storage.timeout", "10s")
	v.SetDefault("status.backend", "mongo")
	v.SetDefault("status.write_timeout", "5s")
	v.SetDefault("status.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("status.mongo.database", "modelhub")
	v.SetDefault("status.mongo.collection", "model_status")
	v.SetDefault("status.postgres.host", "localhost")
	v.SetDefault("status.postgres.port", 5432)
	v.SetDefault("status.postgres.database", "modelhub")
	v.SetDefault("status.postgres.user", "modelhub")
	v.SetDefault("status.postgres.password", "")
	v.SetDefault("status.postgres.sslmode", "disable")
	v.SetDefault("status.postgres.max_conns", 10)
	v.SetDefault("status.postgres.migrations", "file://migrations")
	v.SetDefault("status.opensearch.url", "https://localhost:9200")
	v.SetDefault("status.opensearch.username", "admin")
	v.SetDefault("status.opensearch.password", "")
	v.SetDefault("status.opensearch.tls_skip_verify", true)
	v.SetDefault("status.opensearch.index", "modelhub-status")
	v.SetDefault("status.opensearch.retry_on_conflict", 3)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("lock.enabled", true)
	v.SetDefault("lock.prefix", "modelhub:lock:")
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.prefix", "modelhub:ratelimit:")
	v.SetDefault("ratelimit.requests", 60)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("tessellation.notify", true)
	v.SetDefault("tessellation.subject", "models.staged")
	v.SetDefault("dlq.enabled", true)
	v.SetDefault("dlq.backend", "file")
	v.SetDefault("dlq.path", "/var/lib/modelhub/dlq")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/modelhub/ingest")
	}

	// Environment variables override, e.g. MODELHUB_STORAGE_SITE_BUCKET
	v.SetEnvPrefix("MODELHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "s3", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Status.Backend {
	case "mongo", "postgres", "opensearch", "memory":
	default:
		return fmt.Errorf("unknown status backend %q", c.Status.Backend)
	}
	switch c.DLQ.Backend {
	case "file", "jetstream":
	default:
		return fmt.Errorf("unknown dlq backend %q", c.DLQ.Backend)
	}
	if c.Storage.SiteBucket == "" {
		return errors.New("storage.site_bucket is required")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth is enabled")
	}
	return nil
}
