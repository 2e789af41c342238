package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   LoggerConfig        `yaml:"logger"`
	Postgres PostgresConfig      `yaml:"postgres"`
	Redis    RedisConfig         `yaml:"redis"`
	Kafka    KafkaConfig         `yaml:"kafka"`
	Elastic  ElasticsearchConfig `yaml:"elastic"`
	Platform PlatformConfig      `yaml:"platform"`
	Editor   EditorConfig        `yaml:"editor"`
}

type ServerConfig struct {
	AppEnv             string        `yaml:"app_env"`
	HTTPAddr           string        `yaml:"http_addr"`
	GRPCAddr           string        `yaml:"grpc_addr"`
	ValidationInterval time.Duration `yaml:"validation_interval"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level             string `yaml:"level"`
	Encoding          string `yaml:"encoding"`
	DisableCaller     bool   `yaml:"disable_caller"`
	DisableStacktrace bool   `yaml:"disable_stacktrace"`
}

type PostgresConfig struct {
	// Disabled runs the service on the in-memory database.
	Disabled        bool   `yaml:"disabled"`
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"db_name"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime int    `yaml:"conn_max_idle_time"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`
	PromotionsTopic string   `yaml:"promotions_topic"`
	GroupID         string   `yaml:"group_id"`
}

type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

type PlatformConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type EditorConfig struct {
	Prefix string `yaml:"prefix"`
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:             getEnv("APP_ENV", "dev"),
			HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:           getEnv("GRPC_ADDR", ":8082"),
			ValidationInterval: getEnvDuration("VALIDATION_INTERVAL", time.Hour),
			ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Disabled:        getEnvBool("POSTGRES_DISABLED", false),
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "backoffice"),
			Password:        getEnv("POSTGRES_PASSWORD", "backoffice"),
			DBName:          getEnv("POSTGRES_DB", "backoffice"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			SessionTTL: getEnvDuration("SESSION_TTL", 14*24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:         getEnvSlice("KAFKA_BROKERS", nil),
			PromotionsTopic: getEnv("KAFKA_TOPIC_PROMOTIONS", "catalogue.range-promoted"),
			GroupID:         getEnv("KAFKA_GROUP_PROMOTIONS", "backoffice-platform-push"),
		},
		Elastic: ElasticsearchConfig{
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", nil),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:     getEnv("ELASTICSEARCH_INDEX", "product_ranges"),
		},
		Platform: PlatformConfig{
			BaseURL: getEnv("PLATFORM_BASE_URL", ""),
			Timeout: getEnvDuration("PLATFORM_TIMEOUT", 30*time.Second),
		},
		Editor: EditorConfig{
			Prefix: getEnv("EDITOR_PREFIX", "/product_editor/"),
		},
	}
}

// Load reads the environment and then applies the YAML file at path, if any.
func Load(path string) (*Config, error) {
	cfg := LoadEnv()
	if path == "" {
		path = os.Getenv("BACKOFFICE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.Editor.Prefix, "/") || !strings.HasSuffix(c.Editor.Prefix, "/") {
		errs = append(errs, fmt.Errorf("editor.prefix must start and end with '/', got %q", c.Editor.Prefix))
	}
	if c.Server.ValidationInterval <= 0 {
		errs = append(errs, errors.New("server.validation_interval must be positive"))
	}
	if c.Server.HTTPAddr == "" {
		errs = append(errs, errors.New("server.http_addr is required"))
	}
	if c.Elastic.Index == "" {
		errs = append(errs, errors.New("elastic.index is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.AppEnv == "dev"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return strings.Split(value, ",")
	}
	return fallback
}
