package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	DriverMongo    = "mongo"
	DriverBadger   = "badger"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const defaultMongoDatabase = "TodoApp"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Badger  BadgerConfig  `mapstructure:"badger"`
	SQL     SQLConfig     `mapstructure:"sql"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Tracing TracingConfig `mapstructure:"tracing"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// StorageConfig selects the backend. Remote is an explicit switch between the
// local and remote Mongo endpoints.
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=mongo badger memory postgres sqlite"`
	Remote bool   `mapstructure:"remote"`
}

type MongoConfig struct {
	LocalURI   string        `mapstructure:"local_uri"`
	RemoteURI  string        `mapstructure:"remote_uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type BadgerConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

type SQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic" validate:"required"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	BatchSize    int           `mapstructure:"batch_size" validate:"min=1"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" validate:"gt=0"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoadConfig reads configuration from an optional config.yaml and from
// TODOS_* environment variables. PORT and LOG_LEVEL are honoured for
// compatibility with hosting platforms.
func LoadConfig(configPaths ...string) (*Config, error) {
	return load(viper.New(), configPaths...)
}

func load(v *viper.Viper, configPaths ...string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("TODOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "TODOS_SERVER_PORT", "PORT")
	_ = v.BindEnv("log.level", "TODOS_LOG_LEVEL", "LOG_LEVEL")

	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	} else {
		for _, path := range configPaths {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", DriverMongo)
	v.SetDefault("storage.remote", false)
	v.SetDefault("mongo.local_uri", "mongodb://localhost:27017/TodoApp")
	v.SetDefault("mongo.remote_uri", "")
	v.SetDefault("mongo.database", "")
	v.SetDefault("mongo.collection", "todos")
	v.SetDefault("mongo.timeout", 10*time.Second)
	v.SetDefault("badger.path", "./data/todos")
	v.SetDefault("badger.in_memory", false)
	v.SetDefault("sql.dsn", "file:todos.db?_foreign_keys=on")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "todos.events")
	v.SetDefault("kafka.write_timeout", 5*time.Second)
	v.SetDefault("kafka.batch_size", 1)
	v.SetDefault("kafka.batch_timeout", 10*time.Millisecond)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	switch c.Storage.Driver {
	case DriverMongo:
		if c.MongoURI() == "" {
			if c.Storage.Remote {
				return fmt.Errorf("configuration validation failed: mongo.remote_uri is required when storage.remote is set")
			}
			return fmt.Errorf("configuration validation failed: mongo.local_uri is required")
		}
	case DriverBadger:
		if !c.Badger.InMemory && c.Badger.Path == "" {
			return fmt.Errorf("configuration validation failed: badger.path is required unless badger.in_memory is set")
		}
	case DriverPostgres, DriverSQLite:
		if c.SQL.DSN == "" {
			return fmt.Errorf("configuration validation failed: sql.dsn is required for %s", c.Storage.Driver)
		}
	}
	return nil
}

// MongoURI returns the connection string selected by storage.remote.
func (c *Config) MongoURI() string {
	if c.Storage.Remote {
		return c.Mongo.RemoteURI
	}
	return c.Mongo.LocalURI
}

// MongoDatabase returns mongo.database, falling back to the path of the
// selected URI and then to the default database name.
func (c *Config) MongoDatabase() string {
	if c.Mongo.Database != "" {
		return c.Mongo.Database
	}
	if u, err := url.Parse(c.MongoURI()); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultMongoDatabase
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// splitList expands comma-separated entries, which is how list values arrive
// from the environment.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
