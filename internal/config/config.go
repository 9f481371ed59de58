package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	ObjectStore   ObjectStoreConfig
	Source        SourceConfig
	Engine        EngineConfig
	Upload        UploadConfig
	History       HistoryConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

type ObjectStoreConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type SourceConfig struct {
	Postgres PostgresSourceConfig
}

type PostgresSourceConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	MaxRows         int
}

type EngineConfig struct {
	Backend string
	TempDir string
}

type UploadConfig struct {
	MaxBytes int64
}

type HistoryConfig struct {
	Size       int
	MaxClients int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

const (
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
)

// LoadFromEnv reads the process environment. Variables missing from the
// environment fall back to CHARTMESH_ENV_FILE (default ".env") when that file
// exists.
func LoadFromEnv(serviceName string) (Config, error) {
	path := ".env"
	if raw, ok := os.LookupEnv("CHARTMESH_ENV_FILE"); ok && strings.TrimSpace(raw) != "" {
		path = strings.TrimSpace(raw)
	}
	lookup, err := WithDotenv(path, os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return Load(serviceName, lookup)
}

// WithDotenv layers the variables of a dotenv file under base. A missing file
// is not an error.
func WithDotenv(path string, base LookupFunc) (LookupFunc, error) {
	if base == nil {
		return nil, fmt.Errorf("lookup function is required")
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("read env file %q: %w", path, err)
	}
	return func(key string) (string, bool) {
		if value, ok := base(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("CHARTMESH_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid CHARTMESH_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "CHARTMESH_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CHARTMESH_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CHARTMESH_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CHARTMESH_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "CHARTMESH_HTTP_RATE_LIMIT_RPS", &cfg.HTTP.RateLimitRPS); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CHARTMESH_HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimitBurst); err != nil {
		return Config{}, err
	}
	if err := applyList(lookup, "CHARTMESH_HTTP_CORS_ORIGINS", &cfg.HTTP.CORSOrigins); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CHARTMESH_OBJECTSTORE_ENABLED", &cfg.ObjectStore.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CHARTMESH_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_SOURCE_POSTGRES_DSN", &cfg.Source.Postgres.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CHARTMESH_SOURCE_POSTGRES_MAX_OPEN_CONNS", &cfg.Source.Postgres.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CHARTMESH_SOURCE_POSTGRES_MAX_IDLE_CONNS", &cfg.Source.Postgres.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CHARTMESH_SOURCE_POSTGRES_CONN_MAX_IDLE_TIME", &cfg.Source.Postgres.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "CHARTMESH_SOURCE_POSTGRES_CONN_MAX_LIFETIME", &cfg.Source.Postgres.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CHARTMESH_SOURCE_POSTGRES_MAX_ROWS", &cfg.Source.Postgres.MaxRows); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_ENGINE_BACKEND", &cfg.Engine.Backend); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_ENGINE_TEMP_DIR", &cfg.Engine.TempDir); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "CHARTMESH_UPLOAD_MAX_BYTES", &cfg.Upload.MaxBytes); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CHARTMESH_HISTORY_SIZE", &cfg.History.Size); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "CHARTMESH_HISTORY_MAX_CLIENTS", &cfg.History.MaxClients); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CHARTMESH_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "CHARTMESH_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "CHARTMESH_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "CHARTMESH_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	cfg.Engine.Backend = strings.ToLower(cfg.Engine.Backend)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("CHARTMESH_HTTP_RATE_LIMIT_RPS must be >= 0")
	}
	if c.HTTP.RateLimitRPS > 0 && c.HTTP.RateLimitBurst <= 0 {
		return fmt.Errorf("CHARTMESH_HTTP_RATE_LIMIT_BURST must be > 0 when rate limiting is enabled")
	}
	switch c.Engine.Backend {
	case BackendMemory, BackendDuckDB:
	default:
		return fmt.Errorf("invalid CHARTMESH_ENGINE_BACKEND: %q", c.Engine.Backend)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("CHARTMESH_UPLOAD_MAX_BYTES must be > 0")
	}
	if c.History.Size <= 0 {
		return fmt.Errorf("CHARTMESH_HISTORY_SIZE must be > 0")
	}
	if c.ObjectStore.Enabled && c.ObjectStore.Bucket == "" {
		return fmt.Errorf("CHARTMESH_OBJECTSTORE_BUCKET is required when the object store is enabled")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "chartmesh-api"},
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			RateLimitRPS:   0,
			RateLimitBurst: 20,
			CORSOrigins:    []string{"*"},
		},
		ObjectStore: ObjectStoreConfig{
			Enabled:         false,
			Endpoint:        "localhost:9000",
			Region:          "us-east-1",
			Bucket:          "chartmesh",
			AccessKeyID:     "minio",
			SecretAccessKey: "miniostorage",
			UseSSL:          false,
			Prefix:          "",
		},
		Source: SourceConfig{
			Postgres: PostgresSourceConfig{
				DSN:             "",
				MaxOpenConns:    10,
				MaxIdleConns:    10,
				ConnMaxIdleTime: 5 * time.Minute,
				ConnMaxLifetime: 30 * time.Minute,
				MaxRows:         10000,
			},
		},
		Engine: EngineConfig{
			Backend: BackendMemory,
		},
		Upload: UploadConfig{
			MaxBytes: 32 << 20,
		},
		History: HistoryConfig{
			Size:       10,
			MaxClients: 1024,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
		cfg.HTTP.RateLimitRPS = 10
		cfg.HTTP.CORSOrigins = nil
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

// applyList splits a comma separated value, dropping blank items. An empty
// value clears the list.
func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	*dst = values
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
