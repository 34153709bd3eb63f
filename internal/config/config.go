package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	EngineDriverPostgres = "postgres"
	EngineDriverMySQL    = "mysql"
	EngineDriverSQLite   = "sqlite"
	EngineDriverDuckDB   = "duckdb"
)

const (
	AIProviderOpenAI = "openai"
	AIProviderEino   = "eino"
)

const (
	ChartStoreLocal = "local"
	ChartStoreS3    = "s3"
)

// oracleCallsPerTurn is the most oracle round trips one chat turn makes:
// intent, generation, validation, one repair, summary, visualization intent
// and chart recommendation.
const oracleCallsPerTurn = 7

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Engine        EngineConfig
	AI            AIConfig
	Chat          ChatConfig
	Charts        ChartsConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address            string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins string
}

type EngineConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	// ParquetViews is a comma separated list of name=path pairs, duckdb only.
	ParquetViews string
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type ChatConfig struct {
	ModelID    string
	ModelOwner string
}

type ChartsConfig struct {
	Enabled bool
	Store   string
	Dir     string
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
	// PresignTTL > 0 reports chart locations as presigned GET URLs.
	PresignTTL time.Duration
}

type ObservabilityConfig struct {
	LogLevel     slog.Level
	LogJSON      bool
	OTELEndpoint string
	OTELInsecure bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("QUERYCHAT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid QUERYCHAT_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "QUERYCHAT_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "QUERYCHAT_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "QUERYCHAT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "QUERYCHAT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "QUERYCHAT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "QUERYCHAT_CORS_ALLOWED_ORIGINS", &cfg.HTTP.CORSAllowedOrigins) },
		func() error { return applyLowerString(lookup, "QUERYCHAT_ENGINE_DRIVER", &cfg.Engine.Driver) },
		func() error { return applyString(lookup, "QUERYCHAT_ENGINE_DSN", &cfg.Engine.DSN) },
		func() error { return applyInt(lookup, "QUERYCHAT_ENGINE_MAX_OPEN_CONNS", &cfg.Engine.MaxOpenConns) },
		func() error { return applyInt(lookup, "QUERYCHAT_ENGINE_MAX_IDLE_CONNS", &cfg.Engine.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "QUERYCHAT_ENGINE_CONN_MAX_IDLE_TIME", &cfg.Engine.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "QUERYCHAT_ENGINE_CONN_MAX_LIFETIME", &cfg.Engine.ConnMaxLifetime)
		},
		func() error { return applyString(lookup, "QUERYCHAT_ENGINE_PARQUET_VIEWS", &cfg.Engine.ParquetViews) },
		func() error { return applyLowerString(lookup, "QUERYCHAT_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "QUERYCHAT_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "QUERYCHAT_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "QUERYCHAT_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "QUERYCHAT_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyInt(lookup, "QUERYCHAT_AI_MAX_TOKENS", &cfg.AI.MaxTokens) },
		func() error { return applyDuration(lookup, "QUERYCHAT_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyString(lookup, "QUERYCHAT_CHAT_MODEL_ID", &cfg.Chat.ModelID) },
		func() error { return applyString(lookup, "QUERYCHAT_CHAT_MODEL_OWNER", &cfg.Chat.ModelOwner) },
		func() error { return applyBool(lookup, "QUERYCHAT_CHARTS_ENABLED", &cfg.Charts.Enabled) },
		func() error { return applyLowerString(lookup, "QUERYCHAT_CHARTS_STORE", &cfg.Charts.Store) },
		func() error { return applyString(lookup, "QUERYCHAT_CHARTS_DIR", &cfg.Charts.Dir) },
		func() error { return applyString(lookup, "QUERYCHAT_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "QUERYCHAT_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "QUERYCHAT_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "QUERYCHAT_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "QUERYCHAT_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "QUERYCHAT_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "QUERYCHAT_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "QUERYCHAT_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error {
			return applyDuration(lookup, "QUERYCHAT_OBJECTSTORE_PRESIGN_TTL", &cfg.ObjectStore.PresignTTL)
		},
		func() error { return applyBool(lookup, "QUERYCHAT_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "QUERYCHAT_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyString(lookup, "QUERYCHAT_OTEL_ENDPOINT", &cfg.Observability.OTELEndpoint) },
		func() error { return applyBool(lookup, "QUERYCHAT_OTEL_INSECURE", &cfg.Observability.OTELInsecure) },
		func() error { return applyBool(lookup, "QUERYCHAT_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "QUERYCHAT_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if _, set := lookup("QUERYCHAT_HTTP_WRITE_TIMEOUT"); !set {
		cfg.HTTP.WriteTimeout = max(cfg.HTTP.WriteTimeout, writeTimeoutFloor(cfg.AI.Timeout))
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if !isValidEngineDriver(cfg.Engine.Driver) {
		return Config{}, fmt.Errorf("invalid QUERYCHAT_ENGINE_DRIVER: %q", cfg.Engine.Driver)
	}
	if cfg.AI.Provider != AIProviderOpenAI && cfg.AI.Provider != AIProviderEino {
		return Config{}, fmt.Errorf("invalid QUERYCHAT_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	if cfg.Charts.Store != ChartStoreLocal && cfg.Charts.Store != ChartStoreS3 {
		return Config{}, fmt.Errorf("invalid QUERYCHAT_CHARTS_STORE: %q", cfg.Charts.Store)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "querychat-api"},
		HTTP: HTTPConfig{
			Address:            ":8000",
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       300 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: "*",
		},
		Engine: EngineConfig{
			Driver:          EngineDriverMySQL,
			DSN:             "root:@tcp(127.0.0.1:3306)/Student?parseTime=true",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: time.Hour,
		},
		AI: AIConfig{
			Provider:    AIProviderOpenAI,
			BaseURL:     "https://api.groq.com/openai",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.7,
			MaxTokens:   512,
			Timeout:     30 * time.Second,
		},
		Chat: ChatConfig{
			ModelID:    "LMS-MODEL",
			ModelOwner: "local-user",
		},
		Charts: ChartsConfig{
			Enabled: true,
			Store:   ChartStoreLocal,
			Dir:     "visualizations",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "querychat",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "visualizations",
			AutoCreateBucket: true,
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
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
		cfg.Charts.Enabled = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

// ParseParquetViews turns "name=path,name2=path2" into an ordered list of pairs.
func ParseParquetViews(spec string) ([][2]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var views [][2]string
	for _, entry := range strings.Split(spec, ",") {
		name, path, ok := strings.Cut(strings.TrimSpace(entry), "=")
		name = strings.TrimSpace(name)
		path = strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid parquet view entry %q: expected name=path", entry)
		}
		views = append(views, [2]string{name, path})
	}
	return views, nil
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidEngineDriver(driver string) bool {
	switch driver {
	case EngineDriverPostgres, EngineDriverMySQL, EngineDriverSQLite, EngineDriverDuckDB:
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

func applyLowerString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.ToLower(strings.TrimSpace(raw))
	return nil
}

// writeTimeoutFloor leaves room for every oracle call of a turn plus one
// more timeout for query execution and rendering.
func writeTimeoutFloor(aiTimeout time.Duration) time.Duration {
	return time.Duration(oracleCallsPerTurn+1) * aiTimeout
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
