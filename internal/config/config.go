package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Detection DetectionConfig `mapstructure:"detection"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Export    ExportConfig    `mapstructure:"export"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	OpsPort         int           `mapstructure:"ops_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the log store backend. Backend is one of
// "file", "sqlite", "redis" or "postgres".
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled    bool               `mapstructure:"enabled"`
	URL        string             `mapstructure:"url"`
	StreamName string             `mapstructure:"stream_name"`
	Subjects   NATSSubjectsConfig `mapstructure:"subjects"`
}

type NATSSubjectsConfig struct {
	MessageAnalyzed string `mapstructure:"message_analyzed"`
	AlertRaised     string `mapstructure:"alert_raised"`
	ReportGenerated string `mapstructure:"report_generated"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// AuthConfig carries the static API key for the versioned HTTP API.
// Auth is enforced only when APIKey is non-empty.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

type LLMConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type DetectionConfig struct {
	PhishingThreshold float64 `mapstructure:"phishing_threshold"`
	LexiconDir        string  `mapstructure:"lexicon_dir"`
}

type AlertingConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	DepressionWindowDays  int           `mapstructure:"depression_window_days"`
	DepressionThreshold   float64       `mapstructure:"depression_threshold"`
	DepressionCooldown    time.Duration `mapstructure:"depression_cooldown"`
	EmotionChangeCooldown time.Duration `mapstructure:"emotion_change_cooldown"`
}

type SchedulerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	ReportHour    int           `mapstructure:"report_hour"`
}

type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/careguard")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("CAREGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("app.environment", "CAREGUARD_APP_ENVIRONMENT")
	v.BindEnv("server.http_port", "CAREGUARD_SERVER_HTTP_PORT")
	v.BindEnv("server.grpc_port", "CAREGUARD_SERVER_GRPC_PORT")
	v.BindEnv("server.ops_port", "CAREGUARD_SERVER_OPS_PORT")
	v.BindEnv("storage.backend", "CAREGUARD_STORAGE_BACKEND")
	v.BindEnv("storage.dir", "CAREGUARD_STORAGE_DIR")
	v.BindEnv("database.host", "CAREGUARD_DATABASE_HOST")
	v.BindEnv("database.port", "CAREGUARD_DATABASE_PORT")
	v.BindEnv("database.user", "CAREGUARD_DATABASE_USER")
	v.BindEnv("database.password", "CAREGUARD_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "CAREGUARD_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "CAREGUARD_DATABASE_SSLMODE")
	v.BindEnv("sqlite.path", "CAREGUARD_SQLITE_PATH")
	v.BindEnv("redis.host", "CAREGUARD_REDIS_HOST")
	v.BindEnv("redis.port", "CAREGUARD_REDIS_PORT")
	v.BindEnv("redis.password", "CAREGUARD_REDIS_PASSWORD")
	v.BindEnv("nats.enabled", "CAREGUARD_NATS_ENABLED")
	v.BindEnv("nats.url", "CAREGUARD_NATS_URL")
	v.BindEnv("auth.api_key", "CAREGUARD_AUTH_API_KEY")
	v.BindEnv("llm.enabled", "CAREGUARD_LLM_ENABLED")
	v.BindEnv("llm.api_key", "CAREGUARD_LLM_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.model", "CAREGUARD_LLM_MODEL")
	v.BindEnv("llm.base_url", "CAREGUARD_LLM_BASE_URL")
	v.BindEnv("detection.lexicon_dir", "CAREGUARD_DETECTION_LEXICON_DIR")

	// Read config file. A missing file is fine when no explicit path
	// was given; defaults and environment variables still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite", "redis", "postgres":
	default:
		return fmt.Errorf("invalid storage backend %q (want file, sqlite, redis or postgres)", c.Storage.Backend)
	}
	if c.Detection.PhishingThreshold <= 0 || c.Detection.PhishingThreshold > 1 {
		return fmt.Errorf("invalid phishing threshold %v (want 0 < t <= 1)", c.Detection.PhishingThreshold)
	}
	if c.Alerting.DepressionWindowDays < 1 {
		return fmt.Errorf("invalid depression window %d days", c.Alerting.DepressionWindowDays)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "careguard")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.debug", false)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.ops_port", 9091)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", "logs")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "careguard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "careguard")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("sqlite.path", "careguard.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "careguard:")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "CAREGUARD_EVENTS")
	v.SetDefault("nats.subjects.message_analyzed", "care.message.analyzed")
	v.SetDefault("nats.subjects.alert_raised", "care.alert.raised")
	v.SetDefault("nats.subjects.report_generated", "care.report.generated")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("auth.api_key", "")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.requests_per_hour", 2000)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.timeout", 20*time.Second)

	v.SetDefault("detection.phishing_threshold", 0.7)
	v.SetDefault("detection.lexicon_dir", "data")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.depression_window_days", 7)
	v.SetDefault("alerting.depression_threshold", 0.6)
	v.SetDefault("alerting.depression_cooldown", 72*time.Hour)
	v.SetDefault("alerting.emotion_change_cooldown", 24*time.Hour)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sweep_interval", time.Hour)
	v.SetDefault("scheduler.report_hour", 9)

	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.format", "csv")
}
