package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Assign  AssignConfig  `yaml:"assign" mapstructure:"assign"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and sizes the record store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GeocodeConfig configures the address geocoder.
type GeocodeConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"` // "google" or "census"
	GoogleAPIKey string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RedisConfig configures the optional geocode cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// AssignConfig tunes assignment reporting.
type AssignConfig struct {
	DefaultCapacity int `yaml:"default_capacity" mapstructure:"default_capacity"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CASELOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The bare GOOGLE_API_KEY (as kept in .env files) works too.
	if err := v.BindEnv("geocode.google_api_key", "CASELOAD_GEOCODE_GOOGLE_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("geocode.provider", "google")
	v.SetDefault("geocode.rate_limit", 10)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl_hours", 720)
	v.SetDefault("server.port", 5050)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 60)
	v.SetDefault("assign.default_capacity", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs:
//
//	store:   record store only (migrate, import, assign)
//	geocode: store plus geocoder (reconcile, backfill)
//	serve:   store, geocoder and HTTP server
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres", "sqlite":
		default:
			problems = append(problems, `store.driver must be "postgres" or "sqlite"`)
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.MaxConns < 0 || c.Store.MinConns < 0 || (c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns) {
			problems = append(problems, "store.min_conns must be between 0 and store.max_conns")
		}
	}
	checkGeocode := func() {
		switch c.Geocode.Provider {
		case "google", "census":
		default:
			problems = append(problems, `geocode.provider must be "google" or "census"`)
		}
		if c.Geocode.RateLimit < 0 {
			problems = append(problems, "geocode.rate_limit must be >= 0")
		}
		if c.Geocode.TimeoutSecs < 0 {
			problems = append(problems, "geocode.timeout_secs must be >= 0")
		}
		if c.Redis.Addr != "" && c.Redis.TTLHours < 0 {
			problems = append(problems, "redis.ttl_hours must be >= 0")
		}
	}

	switch mode {
	case "store":
		checkStore()
	case "geocode":
		checkStore()
		checkGeocode()
	case "serve":
		checkStore()
		checkGeocode()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RequestTimeoutSecs < 0 {
			problems = append(problems, "server.request_timeout_secs must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Assign.DefaultCapacity < 0 {
		problems = append(problems, "assign.default_capacity must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
