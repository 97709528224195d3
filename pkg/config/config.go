package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "TESORO"

type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// TCP connection deadlines, not handler timeouts
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`

	// maximum duration for handlers to complete, after which the request
	// fails with a 503
	RequestHandlerTimeout time.Duration `mapstructure:"request_handler_timeout"`

	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
}

type CacheConfig struct {
	DefaultTTL       time.Duration `mapstructure:"default_ttl"`
	CleanupFrequency time.Duration `mapstructure:"cleanup_frequency"`
}

type PostgresConfig struct {
	// DSN is the postgres connection string. Empty means the server runs
	// on the in-memory store, which suits development and tests.
	DSN string `mapstructure:"dsn"`
}

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_header_timeout", 10*time.Second)
	v.SetDefault("api.read_timeout", 20*time.Second)
	v.SetDefault("api.write_timeout", 20*time.Second)
	v.SetDefault("api.request_handler_timeout", 30*time.Second)
	v.SetDefault("api.rate_limit_per_second", 1000)
	v.SetDefault("cache.default_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_frequency", 60*time.Second)
	v.SetDefault("postgres.dsn", "")
}

// Load builds the configuration from defaults, an optional YAML file and
// TESORO_* environment variables, in increasing order of precedence.
// Environment keys replace dots with underscores, e.g. TESORO_API_PORT.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configFile)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	return &config, nil
}
