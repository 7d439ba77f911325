package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"
)

// Config represents the gateway configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Upstream  UpstreamConfig
	Providers ProvidersConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Echo      EchoConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int `env:"SERVER_PORT"             envDefault:"3000"`
	ReadTimeout     int `env:"SERVER_READ_TIMEOUT"     envDefault:"30"`
	WriteTimeout    int `env:"SERVER_WRITE_TIMEOUT"    envDefault:"30"`
	ShutdownTimeout int `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	ExposedHeaders   []string `env:"CORS_EXPOSED_HEADERS"   envSeparator:"," envDefault:"X-Session-Id,X-Request-Id,X-Trace-Id"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// UpstreamConfig tunes the outbound HTTP clients. Durations are in seconds.
// Timeout applies to buffered calls only; streaming calls rely on cancellation.
type UpstreamConfig struct {
	Timeout             int    `env:"UPSTREAM_TIMEOUT"               envDefault:"60"`
	Proxy               string `env:"UPSTREAM_PROXY"`
	DialTimeout         int    `env:"UPSTREAM_DIAL_TIMEOUT"          envDefault:"30"`
	KeepAlive           int    `env:"UPSTREAM_KEEP_ALIVE"            envDefault:"30"`
	IdleConnTimeout     int    `env:"UPSTREAM_IDLE_CONN_TIMEOUT"     envDefault:"90"`
	TLSHandshakeTimeout int    `env:"UPSTREAM_TLS_HANDSHAKE_TIMEOUT" envDefault:"10"`
	MaxIdleConns        int    `env:"UPSTREAM_MAX_IDLE_CONNS"        envDefault:"100"`
}

// ProviderConfig overrides one provider's built-in settings. Empty fields keep the default.
type ProviderConfig struct {
	BaseURL     string `env:"BASE_URL"`
	Auth        string `env:"AUTH"`
	KeyRequired string `env:"KEY_REQUIRED"`
}

// ProvidersConfig holds per-provider overrides and the optional catalog file.
type ProvidersConfig struct {
	File     string         `env:"PROVIDERS_FILE"`
	OpenAI   ProviderConfig `envPrefix:"OPENAI_"`
	Gemini   ProviderConfig `envPrefix:"GEMINI_"`
	DeepSeek ProviderConfig `envPrefix:"DEEPSEEK_"`
	Custom   ProviderConfig `envPrefix:"CUSTOM_"`
	Catalog  *Catalog
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH"    envDefault:"/metrics"`
}

// EchoConfig mounts the built-in echo upstream for local development.
type EchoConfig struct {
	Enabled bool   `env:"ECHO_UPSTREAM_ENABLED" envDefault:"false"`
	APIKey  string `env:"ECHO_UPSTREAM_API_KEY"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*UpstreamConfig
	*ProvidersConfig
	*LogConfig
	*MetricsConfig
	*EchoConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	if cfg.Providers.File != "" {
		catalog, err := LoadCatalog(cfg.Providers.File)
		if err != nil {
			panic(err)
		}
		cfg.Providers.Catalog = catalog
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Upstream,
		&cfg.Providers,
		&cfg.Log,
		&cfg.Metrics,
		&cfg.Echo,
	}
}
