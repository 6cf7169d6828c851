package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment variables read by Load, e.g. CATALOG_SERVER_PORT.
const EnvPrefix = "CATALOG_"

type Config struct {
	Server ServerConfig `koanf:"server"`
	Auth   AuthConfig   `koanf:"auth"`
	Log    LogConfig    `koanf:"log"`
	Store  StoreConfig  `koanf:"store"`
	OTLP   OTLPConfig   `koanf:"otlp"`
}

type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	MaxBodyBytes      int64         `koanf:"maxbodybytes"`
	ReadTimeout       time.Duration `koanf:"readtimeout"`
	ReadHeaderTimeout time.Duration `koanf:"readheadertimeout"`
	WriteTimeout      time.Duration `koanf:"writetimeout"`
	IdleTimeout       time.Duration `koanf:"idletimeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdowntimeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	APIKey string `koanf:"apikey"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type StoreConfig struct {
	Seed bool `koanf:"seed"`
}

type OTLPConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Endpoint       string `koanf:"endpoint"`
	ServiceName    string `koanf:"servicename"`
	Environment    string `koanf:"environment"`
	DurationMillis bool   `koanf:"durationmillis"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.host":              "0.0.0.0",
		"server.port":              3000,
		"server.maxbodybytes":      int64(1 << 20),
		"server.readtimeout":       10 * time.Second,
		"server.readheadertimeout": 5 * time.Second,
		"server.writetimeout":      10 * time.Second,
		"server.idletimeout":       60 * time.Second,
		"server.shutdowntimeout":   5 * time.Second,
		"log.level":                "info",
		"store.seed":               true,
		"otlp.enabled":             false,
		"otlp.endpoint":            "localhost:4317",
		"otlp.servicename":         "catalog-api",
		"otlp.environment":         "development",
		"otlp.durationmillis":      false,
	}
}

// envAliases keeps the unprefixed variable names deployments already use.
var envAliases = map[string]string{
	"PORT":                        "server.port",
	"API_KEY":                     "auth.apikey",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otlp.endpoint",
	"OTEL_SERVICE_NAME":           "otlp.servicename",
	"OTEL_ENVIRONMENT":            "otlp.environment",
}

func aliasKey(key string) string {
	return envAliases[key]
}

func prefixedKey(key string) string {
	if !strings.HasPrefix(key, EnvPrefix) {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "_", ".")
}

// Load builds the configuration from, in increasing priority: defaults, the
// YAML configFile, the dotenv envFile and the process environment. Missing
// files are skipped.
func Load(configFile, envFile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading YAML config file '%s': %w", configFile, err)
		}
	}

	if envFile != "" {
		envFileMap, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			if err := k.Load(confmap.Provider(dotenvMap(envFileMap), "."), nil); err != nil {
				return nil, fmt.Errorf("error loading .env config: %w", err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			slog.Warn("error reading .env file", slog.String("file", envFile), slog.String("error", err.Error()))
		}
	}

	// aliases first so the prefixed variables win when both are set
	if err := k.Load(env.Provider("", ".", aliasKey), nil); err != nil {
		return nil, fmt.Errorf("error loading env aliases: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", prefixedKey), nil); err != nil {
		return nil, fmt.Errorf("error loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func dotenvMap(values map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		if alias := aliasKey(key); alias != "" {
			if _, set := out[alias]; !set {
				out[alias] = value
			}
			continue
		}
		if k := prefixedKey(key); k != "" {
			out[k] = value
		}
	}
	return out
}

// Validate checks if the configuration values are usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max body size: %d", c.Server.MaxBodyBytes)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid HTTP server read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid HTTP server write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("invalid HTTP server idle timeout: %v", c.Server.IdleTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	if c.Auth.APIKey == "" {
		return errors.New("API key is not configured")
	}
	if c.OTLP.Enabled && c.OTLP.Endpoint == "" {
		return errors.New("OTLP export is enabled but no endpoint is configured")
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("\n--- Server ---\n")
	b.WriteString(fmt.Sprintf("  addr: %s\n", c.Server.Addr()))
	b.WriteString(fmt.Sprintf("  maxBodyBytes: %d\n", c.Server.MaxBodyBytes))
	b.WriteString(fmt.Sprintf("  timeouts: read=%v readHeader=%v write=%v idle=%v shutdown=%v\n",
		c.Server.ReadTimeout, c.Server.ReadHeaderTimeout, c.Server.WriteTimeout, c.Server.IdleTimeout, c.Server.ShutdownTimeout))
	b.WriteString("--- Auth ---\n")
	b.WriteString(fmt.Sprintf("  apiKey: %s\n", maskSecret(c.Auth.APIKey)))
	b.WriteString("--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Log.Level))
	b.WriteString("--- Store ---\n")
	b.WriteString(fmt.Sprintf("  seed: %t\n", c.Store.Seed))
	b.WriteString("--- OTLP ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t endpoint: %s service: %s environment: %s\n",
		c.OTLP.Enabled, c.OTLP.Endpoint, c.OTLP.ServiceName, c.OTLP.Environment))
	return b.String()
}

func maskSecret(secret string) string {
	if secret == "" {
		return "<not configured>"
	}
	return "****"
}
