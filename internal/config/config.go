// Package config holds the toolkit's runtime configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	appconfig "github.com/RobinCoderZhao/mcp-toolkit/pkg/config"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "toolkit.yaml"

// ErrMissingWeatherKey is returned by Validate when no weather API key is set.
var ErrMissingWeatherKey = errors.New("weather API key not set (set OPENWEATHER_API_KEY or weather.api_key)")

// Config is the main configuration for the toolkit.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Tools     ToolsConfig     `yaml:"tools"`
	Weather   WeatherConfig   `yaml:"weather"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	QRCode    QRCodeConfig    `yaml:"qrcode"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig is the identity advertised on MCP initialize.
type ServerConfig struct {
	Name    string `yaml:"name" env:"TOOLKIT_SERVER_NAME"`
	Version string `yaml:"version"`
}

// HTTPConfig configures the REST wrapper.
type HTTPConfig struct {
	Addr         string        `yaml:"addr" env:"TOOLKIT_HTTP_ADDR"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	CORSOrigin   string        `yaml:"cors_origin" env:"TOOLKIT_CORS_ORIGIN"`
}

// ToolsConfig holds settings shared by every tool.
type ToolsConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"TOOLKIT_TOOL_TIMEOUT"`
}

// WeatherConfig configures the OpenWeatherMap client.
type WeatherConfig struct {
	APIKey  string `yaml:"api_key" env:"OPENWEATHER_API_KEY"`
	BaseURL string `yaml:"base_url"`
}

// WikipediaConfig configures the Wikipedia search and summary endpoints.
type WikipediaConfig struct {
	SearchURL  string `yaml:"search_url"`
	SummaryURL string `yaml:"summary_url"`
	UserAgent  string `yaml:"user_agent"`
}

// QRCodeConfig configures the QR rendering service URL.
type QRCodeConfig struct {
	BaseURL string `yaml:"base_url"`
	Size    string `yaml:"size"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"TOOLKIT_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"TOOLKIT_LOG_FORMAT"` // text or json
}

// TelemetryConfig enables OTLP trace export when an endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// DefaultConfig returns a Config with sensible defaults. The weather API key
// has no default.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "mcp-server",
			Version: "1.0.0",
		},
		HTTP: HTTPConfig{
			Addr:         "0.0.0.0:8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 1 << 20,
			CORSOrigin:   "*",
		},
		Tools: ToolsConfig{
			Timeout: 10 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5/weather",
		},
		Wikipedia: WikipediaConfig{
			SearchURL:  "https://en.wikipedia.org/w/api.php",
			SummaryURL: "https://en.wikipedia.org/api/rest_v1/page/summary/",
			UserAgent:  "MCP-Server/1.0 (contact@example.com)",
		},
		QRCode: QRCodeConfig{
			BaseURL: "https://api.qrserver.com/v1/create-qr-code/",
			Size:    "300x300",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "mcp-toolkit",
		},
	}
}

// Load reads the config file at path (a missing file means defaults) and
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath
	}
	if err := appconfig.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports configuration that would make the server unusable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Weather.APIKey) == "" {
		return ErrMissingWeatherKey
	}
	if c.Tools.Timeout <= 0 {
		return fmt.Errorf("tools.timeout must be positive, got %s", c.Tools.Timeout)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level into a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", l.Level)
	}
}
