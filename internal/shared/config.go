package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Extractor ExtractorConfig `toml:"extractor"`
	Relay     RelayConfig     `toml:"relay"`
	Profile   ProfileConfig   `toml:"profile"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	ReadHeaderTimeout Duration `toml:"read_header_timeout"`
	ShutdownTimeout   Duration `toml:"shutdown_timeout"`
}

// ExtractorConfig selects and tunes the metadata extraction backend.
type ExtractorConfig struct {
	Backend   string   `toml:"backend"`
	Binary    string   `toml:"binary"`
	Timeout   Duration `toml:"timeout"`
	RateLimit float64  `toml:"rate_limit"`
	Proxy     string   `toml:"proxy"`
}

// RelayConfig contains settings for the upstream audio fetch.
type RelayConfig struct {
	ChunkSize      int      `toml:"chunk_size"`
	ConnectTimeout Duration `toml:"connect_timeout"`
	HeaderTimeout  Duration `toml:"header_timeout"`
	ReadTimeout    Duration `toml:"read_timeout"`
	ContentType    string   `toml:"content_type"`
}

// ProfileConfig contains the identity parameters passed to the extractor and the upstream fetch.
type ProfileConfig struct {
	Client          string            `toml:"client"`
	UserAgent       string            `toml:"user_agent"`
	HeadersCurlFile string            `toml:"headers_curl_file"`
	Headers         map[string]string `toml:"headers"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a [time.Duration] decoded from strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration values from the environment.
//
// PORT is honoured because hosting platforms inject it.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalidConfig, port)
		}
		c.Server.Port = p
	}

	return c.Validate()
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	switch c.Extractor.Backend {
	case "ytdlp", "native":
	default:
		return fmt.Errorf("%w: unknown extractor backend %q", ErrInvalidConfig, c.Extractor.Backend)
	}

	if c.Extractor.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	}

	if c.Relay.ChunkSize <= 0 {
		return fmt.Errorf("%w: relay chunk_size must be positive", ErrInvalidConfig)
	}

	if c.Relay.ContentType == "" {
		return fmt.Errorf("%w: relay content_type is required", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}
