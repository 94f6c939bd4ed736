// Package config handles TOML configuration loading and validation for the
// two devgate binaries. The gateway and the standalone static server share one
// Config shape but load with different defaults and search paths.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Search paths checked in order when no explicit config is given.
var (
	gatewaySearchPaths = []string{
		"/etc/devgate/gateway.toml",
		"configs/gateway.toml",
	}
	staticSearchPaths = []string{
		"/etc/devgate/static.toml",
		"configs/static.toml",
	}
)

// mode selects which binary's defaults and validation rules apply.
type mode int

const (
	modeGateway mode = iota
	modeStatic
)

// CLI holds command-line arguments parsed by Kong. Both binaries share it;
// the static server simply ignores the backend override.
type CLI struct {
	Config     string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host       string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port       int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	BackendURL string `kong:"help='Backend origin URL (overrides config).',env='BACKEND_URL'"`
	StaticRoot string `kong:"help='Static file root directory (overrides config).',env='STATIC_ROOT'"`
	LogLevel   string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Static  StaticConfig  `toml:"static"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default"; TOML cannot distinguish 0 from unset
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// BackendConfig holds the fixed backend origin the gateway forwards to.
// The standalone static server ignores this section.
type BackendConfig struct {
	BaseURL         string `toml:"base_url"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	IdleConnections int    `toml:"idle_connections"`
}

// StaticConfig holds static file serving settings.
type StaticConfig struct {
	Root        string            `toml:"root"`
	Prefix      string            `toml:"prefix"`
	CacheMaxAge int               `toml:"cache_max_age"` // seconds; 0 means "use default"
	ServeIndex  *bool             `toml:"serve_index"`   // nil means unset; defaults differ per binary
	MimeTypes   map[string]string `toml:"mime_types"`
}

// ServeIndexEnabled reports whether directory requests fall back to the
// directory's index.html.
func (s *StaticConfig) ServeIndexEnabled() bool {
	return s.ServeIndex != nil && *s.ServeIndex
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

const (
	defaultHost         = "0.0.0.0"
	defaultGatewayPort  = 8000
	defaultStaticPort   = 8001
	defaultBodyMaxBytes = 32 * 1024 * 1024 // 32 MiB
	defaultBackendURL   = "http://127.0.0.1:8080"
	defaultTimeoutSec   = 30
	defaultIdleConns    = 100
	defaultStaticRoot   = "."
	defaultStaticPrefix = "/uploads/"
	defaultCacheMaxAge  = 86400
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
	defaultMetricsPath  = "/metrics"
	healthzRoute        = "/healthz"
	gatewayStatusRoute  = "/gateway/status"
)

// Load reads the gateway config file and applies CLI overrides. When no
// explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/devgate/gateway.toml then configs/gateway.toml.
func Load(cli *CLI) (*Config, error) {
	return load(cli, gatewaySearchPaths, modeGateway)
}

// LoadStatic reads the standalone static server config file. It skips the
// backend validation and defaults the listen port to 8001.
func LoadStatic(cli *CLI) (*Config, error) {
	return load(cli, staticSearchPaths, modeStatic)
}

func load(cli *CLI, searchPaths []string, m mode) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfigInPaths(searchPaths)
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", searchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(m); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults(m)
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.BackendURL != "" {
		c.Backend.BaseURL = cli.BackendURL
	}
	if cli.StaticRoot != "" {
		c.Static.Root = cli.StaticRoot
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate(m mode) error {
	// Backend origin: gateway only. An empty value falls back to the loopback
	// default; a set value must be an absolute http(s) URL.
	if m == modeGateway && c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil {
			return fmt.Errorf("backend.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("backend.base_url must use http or https; got %q", c.Backend.BaseURL)
		}
		if u.Host == "" {
			return fmt.Errorf("backend.base_url must be absolute (scheme://host); got %q", c.Backend.BaseURL)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Backend.TimeoutSeconds < 0 {
		return fmt.Errorf("backend.timeout_seconds must be non-negative; got %d", c.Backend.TimeoutSeconds)
	}
	if c.Backend.IdleConnections < 0 {
		return fmt.Errorf("backend.idle_connections must be non-negative; got %d", c.Backend.IdleConnections)
	}
	if c.Static.CacheMaxAge < 0 {
		return fmt.Errorf("static.cache_max_age must be non-negative; got %d", c.Static.CacheMaxAge)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Static prefix: the reserved asset prefix must be a non-root path that
	// starts and ends with a slash so routing stays an exact prefix match.
	if c.Static.Prefix != "" {
		p := c.Static.Prefix
		if !strings.HasPrefix(p, "/") || !strings.HasSuffix(p, "/") || p == "/" {
			return fmt.Errorf("static.prefix must start and end with '/' and not be the root; got %q", p)
		}
	}

	// Mime override keys carry the leading dot, matching path extensions.
	for ext := range c.Static.MimeTypes {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("static.mime_types key %q must start with '.'", ext)
		}
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled). Conflicts are
	// checked against effective values because defaults fill in afterwards.
	if c.Metrics.Enabled {
		mpath := c.Metrics.Path
		if mpath == "" {
			mpath = defaultMetricsPath
		}
		if mpath[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", mpath)
		}
		for _, reserved := range []string{healthzRoute, gatewayStatusRoute} {
			if mpath == reserved {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", mpath, reserved)
			}
		}
		if m == modeGateway {
			prefix := c.Static.Prefix
			if prefix == "" {
				prefix = defaultStaticPrefix
			}
			if strings.HasPrefix(mpath, prefix) {
				return fmt.Errorf("metrics.path %q conflicts with the static prefix %q", mpath, prefix)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, CacheMaxAge, etc.), zero means "unset" because
// TOML cannot distinguish between an explicit 0 and an omitted key. Setting
// port=0 in the config file therefore results in the default port.
func (c *Config) setDefaults(m mode) {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		if m == modeStatic {
			c.Server.Port = defaultStaticPort
		} else {
			c.Server.Port = defaultGatewayPort
		}
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = defaultBodyMaxBytes
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = defaultTimeoutSec
	}
	if c.Backend.IdleConnections == 0 {
		c.Backend.IdleConnections = defaultIdleConns
	}
	if c.Static.Root == "" {
		c.Static.Root = defaultStaticRoot
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = defaultStaticPrefix
	}
	if c.Static.CacheMaxAge == 0 {
		c.Static.CacheMaxAge = defaultCacheMaxAge
	}
	// serve_index is a pointer so an explicit false survives: the standalone
	// static server defaults it on, the gateway off.
	if c.Static.ServeIndex == nil {
		on := m == modeStatic
		c.Static.ServeIndex = &on
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
