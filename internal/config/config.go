package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultAPIBase      = "https://api.manus.im/v1"
	DefaultAgentProfile = "manus-1.6"
	DefaultPort         = 8000
)

// Config holds all process configuration. It is loaded once at startup and
// treated as immutable afterwards; components receive it explicitly.
type Config struct {
	// APIKey is sent as the API_KEY header on every upstream request.
	// May be empty: the server starts and upstream calls fail with 401s.
	APIKey string

	// APIBase is the upstream root URL, without trailing slash.
	APIBase string

	// AgentProfile is the default agent profile used when the caller
	// omits one on create_task, and always used on continue_task.
	AgentProfile string

	// Port is the HTTP listen port for the MCP transport.
	Port int

	// HomeDir, when set, enables file logging and the invocation history
	// database under <HomeDir>/data. Empty disables both.
	HomeDir string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present (it never overrides real env vars).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:       os.Getenv("MANUS_API_KEY"),
		APIBase:      strings.TrimRight(envOr("MANUS_API_BASE", DefaultAPIBase), "/"),
		AgentProfile: envOr("MANUS_AGENT_PROFILE", DefaultAgentProfile),
		Port:         DefaultPort,
		HomeDir:      os.Getenv("MANUS_MCP_HOME"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable. A missing API key is not
// an error here; main warns about it instead so the server can still come up.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBase)
	if err != nil {
		return fmt.Errorf("invalid MANUS_API_BASE %q: %w", c.APIBase, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid MANUS_API_BASE %q: scheme must be http or https", c.APIBase)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid MANUS_API_BASE %q: missing host", c.APIBase)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d: must be 1-65535", c.Port)
	}
	if c.AgentProfile == "" {
		return fmt.Errorf("agent profile cannot be empty")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// HasAPIKey returns true if an upstream API key is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
