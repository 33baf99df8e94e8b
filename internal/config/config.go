package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "QA_AGENT"
	dbFile    = "qa-agent.duckdb"
)

type Configuration struct {
	Server    Server  `mapstructure:"server"`
	Agent     Agent   `mapstructure:"agent"`
	Product   Product `mapstructure:"product"`
	VSphere   VSphere `mapstructure:"vsphere"`
	Waiter    Waiter  `mapstructure:"waiter"`
	LogFormat string  `mapstructure:"log-format" default:"console"`
	LogLevel  string  `mapstructure:"log-level" default:"info"`
}

type Server struct {
	ServerMode  string `mapstructure:"server-mode" default:"dev"`
	HTTPPort    int    `mapstructure:"http-port" default:"8000"`
	TLSCertFile string `mapstructure:"tls-cert-file"`
	TLSKeyFile  string `mapstructure:"tls-key-file"`
}

type Agent struct {
	NumWorkers int `mapstructure:"num-workers" default:"3"`
	// DataFolder holds the DuckDB file. Empty keeps the history in memory.
	DataFolder string `mapstructure:"data-folder"`
}

type Product struct {
	URL         string        `mapstructure:"url"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Token       string        `mapstructure:"token"`
	MaxRetries  uint          `mapstructure:"max-retries" default:"5"`
	RetryWindow time.Duration `mapstructure:"retry-window" default:"1m"`
}

type VSphere struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Insecure bool   `mapstructure:"insecure"`
}

type Waiter struct {
	Timeout  time.Duration `mapstructure:"timeout" default:"75m"`
	Interval time.Duration `mapstructure:"interval" default:"10s"`
}

// NewConfiguration returns a configuration filled with defaults.
func NewConfiguration() (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set configuration defaults: %w", err)
	}
	return cfg, nil
}

// Load fills cfg from v, which is expected to have flags and environment bound.
func Load(v *viper.Viper, cfg *Configuration) error {
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	return cfg.Validate()
}

func (c *Configuration) Validate() error {
	switch c.Server.ServerMode {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid server mode %q: must be dev or prod", c.Server.ServerMode)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be console or json", c.LogFormat)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("tls cert and key files must be set together")
	}
	if c.Agent.NumWorkers < 1 {
		return fmt.Errorf("number of workers must be at least 1")
	}
	if c.Waiter.Interval <= 0 || c.Waiter.Timeout <= 0 {
		return fmt.Errorf("waiter timeout and interval must be positive")
	}
	return nil
}

// DBPath returns the DuckDB location, ":memory:" when no data folder is set.
func (a Agent) DBPath() string {
	if a.DataFolder == "" {
		return ":memory:"
	}
	return filepath.Join(a.DataFolder, dbFile)
}

func (p Product) Enabled() bool { return p.URL != "" }

func (v VSphere) Enabled() bool { return v.URL != "" }

// DebugMap returns the configuration for logging with secrets masked.
func (c *Configuration) DebugMap() map[string]any {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	return map[string]any{
		"server.mode":          c.Server.ServerMode,
		"server.http-port":     c.Server.HTTPPort,
		"server.tls":           c.Server.TLSCertFile != "",
		"agent.num-workers":    c.Agent.NumWorkers,
		"agent.data-folder":    c.Agent.DataFolder,
		"product.url":          c.Product.URL,
		"product.username":     c.Product.Username,
		"product.password":     mask(c.Product.Password),
		"product.token":        mask(c.Product.Token),
		"product.max-retries":  c.Product.MaxRetries,
		"product.retry-window": c.Product.RetryWindow.String(),
		"vsphere.url":          c.VSphere.URL,
		"vsphere.username":     c.VSphere.Username,
		"vsphere.password":     mask(c.VSphere.Password),
		"vsphere.insecure":     c.VSphere.Insecure,
		"waiter.timeout":       c.Waiter.Timeout.String(),
		"waiter.interval":      c.Waiter.Interval.String(),
		"log-format":           c.LogFormat,
		"log-level":            c.LogLevel,
	}
}
