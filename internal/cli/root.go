// Package cli holds the cobra commands of the qa-agent binary.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/backupqa/qa-agent/internal/config"
)

type options struct {
	cfg        *config.Configuration
	v          *viper.Viper
	configFile string
	stdout     io.Writer
	stderr     io.Writer
	flags      []cobraflags.Flag
}

// NewRootCmd returns the qa-agent command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg, err := config.NewConfiguration()
	if err != nil {
		panic(err)
	}
	o := &options{cfg: cfg, v: viper.New(), stdout: stdout, stderr: stderr, flags: configFlags(cfg)}

	cmd := &cobra.Command{
		Use:           "qa-agent",
		Short:         "Run backup QA testcases and wait for product jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: cobrautil.CommandStack(
			cobrautil.SyncViperPreRunE(config.EnvPrefix),
			func(cmd *cobra.Command, _ []string) error {
				return o.load(cmd.Root().PersistentFlags())
			},
		),
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = zap.L().Sync()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVar(&o.configFile, "config", "", "configuration file (json or yaml)")
	cobraflags.Register(cmd, o.flags...)

	cmd.AddCommand(
		newServeCmd(o),
		newRunCmd(o),
		newWaitCmd(o),
		newReportCmd(o),
		newTestcasesCmd(o),
	)
	return cmd
}

// configFlags declares one persistent flag per configuration key. Every flag can
// also be set from the environment as QA_AGENT_<FLAG_NAME>.
func configFlags(c *config.Configuration) []cobraflags.Flag {
	return []cobraflags.Flag{
		stringFlag("log-format", "log-format", c.LogFormat, "log format: console or json"),
		stringFlag("log-level", "log-level", c.LogLevel, "log level"),

		stringFlag("server-mode", "server.server-mode", c.Server.ServerMode, "server mode: dev or prod"),
		intFlag("http-port", "server.http-port", c.Server.HTTPPort, "HTTP listen port"),
		stringFlag("tls-cert-file", "server.tls-cert-file", c.Server.TLSCertFile, "TLS certificate file"),
		stringFlag("tls-key-file", "server.tls-key-file", c.Server.TLSKeyFile, "TLS key file"),
		intFlag("num-workers", "agent.num-workers", c.Agent.NumWorkers, "number of scheduler workers"),
		stringFlag("data-folder", "agent.data-folder", c.Agent.DataFolder, "folder of the run history database, in memory when empty"),

		stringFlag("product-url", "product.url", c.Product.URL, "base URL of the product REST API"),
		stringFlag("product-username", "product.username", c.Product.Username, "product user"),
		stringFlag("product-password", "product.password", c.Product.Password, "product password"),
		stringFlag("product-token", "product.token", c.Product.Token, "pre-issued product token"),
		intFlag("product-max-retries", "product.max-retries", int(c.Product.MaxRetries), "attempts for transient product API errors"),
		durationFlag("product-retry-window", "product.retry-window", c.Product.RetryWindow, "maximum time spent retrying one request"),

		stringFlag("vsphere-url", "vsphere.url", c.VSphere.URL, "vCenter URL"),
		stringFlag("vsphere-username", "vsphere.username", c.VSphere.Username, "vCenter user"),
		stringFlag("vsphere-password", "vsphere.password", c.VSphere.Password, "vCenter password"),
		&cobraflags.BoolFlag{Name: "vsphere-insecure", ViperKey: "vsphere.insecure", Persistent: true, Value: c.VSphere.Insecure, Usage: "skip vCenter certificate verification"},

		durationFlag("wait-timeout", "waiter.timeout", c.Waiter.Timeout, "default wait timeout"),
		durationFlag("wait-interval", "waiter.interval", c.Waiter.Interval, "default poll interval"),
	}
}

func stringFlag(name, key, value, usage string) *cobraflags.StringFlag {
	return &cobraflags.StringFlag{Name: name, ViperKey: key, Persistent: true, Value: value, Usage: usage}
}

func intFlag(name, key string, value int, usage string) *cobraflags.IntFlag {
	return &cobraflags.IntFlag{
		Name:       name,
		ViperKey:   key,
		Persistent: true,
		Value:      value,
		Usage:      usage,
		ValidateFunc: func(v int) error {
			if v < 0 {
				return fmt.Errorf("must not be negative, got %d", v)
			}
			return nil
		},
	}
}

func durationFlag(name, key string, value time.Duration, usage string) *cobraflags.StringFlag {
	f := stringFlag(name, key, value.String(), usage)
	f.ValidateFunc = func(v string) error {
		_, err := time.ParseDuration(v)
		return err
	}
	return f
}

// load merges config file, environment and flags into o.cfg and sets up logging.
// Environment values were already copied onto the flags, so they win over the config file.
func (o *options) load(fs *pflag.FlagSet) error {
	for _, f := range o.flags {
		name, key, check := flagBinding(f)
		pf := fs.Lookup(name)
		if err := check(pf.Value.String()); err != nil {
			return fmt.Errorf("invalid value for --%s: %w", name, err)
		}
		if err := o.v.BindPFlag(key, pf); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	if o.configFile != "" {
		o.v.SetConfigFile(o.configFile)
		if err := o.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", o.configFile, err)
		}
	}

	if err := config.Load(o.v, o.cfg); err != nil {
		return err
	}

	logger, err := newLogger(o.cfg.LogFormat, o.cfg.LogLevel)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	zap.S().Named("cli").Debugw("configuration loaded", "config", o.cfg.DebugMap())
	return nil
}

// flagBinding returns the flag name, its configuration key and a check of its raw value.
func flagBinding(f cobraflags.Flag) (string, string, func(string) error) {
	switch f := f.(type) {
	case *cobraflags.StringFlag:
		return f.Name, f.ViperKey, func(raw string) error {
			if f.ValidateFunc == nil {
				return nil
			}
			return f.ValidateFunc(raw)
		}
	case *cobraflags.IntFlag:
		return f.Name, f.ViperKey, func(raw string) error {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return err
			}
			if f.ValidateFunc == nil {
				return nil
			}
			return f.ValidateFunc(v)
		}
	case *cobraflags.BoolFlag:
		return f.Name, f.ViperKey, func(string) error { return nil }
	default:
		panic(fmt.Sprintf("unsupported flag type %T", f))
	}
}

func newLogger(format, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zc zap.Config
	if format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
