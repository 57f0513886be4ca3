// Package commands implements the cacheserver command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/giantswarm/cacheserver"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// EnvPrefix prefixes the environment variables that override flags, e.g.
// CACHESERVER_PORT or CACHESERVER_CACHE_MODULE.
const EnvPrefix = "CACHESERVER"

// Flag names, which double as config file keys.
const (
	flagConfig               = "config"
	flagPort                 = "port"
	flagCachePath            = "cache-path"
	flagLogLevel             = "log-level"
	flagLogFormat            = "log-format"
	flagWorkers              = "workers"
	flagMonitorParentProcess = "monitor-parent-process"
	flagCacheModule          = "cache-module"
	flagWorkerLogDir         = "worker-log-dir"
	flagMetricsPort          = "metrics-port"
)

// runFunc runs the server with the loaded settings.
type runFunc func(ctx context.Context, s Settings, stderr io.Writer) error

// Execute runs the root command with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd returns the cacheserver root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(runServer)
}

func newRootCmd(run runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cacheserver",
		Short: "Cache server with worker supervision",
		Long: `cacheserver serves a cache engine module over TCP.

When the module supports clustering and workers are requested, the master
spawns that many worker processes sharing the listen port and only supervises
them. Otherwise the master serves itself and reads commands from stdin:

  q  shut down
  s  save the cache
  r  reset the cache

Every flag can also be set in the config file (same key) or through the
environment as CACHESERVER_<FLAG>, with dashes written as underscores.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.String(flagConfig, "", "config file (yaml, json or toml)")
	f.IntP(flagPort, "p", cacheserver.DefaultPort, "listen port")
	f.StringP(flagCachePath, "P", "", `engine storage root (default ".<cache-module>")`)
	f.IntP(flagLogLevel, "l", cacheserver.LogLevelInfo, "log verbosity from 0 (silent) to 5 (debug)")
	f.String(flagLogFormat, cacheserver.LogFormatText, `log format, "text" or "json"`)
	f.IntP(flagWorkers, "w", cacheserver.DefaultWorkers(), "number of worker processes, used when the module supports clustering")
	f.IntP(flagMonitorParentProcess, "m", 0, "exit when this process id disappears, 0 disables")
	f.String(flagCacheModule, cacheserver.DefaultCacheModule, `cache engine module, "sqlite" or "badger"`)
	f.String(flagWorkerLogDir, "", "write worker stdout/stderr to files in this directory")
	f.Int(flagMetricsPort, 0, "serve Prometheus metrics on this port, 0 disables")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		s, err := LoadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		return run(cmd.Context(), s, cmd.ErrOrStderr())
	}
	return cmd
}

// Settings is the resolved command line configuration.
type Settings struct {
	Port                 int    `mapstructure:"port"`
	CachePath            string `mapstructure:"cache-path"`
	LogLevel             int    `mapstructure:"log-level"`
	LogFormat            string `mapstructure:"log-format"`
	Workers              int    `mapstructure:"workers"`
	MonitorParentProcess int    `mapstructure:"monitor-parent-process"`
	CacheModule          string `mapstructure:"cache-module"`
	WorkerLogDir         string `mapstructure:"worker-log-dir"`
	MetricsPort          int    `mapstructure:"metrics-port"`
}

// LoadSettings merges, from highest to lowest precedence, explicitly set
// flags, CACHESERVER_* environment variables, the config file named by
// --config and flag defaults.
func LoadSettings(flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Settings{}, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges before they reach the options, which panic
// on invalid input.
func (s Settings) Validate() error {
	var errs []error
	if s.Port < 0 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 0 and 65535, got %d", s.Port))
	}
	if s.MetricsPort < 0 || s.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics port must be between 0 and 65535, got %d", s.MetricsPort))
	}
	if s.LogLevel < cacheserver.LogLevelSilent || s.LogLevel > cacheserver.LogLevelDebug {
		errs = append(errs, fmt.Errorf("log level must be between %d and %d, got %d",
			cacheserver.LogLevelSilent, cacheserver.LogLevelDebug, s.LogLevel))
	}
	if s.LogFormat != cacheserver.LogFormatText && s.LogFormat != cacheserver.LogFormatJSON {
		errs = append(errs, fmt.Errorf("log format must be %q or %q, got %q",
			cacheserver.LogFormatText, cacheserver.LogFormatJSON, s.LogFormat))
	}
	if s.MonitorParentProcess < 0 {
		errs = append(errs, fmt.Errorf("monitor parent process must not be negative, got %d", s.MonitorParentProcess))
	}
	if s.CacheModule == "" {
		errs = append(errs, errors.New("cache module must not be empty"))
	}
	return errors.Join(errs...)
}

// Options converts the settings into cacheserver options.
func (s Settings) Options() []cacheserver.Option {
	opts := []cacheserver.Option{
		cacheserver.WithPort(s.Port),
		cacheserver.WithWorkers(s.Workers),
		cacheserver.WithCacheModule(s.CacheModule),
		cacheserver.WithMonitorParentProcess(s.MonitorParentProcess),
		cacheserver.WithMetricsPort(s.MetricsPort),
		cacheserver.WithVersion(Version),
	}
	if s.CachePath != "" {
		opts = append(opts, cacheserver.WithCachePath(s.CachePath))
	}
	if s.WorkerLogDir != "" {
		opts = append(opts, cacheserver.WithWorkerLogDir(s.WorkerLogDir))
	}
	return opts
}

func runServer(ctx context.Context, s Settings, stderr io.Writer) error {
	logger, err := cacheserver.NewLogger(stderr, s.LogLevel, s.LogFormat)
	if err != nil {
		return err
	}
	cacheserver.SetLogger(logger)
	return cacheserver.Run(ctx, s.Options()...)
}
