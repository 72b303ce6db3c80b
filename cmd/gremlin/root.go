package main

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aixgo-dev/gremlin"
	"github.com/aixgo-dev/gremlin/internal/logging"
	tracing "github.com/aixgo-dev/gremlin/internal/observability"
	"github.com/aixgo-dev/gremlin/pkg/client"
	"github.com/aixgo-dev/gremlin/pkg/config"
)

type rootOpts struct {
	v       *viper.Viper
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "gremlin",
		Short:         "Talk to a Gremlin server over bytecode",
		Long:          "gremlin checks connectivity to a Gremlin server, submits bytecode documents and serves client metrics.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file")
	flags.String("url", "", "server endpoint, e.g. ws://localhost:8182/gremlin")
	flags.String("provider", "", "backend provider (neptune or tinkergraph)")
	flags.Int("pool-size", 0, "maximum number of connections")
	flags.String("log-level", "", "log level")
	flags.String("log-format", "", "log format (text or json)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	_ = opts.v.BindPFlags(flags)

	rootCmd.AddCommand(
		newVersionCmd(),
		newPingCmd(opts),
		newSubmitCmd(opts),
		newFeaturesCmd(opts),
		newMetricsCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// init loads the dotenv file and binds GREMLIN_* variables to the flags.
func (o *rootOpts) init() error {
	if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	o.v.SetEnvPrefix("GREMLIN")
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()
	return nil
}

// config merges the configuration file, the environment and the flags, in that order.
func (o *rootOpts) config() (config.Config, error) {
	cfg := config.Default()
	if path := o.v.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	} else if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	if o.v.IsSet("url") && o.v.GetString("url") != "" {
		cfg.URL = o.v.GetString("url")
	}
	if o.v.IsSet("provider") && o.v.GetString("provider") != "" {
		cfg.Provider = o.v.GetString("provider")
	}
	if n := o.v.GetInt("pool-size"); n > 0 {
		cfg.PoolSize = n
	}
	if level := o.v.GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if format := o.v.GetString("log-format"); format != "" {
		cfg.LogFormat = format
	}

	return cfg, cfg.Validate()
}

// openGraph opens a graph for cmd. The returned function closes it and flushes traces.
func (o *rootOpts) openGraph(cmd *cobra.Command, extra ...client.Option) (*gremlin.Graph, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := tracing.Init(cfg.Tracing, logger); err != nil {
		return nil, nil, err
	}

	graph, err := gremlin.Open(cfg, gremlin.WithLogger(logger), gremlin.WithClientOptions(extra...))
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		ctx := context.WithoutCancel(cmd.Context())
		if err := graph.Close(ctx); err != nil {
			logger.WithError(err).Warn("close graph")
		}
		if err := tracing.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("flush traces")
		}
	}
	return graph, closeFn, nil
}
