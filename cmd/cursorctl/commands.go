package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stephenafamo/cursor"
	"github.com/stephenafamo/cursor/internal/logger"
)

func newRootCmd() *cobra.Command {
	v := newViper()
	var cfgFile string

	root := &cobra.Command{
		Use:          "cursorctl",
		Short:        "Stream query results through a cursor backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}

			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", cfgFile, err)
			}

			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(newBackendsCmd(), newQueryCmd(v))
	return root
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range cursor.Backends() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newQueryCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query SQL [ARGS...]",
		Short: "Run a query and print its rows as they arrive",
		Long: `Run a query and print its rows as they arrive.

Placeholders are written as "?" and rebound for the backend.
Extra arguments are bound to the placeholders in order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			log := logger.New(cmd.ErrOrStderr(), cfg.Log)
			return runQuery(cmd.Context(), cmd.OutOrStdout(), log, cfg, args[0], args[1:])
		},
	}

	flags := cmd.Flags()
	flags.StringP("backend", "b", "", "backend name, see the backends command")
	flags.StringP("dsn", "d", "", "data source name")
	flags.StringP("format", "f", "tsv", "output format: tsv or json")
	flags.Duration("timeout", 0, "give up after this long (0 means no limit)")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address while the query runs")

	_ = v.BindPFlag("backend", flags.Lookup("backend"))
	_ = v.BindPFlag("dsn", flags.Lookup("dsn"))
	_ = v.BindPFlag("format", flags.Lookup("format"))
	_ = v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = v.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))

	return cmd
}

func runQuery(ctx context.Context, w io.Writer, log *slog.Logger, cfg config, query string, args []string) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var metrics *cursor.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = cursor.NewMetrics(reg)

		srv := serveMetrics(cfg.MetricsAddr, reg, log)
		defer srv.Close()
	}

	pool, err := cursor.OpenPool(ctx, cfg.Backend, cfg.DSN)
	if err != nil {
		return err
	}
	defer closePool(pool, log)

	qargs := make([]any, len(args))
	for i, a := range args {
		qargs[i] = a
	}

	c, err := cursor.FromPool(ctx, pool, cursor.NewQuery(query, qargs...),
		cursor.WithLogger(log),
		cursor.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	return printRows(ctx, w, c, cfg.Format)
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", slog.Any("error", err))
		}
	}()

	return srv
}

func closePool(p cursor.Pool, log *slog.Logger) {
	switch c := p.(type) {
	case io.Closer:
		if err := c.Close(); err != nil {
			log.Warn("closing pool", slog.Any("error", err))
		}
	case interface{ Close() }:
		c.Close()
	}
}
