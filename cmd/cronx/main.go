// Package main is the entry point for the cronx CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/flemzord/cronx/internal/config"
	"github.com/flemzord/cronx/internal/executor"
	"github.com/flemzord/cronx/internal/executor/filedrop"
	"github.com/flemzord/cronx/internal/executor/network"
	"github.com/flemzord/cronx/internal/job"
	"github.com/flemzord/cronx/internal/metrics"
	"github.com/flemzord/cronx/internal/runner"
	"github.com/flemzord/cronx/internal/scheduler"
	"github.com/flemzord/cronx/internal/store"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cronx",
		Short:         "Randomized scheduling of recurring agent nudges",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), runCmd(), statusCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("cronx %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler and block until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			jsonLogs, _ := cmd.Flags().GetBool("json")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			cfg, jobs, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}

			logger := newLogger(jsonLogs)

			st, err := store.Open(cfg.StorePath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			exec, err := buildExecutor(&cfg.Executor)
			if err != nil {
				return err
			}

			rec := metrics.NewPrometheus()
			rnr := runner.New(exec, st, logger).WithMetrics(rec)
			sched, err := scheduler.New(jobs, st, rnr, cfg.Seed, logger)
			if err != nil {
				return err
			}
			sched.WithMetrics(rec)

			ctx := context.Background()

			if metricsAddr != "" {
				go serveMetrics(metricsAddr, rec, logger)
			}

			if err := sched.Start(ctx); err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			s := <-sig
			logger.Info("shutting down", "signal", s.String())

			return sched.Stop(ctx)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().Bool("json", false, "Emit JSON logs instead of colored console output")
	cmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the persisted state of every job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")

			cfg, _, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.StorePath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			states, err := st.GetAllJobStates(cmd.Context())
			if err != nil {
				return err
			}
			if len(states) == 0 {
				fmt.Println("No job state recorded yet.")
				return nil
			}

			fmt.Printf("%-24s %-8s %-25s %-25s %s\n", "NAME", "ENABLED", "NEXT RUN", "LAST RUN", "FAILS")
			for _, s := range states {
				fmt.Printf("%-24s %-8t %-25s %-25s %d\n",
					s.Name, s.Enabled, formatMillis(s.NextRun), formatMillis(s.LastRun), s.FailCount)
			}
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, jobs, err := loadConfig(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Configuration OK (%d jobs)\n", len(jobs))
			for _, j := range jobs {
				fmt.Printf("  %s (%s)\n", j.Name, j.Strategy)
			}
			return nil
		},
	})
	return cmd
}

// loadConfig resolves, loads, and validates the configuration, returning
// it together with the converted job list.
func loadConfig(path string) (*config.Config, []job.Job, error) {
	path, err := config.Resolve(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	jobs, err := config.ToJobs(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, jobs, nil
}

func buildExecutor(ec *config.ExecutorConfig) (executor.Executor, error) {
	switch ec.Kind {
	case "network":
		return network.New(network.Config{
			TriggerURL:    ec.Network.TriggerURL,
			NotifyURL:     ec.Network.NotifyURL,
			AuthHeader:    ec.Network.AuthHeader,
			RatePerSecond: ec.Network.RatePerSecond,
		}), nil
	case "filedrop":
		return filedrop.New(filedrop.Config{
			TriggerDir:    ec.Filedrop.TriggerDir,
			Command:       ec.Filedrop.Command,
			Args:          ec.Filedrop.Args,
			NotifyCommand: ec.Filedrop.NotifyCommand,
			NotifyArgs:    ec.Filedrop.NotifyArgs,
		}), nil
	default:
		return nil, fmt.Errorf("unknown executor kind %q", ec.Kind)
	}
}

func newLogger(jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
}

func serveMetrics(addr string, rec *metrics.Prometheus, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func formatMillis(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return time.UnixMilli(*ms).Format(time.RFC3339)
}
