package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/rr-inspect/internal/inspect/common/log"
	"github.com/haukened/rr-inspect/internal/inspect/config"
	"github.com/haukened/rr-inspect/internal/inspect/repos/history"
	"github.com/haukened/rr-inspect/internal/inspect/repos/history/bolt"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "rr-inspect"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.AppConfig

	cmd := &cobra.Command{
		Use:          appName,
		Short:        "Concurrent rule and rate-limit inspection of traffic records",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := log.Configure(loaded.Env, loaded.LogLevel, loaded.LogFile); err != nil {
				return fmt.Errorf("logging configuration error: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	cmd.AddCommand(runCmd(&cfg), historyCmd(&cfg))
	return cmd
}

func runCmd(cfg **config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "run <rules-file> <records-file>",
		Short: "Inspect a records file against a rules file and report statistics",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			rulesPath, recordsPath := args[0], args[1]

			log.Info(map[string]any{
				"version":             version,
				"env":                 c.Env,
				"log_level":           c.LogLevel,
				"rules":               rulesPath,
				"records":             recordsPath,
				"workers":             c.Workers,
				"queue_size":          c.QueueSize,
				"drain_timeout":       c.DrainTimeout.String(),
				"rate_limit":          c.RateLimit,
				"suspicion_threshold": c.SuspicionThreshold,
			}, "Initializing RR-Inspect")

			app, err := buildApplication(c, rulesPath)
			if err != nil {
				log.Error(map[string]any{"error": err.Error()}, "Failed to build application")
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Warn(map[string]any{"error": err.Error()}, "Error closing history db")
				}
			}()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			go func() {
				select {
				case sig := <-sigChan:
					log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
					cancel()
				case <-ctx.Done():
				}
			}()

			if _, err := app.Run(ctx, recordsPath, cmd.OutOrStdout()); err != nil {
				log.Error(map[string]any{"error": err.Error()}, "Inspection run failed")
				return err
			}
			log.Info(nil, "RR-Inspect shutdown successfully")
			return nil
		},
	}
}

func historyCmd(cfg **config.AppConfig) *cobra.Command {
	var (
		dbPath string
		latest bool
	)

	c := &cobra.Command{
		Use:   "history",
		Short: "List snapshots stored by previous runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := dbPath
			if path == "" {
				path = (*cfg).HistoryDB
			}
			if path == "" {
				return errors.New("no history db configured (set INSPECT_HISTORY_DB or --db)")
			}

			store, err := bolt.New(path)
			if err != nil {
				return fmt.Errorf("failed to open history db: %w", err)
			}
			defer store.Close()

			var entries []history.Entry
			if latest {
				e, err := store.Latest()
				switch {
				case errors.Is(err, history.ErrEmpty):
				case err != nil:
					return err
				default:
					entries = append(entries, e)
				}
			} else if entries, err = store.List(); err != nil {
				return err
			}
			printHistory(cmd, entries)
			return nil
		},
	}

	c.Flags().StringVar(&dbPath, "db", "", "History db path (defaults to INSPECT_HISTORY_DB)")
	c.Flags().BoolVar(&latest, "latest", false, "Show only the most recent snapshot")
	return c
}

func printHistory(cmd *cobra.Command, entries []history.Entry) {
	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No snapshots stored.")
		return
	}
	fmt.Fprintf(w, "%-25s %8s %8s %9s %10s\n", "TAKEN", "TOTAL", "DROPPED", "FORWARDED", "SUSPICIOUS")
	for _, e := range entries {
		s := e.Snapshot
		fmt.Fprintf(w, "%-25s %8d %8d %9d %10d\n",
			e.TakenAt.UTC().Format(time.RFC3339), s.Total, s.Dropped, s.Forwarded, len(s.Suspicious))
	}
}
