// chronosai — adaptive AI layer for a single-node relational database.
//
// Wires the Learning Engine, Immune System, and Temporal Index
// Manager into one process-wide AI Manager, exposes SHOW AI STATUS
// and admin actions over a cobra CLI, and optionally serves the same
// surface over the Model Context Protocol for AI-agent control.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chronosdb/chronosai/internal/aiconfig"
	"github.com/chronosdb/chronosai/internal/aimanager"
	"github.com/chronosdb/chronosai/internal/ailog"
	"github.com/chronosdb/chronosai/internal/enginehooks"
	"github.com/chronosdb/chronosai/internal/mcpserver"
	"github.com/chronosdb/chronosai/internal/output"
)

var version = "0.1.0"

func main() {
	var (
		configPath   string
		banditPath   string
		optimizerPath string
		verbose      bool
	)

	rootCmd := &cobra.Command{
		Use:   "chronosai",
		Short: "Adaptive AI layer for ChronosDB",
		Long: `chronosai — the adaptive AI layer of a single-node relational
database: a self-learning execution engine (UCB1 bandits over scan
strategy and query plans), an immune system (mutation-rate anomaly
detection with graded response and auto-recovery), and a temporal
index manager (hotspot detection and adaptive WAL retention) for
time-travel queries.

Every subcommand wires a fresh AI Manager, optionally overlaying
learned bandit/optimizer state from disk (--bandit-state,
--optimizer-state) and tunables from a YAML config file (--config).`,
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML tunable-constants overlay (see spec.md §6)")
	rootCmd.PersistentFlags().StringVar(&banditPath, "bandit-state", "", "Path to persisted bandit state (CHRONOS_BANDIT_V1)")
	rootCmd.PersistentFlags().StringVar(&optimizerPath, "optimizer-state", "", "Path to persisted optimizer state (CHRONOS_OPTIMIZER_V1)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable logging to stderr")

	newManager := func() (*aimanager.Manager, error) {
		cfg, err := resolveConfig(configPath)
		if err != nil {
			return nil, err
		}

		log := ailog.New(verbose)
		m := aimanager.New(cfg, enginehooks.New(), log)
		m.Initialize()

		if banditPath != "" {
			if err := m.Learning.Bandit.LoadState(banditPath); err != nil {
				return nil, fmt.Errorf("load bandit state: %w", err)
			}
		}
		if optimizerPath != "" {
			if err := m.Learning.Optimizer.LoadState(optimizerPath); err != nil {
				return nil, fmt.Errorf("load optimizer state: %w", err)
			}
		}
		return m, nil
	}

	var statusOutput string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print SHOW AI STATUS as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()
			return output.WriteStatus(m.GetStatus(), statusOutput)
		},
	}
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "-", "Output file path (- for stdout)")

	var (
		anomaliesOutput string
		anomaliesLimit  int
	)
	anomaliesCmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Print recent anomaly reports as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()
			reports := m.Immune.Detector.GetRecentAnomalies(anomaliesLimit)
			return output.WriteAnomalies(reports, anomaliesOutput)
		},
	}
	anomaliesCmd.Flags().StringVarP(&anomaliesOutput, "output", "o", "-", "Output file path (- for stdout)")
	anomaliesCmd.Flags().IntVar(&anomaliesLimit, "limit", 10, "Maximum number of anomalies to return")

	unblockTableCmd := &cobra.Command{
		Use:   "unblock-table <table>",
		Short: "Remove a table from the Immune System's blocklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()
			m.Immune.Responder.UnblockTable(args[0])
			fmt.Printf("table %q unblocked\n", args[0])
			return nil
		},
	}

	unblockUserCmd := &cobra.Command{
		Use:   "unblock-user <user>",
		Short: "Remove a user from the Immune System's blocklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()
			m.Immune.Responder.UnblockUser(args[0])
			fmt.Printf("user %q unblocked\n", args[0])
			return nil
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "Print the effective tunable-constants configuration as YAML",
		Long:  "Resolves DefaultConfig() overlaid by --config (if given) and prints the result, for inspecting or seeding a tuning file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}

	serveMCPCmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Start a Model Context Protocol server over stdio",
		Long: `Starts a JSON-RPC server implementing the Model Context Protocol (MCP),
exposing get_ai_status, list_anomalies, explain_anomaly, and
unblock_table so an AI agent can introspect and administer the AI
layer interactively. Communication happens over stdio.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			defer m.Shutdown()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := mcpserver.NewServer(version, m)
			return srv.Start(ctx)
		},
	}

	rootCmd.AddCommand(statusCmd, anomaliesCmd, unblockTableCmd, unblockUserCmd, tuneCmd, serveMCPCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig returns DefaultConfig() overlaid by the YAML file at
// configPath, or the bare defaults when configPath is empty.
func resolveConfig(configPath string) (aiconfig.Config, error) {
	if configPath == "" {
		return aiconfig.DefaultConfig(), nil
	}
	cfg, err := aiconfig.LoadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
