// Package cmd provides the CLI commands for agentmemdb.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	memerrors "github.com/agentmem/agentmemdb/internal/errors"
	"github.com/agentmem/agentmemdb/internal/logging"
	"github.com/agentmem/agentmemdb/internal/profiling"
	"github.com/agentmem/agentmemdb/pkg/version"
)

var (
	profileCPU     string
	profileMem     string
	profileTrace   string
	profiler       = profiling.NewProfiler()
	cpuCleanup     func()
	traceCleanup   func()
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the agentmemdb CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentmemdb",
		Short: "Embeddable episodic memory store for learning agents",
		Long: `agentmemdb persists episodes (a vector embedding plus a scalar
reward and categorical metadata) and answers nearest-neighbor queries
filtered by reward, tags, source, user, time window, and task-id prefix.

It runs entirely locally: store, query, and prune against an in-memory
snapshot or a durable on-disk append-only log, with no external
services required.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("agentmemdb version {{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.agentmemdb/logs/")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newStoreCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newPruneCmd())
	cmd.AddCommand(newCheckpointCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error

	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
	}

	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}

	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}

	return nil
}

// Execute runs the root command, printing any failure in the CLI's
// structured error format before returning it to main for the exit code.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, memerrors.FormatForCLI(err))
	}
	return err
}
