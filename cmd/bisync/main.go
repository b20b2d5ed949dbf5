package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openmined/bisync/internal/bisync"
	"github.com/openmined/bisync/internal/config"
	"github.com/openmined/bisync/internal/rclone"
	"github.com/openmined/bisync/internal/utils"
	"github.com/openmined/bisync/internal/version"
)

// Exit codes. Setup, listing, lock and baseline failures each get a
// distinct code so unattended callers can tell them apart.
const (
	exitBadPath1        = 1
	exitBadPath2        = 2
	exitIdenticalPaths  = 3
	exitListFailedA     = 4
	exitListFailedB     = 5
	exitConflicts       = 7
	exitRcloneNotFound  = 10
	exitRcloneNoConfig  = 11
	exitLocked          = 23
	exitWorkDirUnusable = 24
	exitBaselineCorrupt = 25
	exitFailure         = 80
)

var red = color.New(color.FgHiRed, color.Bold).SprintFunc()

// exitErr carries a specific exit code up to main.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:           "bisync <path1> <path2>",
	Short:         "Bi-directional sync for rclone",
	Long:          "Reconciles two rclone-reachable locations so both hold the same files,\npropagating whichever side changed since the last successful run.",
	Version:       version.Detailed(),
	Args:          cobra.ExactArgs(2),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Path1:        args[0],
			Path2:        args[1],
			RclonePath:   viper.GetString("rclone"),
			RcloneConfig: viper.GetString("rclone_config"),
			WorkDir:      viper.GetString("working_directory"),
			Retries:      viper.GetInt("retries"),
			DryRun:       viper.GetBool("dry_run"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SilenceUsage = true
		return runSync(cmd.Context(), cfg)
	},
}

func runSync(ctx context.Context, cfg *config.Config) error {
	workDir, err := utils.ResolvePath(cfg.WorkDir)
	if err != nil {
		return &exitErr{exitWorkDirUnusable, err}
	}
	cfg.WorkDir = workDir

	client := rclone.New(cfg.RclonePath, cfg.RcloneConfig)

	if err := client.CheckConfig(ctx); err != nil {
		if errors.Is(err, rclone.ErrBinaryNotFound) {
			return &exitErr{exitRcloneNotFound, err}
		}
		return &exitErr{exitRcloneNoConfig, err}
	}

	remotes, err := client.ListRemotes(ctx)
	if err != nil {
		return &exitErr{exitRcloneNoConfig, err}
	}

	endpoint1, err := client.ResolveEndpoint(ctx, cfg.Path1, remotes)
	if err != nil {
		return &exitErr{exitBadPath1, fmt.Errorf("path %q: %w", cfg.Path1, err)}
	}
	endpoint2, err := client.ResolveEndpoint(ctx, cfg.Path2, remotes)
	if err != nil {
		return &exitErr{exitBadPath2, fmt.Errorf("path %q: %w", cfg.Path2, err)}
	}
	if endpoint1 == endpoint2 {
		return &exitErr{exitIdenticalPaths, errors.New("the two paths are identical")}
	}

	// keep executor sides aligned with the engine's normalized order
	endpointA, endpointB := bisync.OrderEndpoints(endpoint1, endpoint2)
	executor := rclone.NewExecutor(client, endpointA, endpointB)
	syncer := bisync.NewSyncer(endpointA, endpointB, client, executor, bisync.Options{
		WorkDir: cfg.WorkDir,
		Retries: cfg.Retries,
		DryRun:  cfg.DryRun,
	})

	slog.Info("reconciling", "sideA", endpointA, "sideB", endpointB, "dryRun", cfg.DryRun)

	summary, err := syncer.Run(ctx)
	if err != nil {
		return &exitErr{syncExitCode(err), err}
	}

	for _, failure := range summary.Failures {
		slog.Error("action failed", "op", failure.Op, "path", failure.RelPath, "error", failure.Err)
	}
	for _, path := range summary.Conflicts {
		slog.Warn("unresolved conflict, changed on both sides", "path", path)
	}

	if summary.Verdict != bisync.VerdictOK || len(summary.Failures) > 0 {
		return &exitErr{exitConflicts, errors.New("completed with conflicts or failed actions")}
	}
	return nil
}

func syncExitCode(err error) int {
	var listErr *bisync.ListError
	switch {
	case errors.Is(err, bisync.ErrAlreadyLocked):
		return exitLocked
	case errors.Is(err, bisync.ErrBaselineCorrupt):
		return exitBaselineCorrupt
	case errors.Is(err, bisync.ErrWorkDir):
		return exitWorkDirUnusable
	case errors.As(err, &listErr):
		if listErr.Side == bisync.SideA {
			return exitListFailedA
		}
		return exitListFailedB
	default:
		return exitFailure
	}
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("rclone", "r", "rclone", "rclone executable file")
	rootCmd.Flags().String("rclone-config", "", "rclone configuration file")
	rootCmd.Flags().Int("retries", 1, "listing attempts per side before giving up")
	rootCmd.Flags().StringP("working-directory", "w", config.DefaultWorkDir, "directory for baseline and lock files")
	rootCmd.Flags().Bool("dry-run", false, "log the action plan without touching either side")
	rootCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")

	viper.BindPFlag("rclone", rootCmd.Flags().Lookup("rclone"))
	viper.BindPFlag("rclone_config", rootCmd.Flags().Lookup("rclone-config"))
	viper.BindPFlag("retries", rootCmd.Flags().Lookup("retries"))
	viper.BindPFlag("working_directory", rootCmd.Flags().Lookup("working-directory"))
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.SetEnvPrefix("BISYNC")
	viper.AutomaticEnv()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cobra.OnInitialize(func() {
		level := slog.LevelInfo
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		handler := tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		})
		slog.SetDefault(slog.New(handler))
	})

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)

		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitFailure)
	}
}
