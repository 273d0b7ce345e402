// Package main is the CLI entry point for heliconf.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heliod-project/heliconf/internal/checks"
	"github.com/heliod-project/heliconf/internal/config"
	"github.com/heliod-project/heliconf/internal/infra"
	"github.com/heliod-project/heliconf/internal/report"
	"github.com/heliod-project/heliconf/internal/supervisor"
	"github.com/heliod-project/heliconf/internal/trace"
)

var (
	// Version info (set via ldflags)
	Version = "0.3.0"
	Commit  = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "heliconf",
	Short: "Conformance harness for heliod implementations",
	Long: `heliconf drives every available heliod implementation through the
shared protocol and verifies they honor identical external contracts:
file formats, CLI exit codes, signal-response timing, and syscall-level
behavior. The daemon is treated as a black box.

Exit code is 0 iff zero failures were recorded; skips never affect it.`,
	Version:       Version,
	RunE:          runSuite,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured implementation targets and check groups",
	RunE:  runList,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("heliconf %s (commit: %s)\n", Version, Commit)
	},
}

var (
	flagSkipBuild bool
	flagVerbose   bool
	flagConfig    string
	flagSourceDir string
	flagOnly      string
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagSkipBuild, "skip-build", false,
		"skip the build phase and use pre-built binaries")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"echo captured subprocess output during execution")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"path to a heliconf.yaml (defaults built in)")
	rootCmd.PersistentFlags().StringVar(&flagSourceDir, "source-dir", ".",
		"directory containing the implementation source trees")
	rootCmd.Flags().StringVar(&flagOnly, "only", "",
		"run a single check group (see 'heliconf list')")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSuite(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig, flagSourceDir)
	if err != nil {
		return err
	}
	logger := buildLogger()
	defer func() { _ = logger.Sync() }()

	ledger := report.NewLedger(os.Stdout)
	runner := infra.NewCommandRunner(logger, flagVerbose)
	prov := infra.NewSandboxProvisioner(logger)

	// The one piece of process-wide mutable state: every daemon the suite
	// starts lands here, and the shutdown hook reaps whatever is left no
	// matter how the harness exits.
	registry := supervisor.NewRegistry(logger)
	defer registry.DrainKillAll()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("interrupted, reaping daemons")
		cancel()
		registry.DrainKillAll()
		os.Exit(130)
	}()

	sup := supervisor.New(registry, infra.NewProcessManager(), logger)
	verifier := supervisor.NewTimingVerifier(sup, cfg.Deadline(), logger)
	auditor := trace.NewAuditor(sup, runner, logger)

	suite := checks.NewSuite(cfg, ledger, runner, prov, sup, verifier, auditor, logger,
		checks.Options{SkipBuild: flagSkipBuild, Only: flagOnly})
	if err := suite.Run(ctx); err != nil {
		return err
	}

	if !ledger.Summary() {
		registry.DrainKillAll()
		os.Exit(1)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig, flagSourceDir)
	if err != nil {
		return err
	}
	fmt.Println("Implementation targets:")
	for _, impl := range cfg.Implementations() {
		state := "not built"
		if _, err := os.Stat(impl.Binary); err == nil {
			state = "built"
		}
		fmt.Printf("  %-12s %s (%s)\n", impl.Name, impl.Binary, state)
	}

	logger := zap.NewNop()
	suite := checks.NewSuite(cfg, report.NewLedger(os.Stdout),
		infra.NewCommandRunner(logger, false), infra.NewSandboxProvisioner(logger),
		nil, nil, nil, logger, checks.Options{})
	fmt.Println("\nCheck groups:")
	for _, name := range suite.GroupNames() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func buildLogger() *zap.Logger {
	if flagVerbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
