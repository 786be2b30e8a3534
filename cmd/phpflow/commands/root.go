// Package commands provides the CLI commands for phpflow.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/l3aro/phpflow/internal/config"
	"github.com/l3aro/phpflow/internal/driver"
	"github.com/l3aro/phpflow/internal/log"
	"github.com/l3aro/phpflow/internal/scanner"
	"github.com/l3aro/phpflow/pkg/analysis"
	"github.com/l3aro/phpflow/pkg/cache"
)

var (
	appConfig *config.Config
	logger    log.Logger = log.Nop()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "phpflow",
	Short: "phpflow - control flow graphs for PHP",
	Long: `phpflow builds a control flow graph for every routine of a PHP program
and reports what it finds along the way: unreachable code, unused labels,
misplaced break/continue and goto to undefined labels.

Commands:
  cfg         Print the control flow graph of routines in a file
  check       Analyse files and directories and report diagnostics
  init        Write a configuration file interactively
  version     Print version information

Use "phpflow [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.String("config", "", "Config file path (default: ./.phpflow/config.yaml, then ~/.phpflow/config.yaml)")
	flags.StringP("format", "f", "", "Output format: text, json, yaml or msgpack")
	flags.IntP("workers", "w", 0, "Number of concurrent workers")
	flags.Bool("fold", false, "Fold constant branch conditions before analysis")
	flags.Bool("no-cache", false, "Disable the result cache")
	flags.BoolP("verbose", "v", false, "Verbose logging")

	RootCmd.AddCommand(cfgCmd)
	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(versionCmd)
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("format") {
		format, _ := cmd.Flags().GetString("format")
		cfg.OutputFormat = config.OutputFormat(strings.ToLower(format))
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if fold, _ := cmd.Flags().GetBool("fold"); fold {
		cfg.FoldConstants = true
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.CacheEnabled = false
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return err
	}
	logger = log.New(log.LoggerConfig{
		Level:      level,
		JSONOutput: cfg.LogJSON,
		Output:     os.Stderr,
	})
	appConfig = cfg
	return nil
}

// newDriver wires a driver from the loaded configuration. The returned
// cache is nil when caching is disabled.
func newDriver(checks analysis.Options) (*driver.Driver, *cache.Results) {
	var results *cache.Results
	if appConfig.CacheEnabled {
		results = cache.NewResults(appConfig.CacheMaxEntries, appConfig.CachePath)
		if err := results.Open(); err != nil {
			logger.Warn("cache unavailable", "path", appConfig.CachePath, "error", err)
			results = nil
		}
	}

	opts := scanner.DefaultOptions()
	opts.Extensions = appConfig.Extensions
	opts.IgnoreFileName = appConfig.IgnoreFile

	d := driver.New(driver.Options{
		Workers:       appConfig.Workers,
		FoldConstants: appConfig.FoldConstants,
		Checks:        checks,
		Cache:         results,
		Scanner:       scanner.New(opts),
		Logger:        logger,
	})
	return d, results
}
