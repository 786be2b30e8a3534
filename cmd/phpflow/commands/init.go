package commands

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/phpflow/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a phpflow configuration file interactively",
	Long: `Guides you through setting up phpflow step by step and writes the answers
to ./.phpflow/config.yaml, or ~/.phpflow/config.yaml with --global.`,
	// The configuration being written may not load yet.
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")
		defaults, _ := cmd.Flags().GetBool("defaults")

		cfg := config.DefaultConfig()
		if !defaults {
			if err := runInit(cfg); err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		path := config.ProjectConfigFilePath()
		if global {
			path = config.GlobalConfigFilePath()
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func runInit(cfg *config.Config) error {
	// === SECTION 1: Output ===
	format := string(cfg.OutputFormat)
	workers := strconv.Itoa(cfg.Workers)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output format").
				Description("How cfg and check print their results").
				Options(
					huh.NewOption("Text (colored, human readable)", string(config.FormatText)),
					huh.NewOption("JSON", string(config.FormatJSON)),
					huh.NewOption("YAML", string(config.FormatYAML)),
					huh.NewOption("MessagePack", string(config.FormatMsgpack)),
				).
				Value(&format),
			huh.NewInput().
				Title("Concurrent workers").
				Placeholder(workers).
				Validate(func(s string) error {
					if n, err := strconv.Atoi(s); err != nil || n <= 0 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}).
				Value(&workers),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.OutputFormat = config.OutputFormat(format)
	cfg.Workers, _ = strconv.Atoi(workers)

	// === SECTION 2: Cache ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Result cache").
				Description("Skip files whose content has not changed since the last check?").
				Affirmative("Yes, cache results").
				Negative("No").
				Value(&cfg.CacheEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Analysis ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Fold constant conditions?").
				Description("Branches on literal conditions such as if (true) keep only the taken side").
				Value(&cfg.FoldConstants),
			huh.NewConfirm().
				Title("Warn about unreachable code?").
				Value(&cfg.WarnUnreachable),
			huh.NewConfirm().
				Title("Warn about unused labels?").
				Value(&cfg.WarnUnusedLabels),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	return nil
}

func init() {
	initCmd.Flags().Bool("global", false, "Write the user-wide configuration instead of the project one")
	initCmd.Flags().Bool("defaults", false, "Write the defaults without prompting")
}
