package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/phpflow/internal/config"
	"github.com/l3aro/phpflow/internal/driver"
	"github.com/l3aro/phpflow/pkg/analysis"
	"github.com/l3aro/phpflow/pkg/cfg"
	"github.com/l3aro/phpflow/pkg/diag"
)

var errCheckFailed = errors.New("check failed")

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Analyse files and directories and report diagnostics",
	Long: `Builds the control flow graph of every routine in the given PHP files and
directories (default: the current directory) and prints the diagnostics
found. Unchanged files are served from the result cache.

Exits non-zero when an error is reported, or a warning with --strict.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		strict, _ := cmd.Flags().GetBool("strict")

		checks := analysis.DefaultOptions()
		checks.Unreachable = appConfig.WarnUnreachable
		checks.UnusedLabels = appConfig.WarnUnusedLabels

		d, results := newDriver(checks)
		if results != nil {
			defer func() {
				if err := results.Close(); err != nil {
					logger.Warn("saving cache failed", "error", err)
				}
			}()
		}

		start := time.Now()
		files, err := d.Run(cmd.Context(), args)
		if err != nil {
			return err
		}
		stats := d.Stats()
		logger.Debug("check finished",
			"files", stats.Files,
			"cached", stats.Cached,
			"routines", stats.Routines,
			"elapsed", time.Since(start))

		if appConfig.OutputFormat != config.FormatText {
			if err := cfg.Encode(cmd.OutOrStdout(), files, string(appConfig.OutputFormat)); err != nil {
				return err
			}
		}

		var errs, warns, infos int
		for _, f := range files {
			for _, dg := range f.AllDiagnostics() {
				switch {
				case dg.Severity >= diag.SeverityError:
					errs++
				case dg.Severity == diag.SeverityWarning:
					warns++
				default:
					infos++
				}
				if appConfig.OutputFormat == config.FormatText {
					printDiagnostic(cmd.OutOrStdout(), f.Path, dg)
				}
			}
			for _, r := range f.Routines {
				if r.Err != "" {
					errs++
					if appConfig.OutputFormat == config.FormatText {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s building %s: %s\n", bold(f.Path), errorC("error"), r.Name, r.Err)
					}
				}
			}
		}

		if appConfig.OutputFormat == config.FormatText {
			fmt.Fprintln(cmd.OutOrStdout(), summary("%d files, %d routines: %d errors, %d warnings, %d notes",
				len(files), countRoutines(files), errs, warns, infos))
		}

		if errs > 0 || (strict && warns > 0) {
			return errCheckFailed
		}
		return nil
	},
}

func countRoutines(files []*driver.FileResult) int {
	n := 0
	for _, f := range files {
		n += len(f.Routines)
	}
	return n
}

func init() {
	checkCmd.Flags().Bool("strict", false, "Treat warnings as errors")
}
