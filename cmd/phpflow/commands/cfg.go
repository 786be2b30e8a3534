package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/phpflow/internal/config"
	"github.com/l3aro/phpflow/internal/driver"
	"github.com/l3aro/phpflow/pkg/analysis"
	"github.com/l3aro/phpflow/pkg/cfg"
)

// cfgCmd represents the cfg command
var cfgCmd = &cobra.Command{
	Use:   "cfg <file> [routine...]",
	Short: "Print the control flow graph of routines in a file",
	Long: `Builds the Control Flow Graph (CFG) of every routine in a PHP file, or of
the named ones. The global script body is called {main}, methods are named
Class::method and closures {closure#N}.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("path is a directory, expected a file: %s", filePath)
		}
		src, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		checks := analysis.Options{}
		if diagnostics, _ := cmd.Flags().GetBool("diagnostics"); diagnostics {
			checks = analysis.DefaultOptions()
			checks.Unreachable = appConfig.WarnUnreachable
			checks.UnusedLabels = appConfig.WarnUnusedLabels
		}
		d := driver.New(driver.Options{
			Workers:       appConfig.Workers,
			FoldConstants: appConfig.FoldConstants,
			Checks:        checks,
			Logger:        logger,
		})
		res, err := d.AnalyzeSource(cmd.Context(), filePath, src)
		if err != nil {
			return fmt.Errorf("building CFG: %w", err)
		}

		routines, err := selectRoutines(res, args[1:])
		if err != nil {
			return fmt.Errorf("%w in %s", err, filePath)
		}

		out := cmd.OutOrStdout()
		if appConfig.OutputFormat != config.FormatText {
			graphs := make([]*cfg.CFGInfo, 0, len(routines))
			for _, r := range routines {
				if r.Graph != nil {
					graphs = append(graphs, r.Graph)
				}
			}
			return cfg.Encode(out, graphs, string(appConfig.OutputFormat))
		}

		for _, dg := range res.Diagnostics {
			printDiagnostic(cmd.ErrOrStderr(), filePath, dg)
		}
		for _, r := range routines {
			printGraph(out, r)
			for _, dg := range r.Diagnostics {
				printDiagnostic(out, filePath, dg)
			}
		}
		return nil
	},
}

// selectRoutines returns the routines named in names, in file order, or all
// of them when names is empty.
func selectRoutines(res *driver.FileResult, names []string) ([]driver.RoutineResult, error) {
	if len(names) == 0 {
		return res.Routines, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []driver.RoutineResult
	for _, r := range res.Routines {
		if want[r.Name] {
			out = append(out, r)
			delete(want, r.Name)
		}
	}
	for _, n := range names {
		if !want[n] {
			continue
		}
		if s := findSimilarRoutines(res, n); len(s) > 0 {
			return nil, fmt.Errorf("routine %q not found\nDid you mean: %s?", n, strings.Join(s, ", "))
		}
		return nil, fmt.Errorf("routine %q not found", n)
	}
	return out, nil
}

// findSimilarRoutines finds routine names that contain name or are
// contained in it, ignoring case. Methods also match on their bare name.
func findSimilarRoutines(res *driver.FileResult, name string) []string {
	needle := strings.ToLower(name)
	var out []string
	for _, r := range res.Routines {
		hay := strings.ToLower(r.Name)
		bare := hay
		if i := strings.LastIndex(hay, "::"); i >= 0 {
			bare = hay[i+2:]
		}
		if strings.Contains(hay, needle) || strings.Contains(needle, bare) {
			out = append(out, r.Name)
		}
	}
	sort.Strings(out)
	return out
}

func init() {
	cfgCmd.Flags().BoolP("diagnostics", "d", false, "Also run the flow checks and print their diagnostics")
}
