package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/resumable/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on the file name)
}

// TestResult is the outcome of a scenario directory.
type TestResult struct {
	*harness.SuiteResult
}

func (r TestResult) String() string {
	var b strings.Builder
	for _, f := range r.Failures {
		name := f.Scenario
		if name == "" {
			name = filepath.Base(f.Path)
		}
		fmt.Fprintf(&b, "✗ %s\n", name)
		for _, e := range f.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	if r.Total == 0 {
		b.WriteString("No scenarios found.")
		return b.String()
	}
	fmt.Fprintf(&b, "Test Summary: %d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		b.WriteString("\n✓ All scenarios passed")
	}
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run round-trip scenarios",
		Long: `Run every scenario file in a directory: build the graph, pause it,
store and restore the document, resume it and compare the revived graph
with the original. Scenario assertions are evaluated last.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  resumable test ./scenarios
  resumable test ./scenarios --filter "counter*"
  resumable test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	paths, err := harness.FindScenarios(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	paths, err = filterScenarios(paths, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter pattern", err)
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	for _, p := range paths {
		formatter.VerboseLog("Running %s", p)
	}
	result := TestResult{harness.RunFiles(paths)}

	if opts.Format == "json" && result.Failed > 0 {
		if err := formatter.Error("E_TEST_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), result.SuiteResult); err != nil {
			return err
		}
	} else if err := formatter.Success(result); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// filterScenarios keeps the paths whose base name, without extension,
// matches pattern.
func filterScenarios(paths []string, pattern string) ([]string, error) {
	if pattern == "" {
		return paths, nil
	}
	var out []string
	for _, p := range paths {
		base := filepath.Base(p)
		matched, err := filepath.Match(pattern, strings.TrimSuffix(base, filepath.Ext(base)))
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, p)
		}
	}
	return out, nil
}
