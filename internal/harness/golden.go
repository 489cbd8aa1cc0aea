package harness

import (
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Report renders a result in the golden file format: the snapshot, the
// listener lines and the paused container.
func Report(r *Result) []byte {
	var b strings.Builder
	b.WriteString("scenario: " + r.Scenario + "\n")
	if r.PauseError != "" {
		b.WriteString("pause error: " + r.PauseError + "\n")
		return []byte(b.String())
	}
	b.WriteString("objs: " + strconv.Itoa(r.Objs) + "\n")

	b.WriteString("\n-- state --\n")
	b.WriteString(r.State)
	b.WriteString("\n")

	b.WriteString("\n-- listeners --\n")
	if len(r.Listeners) == 0 {
		b.WriteString("(none)\n")
	}
	for _, l := range r.Listeners {
		b.WriteString(l)
		b.WriteString("\n")
	}

	b.WriteString("\n-- html --\n")
	b.WriteString(r.HTML)
	b.WriteString("\n")
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its report against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Report(result))
}
