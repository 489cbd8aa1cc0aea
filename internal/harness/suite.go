package harness

import (
	"fmt"
	"path/filepath"
	"slices"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one failed scenario file.
type ScenarioFailure struct {
	Path     string   `json:"path"`
	Scenario string   `json:"scenario,omitempty"`
	Errors   []string `json:"errors"`
}

// FindScenarios returns the scenario files in dir, sorted by name.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("find scenarios: %w", err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return paths, nil
}

// RunFiles runs every scenario file. Load and execution failures count as
// failed scenarios rather than aborting the suite.
func RunFiles(paths []string) *SuiteResult {
	res := &SuiteResult{}
	for _, path := range paths {
		res.Total++
		sc, err := LoadScenario(path)
		if err != nil {
			res.fail(ScenarioFailure{Path: path, Errors: []string{err.Error()}})
			continue
		}
		out, err := Run(sc)
		if err != nil {
			res.fail(ScenarioFailure{Path: path, Scenario: sc.Name, Errors: []string{err.Error()}})
			continue
		}
		if !out.Pass {
			res.fail(ScenarioFailure{Path: path, Scenario: sc.Name, Errors: out.Errors})
			continue
		}
		res.Passed++
	}
	return res
}

func (r *SuiteResult) fail(f ScenarioFailure) {
	r.Failed++
	r.Failures = append(r.Failures, f)
}
