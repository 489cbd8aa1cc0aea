package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resumable/internal/harness"
)

func TestTestCommand_Passes(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err)
	assert.Equal(t, "Test Summary: 3 passed, 0 failed, 3 total\n✓ All scenarios passed\n", out)
}

func TestTestCommand_Filter(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir, "--filter", "count*", "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse[harness.SuiteResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
}

func TestTestCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(counterScenario)
	require.NoError(t, err)
	broken := strings.Replace(string(data), "count: 3\n", "count: 4\n", 1)
	require.NotEqual(t, string(data), broken)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counter.yaml"), []byte(broken), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ counter\n")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")

	out, _, err = execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	resp := decodeResponse[harness.SuiteResult](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommand_Errors(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommand_Empty(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestFilterScenarios(t *testing.T) {
	paths := []string{"a/counter.yaml", "a/component.yml", "a/sentinels.yaml"}
	got, err := filterScenarios(paths, "co*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/counter.yaml", "a/component.yml"}, got)

	got, err = filterScenarios(paths, "")
	require.NoError(t, err)
	assert.Equal(t, paths, got)
}
