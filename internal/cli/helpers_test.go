package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	scenariosDir    = filepath.Join("..", "harness", "testdata", "scenarios")
	counterScenario = filepath.Join(scenariosDir, "counter.yaml")
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decodeResponse[T any](t *testing.T, out string) response[T] {
	t.Helper()
	var resp response[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

// pauseCounter pauses the counter scenario into dbPath and returns the
// snapshot id.
func pauseCounter(t *testing.T, dbPath string, extra ...string) string {
	t.Helper()
	args := append([]string{"pause", counterScenario, "--db", dbPath, "--format", "json"}, extra...)
	out, _, err := execute(t, args...)
	require.NoError(t, err)
	resp := decodeResponse[PauseResult](t, out)
	require.NotEmpty(t, resp.Data.SnapshotID)
	return resp.Data.SnapshotID
}
