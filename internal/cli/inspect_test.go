package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resumable/internal/snapshot"
)

func TestInspect_Text(t *testing.T) {
	paused := writePaused(t, t.TempDir())

	out, _, err := execute(t, "inspect", paused)
	require.NoError(t, err)
	assert.Contains(t, out, "Container div#app: 1 elements, 3 objs")
	assert.Contains(t, out, `r="0!"`)
	assert.Contains(t, out, "{count=1 label=1}")
	assert.Contains(t, out, "#0:count")
	assert.Contains(t, out, `"hi"`)
	assert.Contains(t, out, "app.js#onClick[0!]")
}

func TestInspect_JSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "s.db")
	id := pauseCounter(t, dbPath)

	out, _, err := execute(t, "inspect", "--id", id, "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse[InspectResult](t, out)
	assert.Equal(t, "div#app", resp.Data.Container)
	require.Len(t, resp.Data.Ctx, 1)
	assert.Equal(t, "#0", resp.Data.Ctx[0].Element)
	assert.Equal(t, "0!", resp.Data.Ctx[0].Meta.R)
	assert.Equal(t, []ObjLine{
		{ID: "0", Kind: "record", Value: "{count=1 label=1}", Subs: "#0:count"},
		{ID: "1", Kind: "literal", Value: `"hi"`},
		{ID: "2", Kind: "closure", Value: "app.js#onClick[0!]"},
	}, resp.Data.Objs)
}

func TestInspect_NoScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.html")
	require.NoError(t, os.WriteFile(path, []byte(`<div id="app" q:container="paused"></div>`), 0o644))

	_, _, err := execute(t, "inspect", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no snapshot script")
}

func TestInspectState(t *testing.T) {
	state := &snapshot.State{
		Ctx: map[string]snapshot.Meta{
			"#a": {S: "2"},
			"#2": {H: "0 1", C: "theme=3"},
		},
		Objs: []snapshot.Entry{
			snapshot.Array{Items: []any{"3", nil, true}},
			snapshot.Closure{Text: "app.js#render"},
			snapshot.Sentinel{Of: snapshot.SentinelUndefined},
			snapshot.Sentinel{Of: snapshot.SentinelDocument},
		},
		Subs: []*snapshot.Subs{
			{Entries: []snapshot.SubEntry{{ID: "#2", All: true}, {ID: "1", Props: []string{"a", "b"}}}},
		},
	}

	res := inspectState("main", state)
	require.Len(t, res.Ctx, 2)
	assert.Equal(t, "#2", res.Ctx[0].Element)
	assert.Equal(t, "#a", res.Ctx[1].Element)
	assert.Equal(t, []ObjLine{
		{ID: "0", Kind: "array", Value: "[3 null true]", Subs: "#2:* 1:a,b"},
		{ID: "1", Kind: "closure", Value: "app.js#render"},
		{ID: "2", Kind: "sentinel", Value: "undefined"},
		{ID: "3", Kind: "sentinel", Value: "document"},
	}, res.Objs)

	assert.Equal(t, `h="0 1" c="theme=3"`, metaText(res.Ctx[0].Meta))
}
