package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: counter
description: "Counter with a click listener"
html: |
  <html><head></head><body><div id="app"><button id="btn">0</button></div></body></html>
container: app
values:
  state:
    object: {count: 1, label: "hi"}
  store:
    proxy: state
    subscribers:
      - ref: "@btn"
        props: [count]
  onClick:
    closure: {chunk: app.js, symbol: onClick, captures: ["$store"]}
  w:
    watch: {host: "@btn", index: 0, closure: "$onClick"}
elements:
  btn:
    refs: ["$store", 3]
    seq: ["$w"]
    contexts: {theme: "dark"}
    watches: ["$w"]
    listeners:
      click: ["$onClick"]
expect: {}
assertions:
  - type: objs_count
    count: 4
  - type: revived
    element: btn
    path: refs.0.count
    value: 1
  - type: log
    level: WARN
    message: "dropping subscription"
`

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, Validate("counter.yaml", []byte(validScenario)))
}

func TestValidate_Minimal(t *testing.T) {
	doc := `
name: empty
description: "Nothing to pause"
html: "<html></html>"
`
	require.NoError(t, Validate("empty.yaml", []byte(doc)))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name: "unknown top-level field",
			doc: `
name: x
description: d
html: "<p></p>"
colour: red
`,
			wantMsg: "colour",
		},
		{
			name: "missing description",
			doc: `
name: x
html: "<p></p>"
`,
			wantMsg: "description",
		},
		{
			name: "bad name",
			doc: `
name: "Has Spaces"
description: d
html: "<p></p>"
`,
			wantMsg: "name",
		},
		{
			name: "unknown error code",
			doc: `
name: x
description: d
html: "<p></p>"
expect: {error: BROKEN}
`,
			wantMsg: "error",
		},
		{
			name: "negative watch index",
			doc: `
name: x
description: d
html: "<p></p>"
values:
  w:
    watch: {index: -1}
`,
			wantMsg: "values",
		},
		{
			name: "unknown element field",
			doc: `
name: x
description: d
html: "<p></p>"
elements:
  app:
    prop: "$x"
`,
			wantMsg: "elements",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("bad.yaml", []byte(tt.doc))
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_MalformedYAML(t *testing.T) {
	err := Validate("broken.yaml", []byte("name: [unterminated"))
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidationError_Format(t *testing.T) {
	err := &ValidationError{Path: "name", Message: "incomplete value"}
	assert.Equal(t, "name: incomplete value", err.Error())

	err = &ValidationError{Message: "bad"}
	assert.Equal(t, "bad", err.Error())
}
