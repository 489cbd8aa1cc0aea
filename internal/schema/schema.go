package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"cuelang.org/go/encoding/yaml"
)

//go:embed scenario.cue
var scenarioSchema string

// ValidationError is a scenario document that does not satisfy #Scenario.
type ValidationError struct {
	// Path is the dotted path of the offending field, if known.
	Path    string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

var (
	compileOnce sync.Once
	cueCtx      *cue.Context
	scenarioDef cue.Value
	compileErr  error
)

func definition() (*cue.Context, cue.Value, error) {
	compileOnce.Do(func() {
		cueCtx = cuecontext.New()
		v := cueCtx.CompileString(scenarioSchema, cue.Filename("scenario.cue"))
		if err := v.Err(); err != nil {
			compileErr = fmt.Errorf("compile scenario schema: %w", err)
			return
		}
		scenarioDef = v.LookupPath(cue.ParsePath("#Scenario"))
		if !scenarioDef.Exists() {
			compileErr = fmt.Errorf("compile scenario schema: #Scenario not defined")
		}
	})
	return cueCtx, scenarioDef, compileErr
}

// Validate checks the YAML document data. filename is only used in error
// positions.
func Validate(filename string, data []byte) error {
	ctx, def, err := definition()
	if err != nil {
		return err
	}
	file, err := yaml.Extract(filename, data)
	if err != nil {
		return formatCUEError(err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}
	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	verr := &ValidationError{
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		verr.Pos = positions[0]
	}
	return verr
}
