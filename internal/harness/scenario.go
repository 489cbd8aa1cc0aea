package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/resumable/internal/schema"
)

// Scenario describes one container, the object graph attached to it, and
// what pausing and resuming it must produce.
//
// Strings in value positions are references when they start with "$"
// (a named value, or one of $undefined, $document, $opaque, $detached)
// or "@" (an element by its id attribute). A doubled prefix ("$$", "@@")
// escapes a literal string.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// HTML is the full document the container lives in.
	HTML string `yaml:"html"`

	// Container is the id attribute of the container element. Empty means
	// the document root.
	Container string `yaml:"container,omitempty"`

	// Dev enables development diagnostics and an indented carrier.
	Dev bool `yaml:"dev,omitempty"`

	// Values are the named values of the graph.
	Values map[string]ValueSpec `yaml:"values,omitempty"`

	// Elements attach component state to elements, keyed by id attribute.
	Elements map[string]ElementSpec `yaml:"elements,omitempty"`

	// Expect holds the expected pause outcome.
	Expect ExpectClause `yaml:"expect,omitempty"`

	// Assertions are checked after the run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ValueSpec defines one named value. Exactly one field is set.
type ValueSpec struct {
	Literal yaml.Node    `yaml:"literal,omitempty"`
	Object  yaml.Node    `yaml:"object,omitempty"`
	Array   yaml.Node    `yaml:"array,omitempty"`
	Closure *ClosureSpec `yaml:"closure,omitempty"`

	// Proxy names the value to wrap.
	Proxy       string           `yaml:"proxy,omitempty"`
	Subscribers []SubscriberSpec `yaml:"subscribers,omitempty"`

	Watch *WatchSpec `yaml:"watch,omitempty"`
}

// kinds lists the set fields of v.
func (v ValueSpec) kinds() []string {
	var out []string
	if v.Literal.Kind != 0 {
		out = append(out, "literal")
	}
	if v.Object.Kind != 0 {
		out = append(out, "object")
	}
	if v.Array.Kind != 0 {
		out = append(out, "array")
	}
	if v.Closure != nil {
		out = append(out, "closure")
	}
	if v.Proxy != "" {
		out = append(out, "proxy")
	}
	if v.Watch != nil {
		out = append(out, "watch")
	}
	return out
}

// ClosureSpec is a closure descriptor with its captured values.
type ClosureSpec struct {
	Chunk    string      `yaml:"chunk"`
	Symbol   string      `yaml:"symbol"`
	Captures []yaml.Node `yaml:"captures,omitempty"`
}

// SubscriberSpec subscribes Ref to a proxy. No props means all props.
type SubscriberSpec struct {
	Ref   string   `yaml:"ref"`
	Props []string `yaml:"props,omitempty"`
}

// WatchSpec defines a watcher.
type WatchSpec struct {
	Host    string `yaml:"host,omitempty"`
	Index   int    `yaml:"index"`
	Closure string `yaml:"closure,omitempty"`
	Dirty   bool   `yaml:"dirty,omitempty"`
	Effect  bool   `yaml:"effect,omitempty"`
}

// ElementSpec is the component state of one element.
type ElementSpec struct {
	Props  string      `yaml:"props,omitempty"`
	Render string      `yaml:"render,omitempty"`
	Refs   []yaml.Node `yaml:"refs,omitempty"`
	Seq    []yaml.Node `yaml:"seq,omitempty"`

	// Contexts maps context names to values, in order.
	Contexts yaml.Node `yaml:"contexts,omitempty"`

	Watches []string `yaml:"watches,omitempty"`

	// Listeners maps event names to closure references, in order.
	Listeners yaml.Node `yaml:"listeners,omitempty"`
}

// ExpectClause specifies the expected pause outcome.
type ExpectClause struct {
	// Error is the snapshot error code Pause must fail with. Empty means
	// Pause must succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of objs_count, revived, listener or log.
	Type string `yaml:"type"`

	// Count is the expected number of objs entries (objs_count).
	Count int `yaml:"count,omitempty"`

	// Element is the id attribute of the element (revived, listener).
	Element string `yaml:"element,omitempty"`

	// Path selects a value from the revived component state, e.g.
	// "props.count" or "refs.0.items.1" (revived).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value at Path (revived).
	Value yaml.Node `yaml:"value,omitempty"`

	// Event and Closure name a listener line in the paused document.
	Event   string `yaml:"event,omitempty"`
	Closure string `yaml:"closure,omitempty"`

	// Level and Message match a captured log record (log).
	Level   string `yaml:"level,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertObjsCount = "objs_count"
	AssertRevived   = "revived"
	AssertListener  = "listener"
	AssertLog       = "log"
)

// LoadScenario reads, schema-checks and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(filepath.Base(path), data)
}

// ParseScenario parses a scenario document. filename is only used in
// error positions.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	if err := schema.Validate(filename, data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks what the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.HTML == "" {
		return fmt.Errorf("html is required")
	}
	for name, v := range s.Values {
		if isBuiltin(name) {
			return fmt.Errorf("values.%s: name is reserved", name)
		}
		if kinds := v.kinds(); len(kinds) != 1 {
			return fmt.Errorf("values.%s: exactly one kind is required, got %v", name, kinds)
		}
		if v.Object.Kind != 0 && v.Object.Kind != yaml.MappingNode {
			return fmt.Errorf("values.%s: object must be a mapping", name)
		}
		if v.Array.Kind != 0 && v.Array.Kind != yaml.SequenceNode {
			return fmt.Errorf("values.%s: array must be a sequence", name)
		}
		if len(v.Subscribers) > 0 && v.Proxy == "" {
			return fmt.Errorf("values.%s: subscribers need a proxy", name)
		}
	}
	for id, el := range s.Elements {
		if (el.Props == "") != (el.Render == "") {
			return fmt.Errorf("elements.%s: props and render must be set together", id)
		}
		if el.Contexts.Kind != 0 && el.Contexts.Kind != yaml.MappingNode {
			return fmt.Errorf("elements.%s: contexts must be a mapping", id)
		}
		if el.Listeners.Kind != 0 && el.Listeners.Kind != yaml.MappingNode {
			return fmt.Errorf("elements.%s: listeners must be a mapping", id)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertObjsCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertRevived:
		if a.Element == "" || a.Path == "" {
			return fmt.Errorf("assertions[%d]: element and path are required for revived", index)
		}
	case AssertListener:
		if a.Element == "" || a.Event == "" || a.Closure == "" {
			return fmt.Errorf("assertions[%d]: element, event and closure are required for listener", index)
		}
	case AssertLog:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for log", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
