package qrl

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrUnresolved is returned when invoking a QRL whose captures still hold
// snapshot ids or whose symbol is not registered.
var ErrUnresolved = errors.New("qrl: unresolved")

// QRL is a closure descriptor.
type QRL struct {
	Chunk    string
	Symbol   string
	Captured []any

	captureIDs []string
	symbols    *Registry
}

// New creates a QRL bound to no registry.
func New(chunk, symbol string, captured ...any) *QRL {
	return &QRL{Chunk: normalize(chunk), Symbol: normalize(symbol), Captured: captured}
}

// Bind attaches the registry used to resolve the closure body.
func (q *QRL) Bind(reg *Registry) *QRL {
	q.symbols = reg
	return q
}

// String returns chunk#symbol.
func (q *QRL) String() string {
	return q.Chunk + "#" + q.Symbol
}

// CaptureIDs returns the capture ids still waiting for resolution.
func (q *QRL) CaptureIDs() []string {
	return q.captureIDs
}

// Pending reports whether captures still need resolution.
func (q *QRL) Pending() bool {
	return len(q.captureIDs) > 0
}

// ResolveCaptures replaces the pending capture ids with the values getObject
// returns for them. The id list is discarded afterwards.
func (q *QRL) ResolveCaptures(getObject func(id string) (any, error)) error {
	if len(q.captureIDs) == 0 {
		return nil
	}
	captured := make([]any, len(q.captureIDs))
	for i, id := range q.captureIDs {
		v, err := getObject(id)
		if err != nil {
			return fmt.Errorf("qrl %s capture %d: %w", q, i, err)
		}
		captured[i] = v
	}
	q.Captured = captured
	q.captureIDs = nil
	return nil
}

// Invoke calls the registered closure body with the captured values.
func (q *QRL) Invoke(args ...any) (any, error) {
	if q.Pending() {
		return nil, fmt.Errorf("%w: %s has unresolved captures", ErrUnresolved, q)
	}
	fn, ok := q.symbols.Lookup(q.Chunk, q.Symbol)
	if !ok {
		return nil, fmt.Errorf("%w: symbol %s not registered", ErrUnresolved, q)
	}
	return fn(q.Captured, args...)
}

// Stringify renders q in descriptor form. getObjID maps each captured value
// to its snapshot id.
func Stringify(q *QRL, getObjID func(v any) (string, error)) (string, error) {
	if strings.ContainsAny(q.Chunk, "#[") {
		return "", fmt.Errorf("qrl: chunk %q contains a reserved character", q.Chunk)
	}
	if q.Symbol == "" || strings.ContainsAny(q.Symbol, "#[] ") {
		return "", fmt.Errorf("qrl: invalid symbol %q", q.Symbol)
	}
	var b strings.Builder
	b.WriteString(q.Chunk)
	b.WriteByte('#')
	b.WriteString(q.Symbol)
	if len(q.Captured) > 0 {
		b.WriteByte('[')
		for i, v := range q.Captured {
			id, err := getObjID(v)
			if err != nil {
				return "", fmt.Errorf("qrl %s capture %d: %w", q, i, err)
			}
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(id)
		}
		b.WriteByte(']')
	}
	return b.String(), nil
}

// Parse reads a descriptor produced by Stringify. Capture ids are kept
// pending until ResolveCaptures. The QRL is bound to reg.
func Parse(text string, reg *Registry) (*QRL, error) {
	hash := strings.IndexByte(text, '#')
	if hash < 0 {
		return nil, fmt.Errorf("qrl: missing '#' in %q", text)
	}
	q := &QRL{Chunk: normalize(text[:hash]), symbols: reg}
	rest := text[hash+1:]

	if open := strings.IndexByte(rest, '['); open >= 0 {
		if !strings.HasSuffix(rest, "]") {
			return nil, fmt.Errorf("qrl: unterminated capture list in %q", text)
		}
		q.captureIDs = strings.Fields(rest[open+1 : len(rest)-1])
		rest = rest[:open]
	}
	if rest == "" {
		return nil, fmt.Errorf("qrl: missing symbol in %q", text)
	}
	q.Symbol = normalize(rest)
	return q, nil
}

func normalize(s string) string {
	return norm.NFC.String(s)
}
