package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
)

// State is the serialized form of a paused container.
//
// Objs and Subs are parallel: Subs[i] holds the subscription map of the
// proxy wrapping Objs[i], or nil. Subs may be shorter than Objs.
type State struct {
	Ctx  map[string]Meta
	Objs []Entry
	Subs []*Subs
}

// Meta is the per-element metadata record, keyed in State.Ctx by element id.
// Every field is a space-separated id list.
type Meta struct {
	// R lists the element's refs.
	R string `json:"r,omitempty"`
	// S lists the element's sequential hook state.
	S string `json:"s,omitempty"`
	// H is exactly two ids: props, then the render closure.
	H string `json:"h,omitempty"`
	// C lists context entries as name=id pairs.
	C string `json:"c,omitempty"`
	// W is the legacy name for S. Readers fall back to it when S is empty.
	W string `json:"w,omitempty"`
}

// IsZero reports whether m carries no metadata.
func (m Meta) IsZero() bool {
	return m == Meta{}
}

// EntryKind discriminates Entry variants.
type EntryKind int

const (
	EntryLiteral EntryKind = iota + 1
	EntrySentinel
	EntryClosure
	EntryArray
	EntryRecord
)

// String returns the kind name.
func (k EntryKind) String() string {
	switch k {
	case EntryLiteral:
		return "literal"
	case EntrySentinel:
		return "sentinel"
	case EntryClosure:
		return "closure"
	case EntryArray:
		return "array"
	case EntryRecord:
		return "record"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// Entry is one slot of State.Objs. It is a closed set: Literal, Sentinel,
// Closure, Array, Record.
type Entry interface {
	Kind() EntryKind
	entry()
}

// Literal is a primitive stored as itself: string, int64, float64, bool, or
// nil.
type Literal struct {
	Value any
}

// SentinelKind names a special value with no JSON form.
type SentinelKind int

const (
	SentinelUndefined SentinelKind = iota + 1
	SentinelDocument
)

// Sentinel is the undefined value or the container's document.
type Sentinel struct {
	Of SentinelKind
}

// Closure is a closure descriptor, "chunk#symbol[captureIds]".
type Closure struct {
	Text string
}

// Array holds one item per element: an id string or a non-string literal.
type Array struct {
	Items []any
}

// Record holds fields in key order. Each field is an id string or a
// non-string literal.
type Record struct {
	Keys   []string
	Fields map[string]any
}

func (Literal) Kind() EntryKind  { return EntryLiteral }
func (Sentinel) Kind() EntryKind { return EntrySentinel }
func (Closure) Kind() EntryKind  { return EntryClosure }
func (Array) Kind() EntryKind    { return EntryArray }
func (Record) Kind() EntryKind   { return EntryRecord }

func (Literal) entry()  {}
func (Sentinel) entry() {}
func (Closure) entry()  {}
func (Array) entry()    {}
func (Record) entry()   {}

// Subs is the serialized subscription map of one proxy, in subscriber
// order.
type Subs struct {
	Entries []SubEntry
}

// SubEntry maps a subscriber id to the properties it watches. All means
// the subscriber depends on every property.
type SubEntry struct {
	ID    string
	All   bool
	Props []string
}

// Encode renders s as JSON and escapes it for embedding in a script element.
func (s *State) Encode(indent bool) (string, error) {
	data, err := s.MarshalJSON()
	if err != nil {
		return "", err
	}
	if indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return "", fmt.Errorf("indent snapshot: %w", err)
		}
		data = buf.Bytes()
	}
	return EscapeText(string(data)), nil
}

// DecodeState parses text produced by State.Encode.
func DecodeState(text string) (*State, error) {
	var s State
	if err := json.Unmarshal([]byte(UnescapeText(text)), &s); err != nil {
		return nil, &Error{Code: ErrCodeMalformed, Message: "cannot parse snapshot", Err: err}
	}
	return &s, nil
}

// MarshalJSON writes {"ctx":...,"objs":[...],"subs":[...]} with ctx keys
// sorted and record keys in insertion order.
func (s *State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"ctx":{`)
	ids := make([]string, 0, len(s.Ctx))
	for id := range s.Ctx {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for i, id := range ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, id); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		meta, err := json.Marshal(s.Ctx[id])
		if err != nil {
			return nil, fmt.Errorf("ctx[%s]: %w", id, err)
		}
		buf.Write(meta)
	}
	buf.WriteString(`},"objs":[`)
	for i, e := range s.Objs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeEntry(&buf, e); err != nil {
			return nil, fmt.Errorf("objs[%d]: %w", i, err)
		}
	}
	buf.WriteString(`],"subs":[`)
	for i, sub := range s.Subs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeSubs(&buf, sub); err != nil {
			return nil, fmt.Errorf("subs[%d]: %w", i, err)
		}
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

func writeEntry(buf *bytes.Buffer, e Entry) error {
	switch e := e.(type) {
	case Literal:
		return writeLiteral(buf, e.Value)
	case Sentinel:
		switch e.Of {
		case SentinelUndefined:
			return writeString(buf, UndefinedPrefix)
		case SentinelDocument:
			return writeString(buf, DocumentPrefix)
		default:
			return fmt.Errorf("unknown sentinel %d", e.Of)
		}
	case Closure:
		return writeString(buf, ClosurePrefix+e.Text)
	case Array:
		buf.WriteByte('[')
		for i, item := range e.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeLiteral(buf, item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case Record:
		buf.WriteByte('{')
		for i, k := range e.Keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeLiteral(buf, e.Fields[k]); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("unsupported entry %T", e)
	}
}

func writeSubs(buf *bytes.Buffer, s *Subs) error {
	if s == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	for i, se := range s.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, se.ID); err != nil {
			return err
		}
		buf.WriteByte(':')
		if se.All {
			buf.WriteString("null")
			continue
		}
		buf.WriteByte('[')
		for j, p := range se.Props {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, p); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return nil
}

func writeLiteral(buf *bytes.Buffer, v any) error {
	switch v := v.(type) {
	case string:
		return writeString(buf, v)
	case nil, bool, int64, float64:
		data, err := json.Marshal(v)
		if err != nil {
			return &Error{Code: ErrCodeNotSerializable, Message: "literal has no JSON form", Value: v, Err: err}
		}
		buf.Write(data)
		return nil
	default:
		return &Error{Code: ErrCodeNotSerializable, Message: fmt.Sprintf("unsupported literal %T", v), Value: v}
	}
}

// writeString writes s as a JSON string without HTML escaping. Script
// safety comes from EscapeText.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// UnmarshalJSON decodes a State, keeping record and subscriber key order.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw struct {
		Ctx  map[string]Meta   `json:"ctx"`
		Objs []json.RawMessage `json:"objs"`
		Subs []json.RawMessage `json:"subs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Ctx = raw.Ctx
	if s.Ctx == nil {
		s.Ctx = make(map[string]Meta)
	}
	s.Objs = make([]Entry, len(raw.Objs))
	for i, r := range raw.Objs {
		e, err := decodeEntry(r)
		if err != nil {
			return fmt.Errorf("objs[%d]: %w", i, err)
		}
		s.Objs[i] = e
	}
	s.Subs = make([]*Subs, len(raw.Subs))
	for i, r := range raw.Subs {
		sub, err := decodeSubs(r)
		if err != nil {
			return fmt.Errorf("subs[%d]: %w", i, err)
		}
		s.Subs[i] = sub
	}
	return nil
}

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}

func decodeEntry(data json.RawMessage) (Entry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty entry")
	}
	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil, err
		}
		switch {
		case str == UndefinedPrefix:
			return Sentinel{Of: SentinelUndefined}, nil
		case str == DocumentPrefix:
			return Sentinel{Of: SentinelDocument}, nil
		case strings.HasPrefix(str, ClosurePrefix):
			return Closure{Text: strings.TrimPrefix(str, ClosurePrefix)}, nil
		default:
			return Literal{Value: str}, nil
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		arr := Array{Items: make([]any, len(items))}
		for i, item := range items {
			v, err := decodeRef(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr.Items[i] = v
		}
		return arr, nil
	case '{':
		return decodeRecord(data)
	default:
		v, err := decodeRef(data)
		if err != nil {
			return nil, err
		}
		return Literal{Value: v}, nil
	}
}

// decodeRecord walks the token stream so key order survives.
func decodeRecord(data []byte) (Record, error) {
	rec := Record{Fields: make(map[string]any)}
	dec := newDecoder(data)
	if _, err := dec.Token(); err != nil {
		return rec, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return rec, err
		}
		key, ok := tok.(string)
		if !ok {
			return rec, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return rec, fmt.Errorf("[%q]: %w", key, err)
		}
		v, err := decodeRef(raw)
		if err != nil {
			return rec, fmt.Errorf("[%q]: %w", key, err)
		}
		if _, dup := rec.Fields[key]; !dup {
			rec.Keys = append(rec.Keys, key)
		}
		rec.Fields[key] = v
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return rec, err
	}
	return rec, nil
}

// decodeRef decodes a scalar: an id string or a non-string literal.
// Integral numbers become int64, everything else float64.
func decodeRef(data json.RawMessage) (any, error) {
	dec := newDecoder(data)
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case nil, string, bool:
		return v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil && !strings.ContainsAny(v.String(), ".eE") {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", v, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("nested %T is not allowed inside an entry", v)
	}
}

func decodeSubs(data json.RawMessage) (*Subs, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	dec := newDecoder(data)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	subs := &Subs{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected subscriber id, got %v", tok)
		}
		var props *[]string
		if err := dec.Decode(&props); err != nil {
			return nil, fmt.Errorf("[%q]: %w", id, err)
		}
		se := SubEntry{ID: id, All: props == nil}
		if props != nil {
			se.Props = *props
		}
		subs.Entries = append(subs.Entries, se)
	}
	return subs, nil
}
