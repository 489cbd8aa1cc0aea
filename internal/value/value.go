package value

import "slices"

// Object is an ordered record of named fields.
// Field order is insertion order; Set on an existing key keeps its position.
type Object struct {
	keys   []string
	fields map[string]any
}

// Pair is a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value any
}

// F is a shorthand for Pair.
// Example: NewObject(F("count", int64(1)), F("label", "hi"))
func F(key string, v any) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject creates an Object from pairs, in order.
func NewObject(pairs ...Pair) *Object {
	o := &Object{fields: make(map[string]any, len(pairs))}
	for _, p := range pairs {
		o.Set(p.Key, p.Value)
	}
	return o
}

// Get returns the field value and whether it exists.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Set stores v under key.
func (o *Object) Set(key string, v any) {
	if o.fields == nil {
		o.fields = make(map[string]any)
	}
	if _, exists := o.fields[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Delete removes key if present.
func (o *Object) Delete(key string) {
	if _, exists := o.fields[key]; !exists {
		return
	}
	delete(o.fields, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
}

// Keys returns the field names in insertion order.
// The returned slice is a copy.
func (o *Object) Keys() []string {
	return slices.Clone(o.keys)
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.keys)
}

// Array is an ordered list of values with reference identity.
type Array struct {
	Items []any
}

// NewArray creates an Array holding items.
func NewArray(items ...any) *Array {
	return &Array{Items: items}
}

// Len returns the number of items.
func (a *Array) Len() int {
	return len(a.Items)
}

// Append adds items to the end of the array.
func (a *Array) Append(items ...any) {
	a.Items = append(a.Items, items...)
}

// undefinedType is the type of Undefined.
type undefinedType struct{}

func (undefinedType) String() string { return "undefined" }

// Undefined is the absent value. It differs from nil, which is JSON null.
var Undefined any = undefinedType{}

// IsUndefined reports whether v is Undefined.
func IsUndefined(v any) bool {
	_, ok := v.(undefinedType)
	return ok
}

// Opaque wraps a value that must not be serialized.
// A snapshot writes it as Undefined; after resume the slot holds Undefined.
type Opaque struct {
	Value any
}

// NoSerialize marks v as not serializable.
func NoSerialize(v any) *Opaque {
	return &Opaque{Value: v}
}
