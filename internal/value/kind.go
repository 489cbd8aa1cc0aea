package value

import "fmt"

// Kind is the shape class of a runtime value.
type Kind int

const (
	// KindInvalid is any Go type the graph does not support.
	KindInvalid Kind = iota
	// KindNull is nil.
	KindNull
	// KindUndefined is Undefined.
	KindUndefined
	// KindBool is a bool.
	KindBool
	// KindNumber is an int64 or float64 (after Number normalization).
	KindNumber
	// KindString is a string.
	KindString
	// KindObject is *Object.
	KindObject
	// KindArray is *Array.
	KindArray
	// KindOpaque is *Opaque.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindOpaque:
		return "opaque"
	default:
		return "invalid"
	}
}

// KindOf classifies v. Types outside this package's model
// (closures, proxies, DOM nodes) report KindInvalid; callers that know
// about them check first.
func KindOf(v any) Kind {
	switch val := v.(type) {
	case nil:
		return KindNull
	case undefinedType:
		return KindUndefined
	case bool:
		return KindBool
	case string:
		return KindString
	case *Object:
		if val == nil {
			return KindNull
		}
		return KindObject
	case *Array:
		if val == nil {
			return KindNull
		}
		return KindArray
	case *Opaque:
		return KindOpaque
	}
	if _, ok := Number(v); ok {
		return KindNumber
	}
	return KindInvalid
}

// IsPrimitive reports whether v is null, bool, number or string.
func IsPrimitive(v any) bool {
	switch KindOf(v) {
	case KindNull, KindBool, KindNumber, KindString:
		return true
	}
	return false
}

// Number normalizes Go numeric types to int64 or float64.
// Integral kinds become int64; float32 widens to float64.
func Number(v any) (any, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return n, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float32:
		return float64(n), true
	}
	return nil, false
}

// MustNumber is like Number but panics on a non-numeric value.
// Use only in tests or when inputs are known to be valid.
func MustNumber(v any) any {
	n, ok := Number(v)
	if !ok {
		panic(fmt.Sprintf("value: %T is not a number", v))
	}
	return n
}
