package snapshot

import (
	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/value"
)

// sentinelKey is the canonical identity of a sentinel value. It is a
// distinct type so it can never collide with a user string.
type sentinelKey int

const (
	undefinedKey sentinelKey = iota + 1
	documentKey
)

func (k sentinelKey) entry() Entry {
	if k == documentKey {
		return Sentinel{Of: SentinelDocument}
	}
	return Sentinel{Of: SentinelUndefined}
}

// Normalize maps v to the canonical identity used for id assignment:
// the container document becomes the document sentinel, undefined values,
// no-serialize values and non-element nodes become the undefined sentinel,
// proxies become their target, and numbers are widened to int64 or float64.
// Everything else is returned unchanged.
func Normalize(v any, doc *html.Node) any {
	if n, ok := v.(*html.Node); ok {
		switch {
		case n == nil:
			return undefinedKey
		case doc != nil && n == doc:
			return documentKey
		case n.Type != html.ElementNode:
			return undefinedKey
		}
		return n
	}
	switch value.KindOf(v) {
	case value.KindUndefined, value.KindOpaque:
		return undefinedKey
	case value.KindNumber:
		n, _ := value.Number(v)
		return n
	}
	if t, ok := proxy.Target(v); ok {
		return t
	}
	return v
}
