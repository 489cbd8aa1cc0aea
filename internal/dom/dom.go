package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// IsDocument reports whether n is a document node.
func IsDocument(n *html.Node) bool {
	return n != nil && n.Type == html.DocumentNode
}

// Attr returns the value of the attribute key and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries the attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets key to val, replacing any existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key from n if present.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Root returns the topmost ancestor of n (n itself when it has no parent).
func Root(n *html.Node) *html.Node {
	for n != nil && n.Parent != nil {
		n = n.Parent
	}
	return n
}

// OwnerDocument returns the document node n belongs to, or nil when n is
// detached. A document node is its own owner.
func OwnerDocument(n *html.Node) *html.Node {
	root := Root(n)
	if IsDocument(root) {
		return root
	}
	return nil
}

// IsConnected reports whether n is attached to a document.
func IsConnected(n *html.Node) bool {
	return OwnerDocument(n) != nil
}

// DocumentElement returns the <html> element of doc.
func DocumentElement(doc *html.Node) *html.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			return c
		}
	}
	return nil
}

// Body returns the <body> element of doc, or nil.
func Body(doc *html.Node) *html.Node {
	de := DocumentElement(doc)
	if de == nil {
		return nil
	}
	for c := de.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) && c.DataAtom == atom.Body {
			return c
		}
	}
	return nil
}

// LastElementChild returns the last element child of n.
func LastElementChild(n *html.Node) *html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		if IsElement(c) {
			return c
		}
	}
	return nil
}

// PrevElementSibling returns the closest preceding element sibling.
func PrevElementSibling(n *html.Node) *html.Node {
	for c := n.PrevSibling; c != nil; c = c.PrevSibling {
		if IsElement(c) {
			return c
		}
	}
	return nil
}

// FindByID returns the first element in the subtree whose id attribute is id.
func FindByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if v, ok := Attr(n, "id"); ok && IsElement(n) && v == id {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// NewElement creates a detached element with the given tag.
func NewElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// Describe renders el as tag#id, or just the tag when el has no id.
func Describe(el *html.Node) string {
	if el == nil {
		return ""
	}
	if id, ok := Attr(el, "id"); ok && id != "" {
		return el.Data + "#" + id
	}
	return el.Data
}
