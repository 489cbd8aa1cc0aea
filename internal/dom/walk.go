package dom

import "golang.org/x/net/html"

// Predicate selects elements during a walk.
type Predicate func(*html.Node) bool

// Walk returns the elements of root's scope that satisfy pred, depth-first
// in document order. root itself is included when it matches. Nested
// containers are opaque: neither they nor their descendants are visited.
//
// Walk holds no state between calls; walking the same tree twice yields the
// same sequence.
func Walk(root *html.Node, pred Predicate) []*html.Node {
	var nodes []*html.Node
	if IsElement(root) && pred(root) {
		nodes = append(nodes, root)
	}
	return walkChildren(nodes, root, pred)
}

func walkChildren(nodes []*html.Node, parent *html.Node, pred Predicate) []*html.Node {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if !IsElement(c) || IsContainer(c) {
			continue
		}
		if pred(c) {
			nodes = append(nodes, c)
		}
		nodes = walkChildren(nodes, c, pred)
	}
	return nodes
}

// InScope reports whether Walk(root, ...) can visit el: el is root or a
// descendant of root with no nested container in between.
func InScope(root, el *html.Node) bool {
	if !IsElement(el) {
		return false
	}
	for n := el; n != nil; n = n.Parent {
		if n == root {
			return true
		}
		if IsContainer(n) {
			return false
		}
	}
	return false
}

// HasElementID selects elements that carry an assigned element id.
func HasElementID(n *html.Node) bool {
	return HasAttr(n, ElementIDAttr)
}
