package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attribute names and values shared by the writer and the reader.
const (
	// ContainerAttr marks an element as a resumability boundary.
	ContainerAttr = "q:container"
	// ElementIDAttr holds an element's base-36 element id.
	ElementIDAttr = "q:id"

	// ContainerPaused is the marker value after a snapshot was embedded.
	ContainerPaused = "paused"
	// ContainerResumed is the marker value after a successful resume.
	ContainerResumed = "resumed"

	// SnapshotScriptType is the type attribute of the snapshot carrier.
	SnapshotScriptType = "qwik/json"

	// ResumeEvent is dispatched on the container once resume completes.
	ResumeEvent = "qresume"
)

// IsContainer reports whether el is marked as a container.
func IsContainer(el *html.Node) bool {
	return IsElement(el) && HasAttr(el, ContainerAttr)
}

// ContainerStatus returns the marker value ("" for an unmarked-but-declared
// container) and whether el is a container at all.
func ContainerStatus(el *html.Node) (string, bool) {
	return Attr(el, ContainerAttr)
}

// MarkContainer declares el a container without changing an existing status.
func MarkContainer(el *html.Node) {
	if !HasAttr(el, ContainerAttr) {
		SetAttr(el, ContainerAttr, "")
	}
}

// MarkPaused sets the container marker to paused.
func MarkPaused(el *html.Node) {
	SetAttr(el, ContainerAttr, ContainerPaused)
}

// MarkResumed sets the container marker to resumed.
func MarkResumed(el *html.Node) {
	SetAttr(el, ContainerAttr, ContainerResumed)
}

// IsDocumentRoot reports whether el is the <html> element of its document.
func IsDocumentRoot(el *html.Node) bool {
	doc := OwnerDocument(el)
	return doc != nil && DocumentElement(doc) == el
}

// SnapshotParent returns where the snapshot script lives for container el:
// the body when el is the document root, otherwise el itself.
func SnapshotParent(el *html.Node) *html.Node {
	if IsDocumentRoot(el) {
		if body := Body(OwnerDocument(el)); body != nil {
			return body
		}
	}
	return el
}

// FindSnapshotScript scans parent's element children from the last one
// backwards and returns the first snapshot carrier script.
func FindSnapshotScript(parent *html.Node) *html.Node {
	for c := LastElementChild(parent); c != nil; c = PrevElementSibling(c) {
		if c.DataAtom == atom.Script {
			if t, _ := Attr(c, "type"); t == SnapshotScriptType {
				return c
			}
		}
	}
	return nil
}

// NewSnapshotScript builds a detached carrier script holding text.
func NewSnapshotScript(text string) *html.Node {
	script := NewElement("script")
	SetAttr(script, "type", SnapshotScriptType)
	script.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return script
}

// TextContent concatenates the text children of n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// FindPaused returns the first paused container under root in document
// order, or nil.
func FindPaused(root *html.Node) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if status, ok := ContainerStatus(n); ok && IsElement(n) && status == ContainerPaused {
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
