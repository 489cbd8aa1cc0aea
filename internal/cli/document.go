package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/dom"
	"github.com/roach88/resumable/internal/proxy"
	"github.com/roach88/resumable/internal/qrl"
	"github.com/roach88/resumable/internal/snapshot"
	"github.com/roach88/resumable/internal/value"
)

// readDocument parses the HTML document at path.
func readDocument(path string) (*html.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read document", err)
	}
	defer f.Close()
	doc, err := html.Parse(f)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse document", err)
	}
	return doc, nil
}

// renderDocument serializes doc.
func renderDocument(doc *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return b.String(), nil
}

// writeDocument renders doc into the file at path.
func writeDocument(path string, doc *html.Node) error {
	page, err := renderDocument(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render document", err)
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write document", err)
	}
	return nil
}

// findContainer returns the element with id attribute id, or the first
// paused container when id is empty.
func findContainer(doc *html.Node, id string) (*html.Node, error) {
	if id != "" {
		el := dom.FindByID(doc, id)
		if el == nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("container element %q not found", id))
		}
		return el, nil
	}
	el := dom.FindPaused(doc)
	if el == nil {
		return nil, NewExitError(ExitCommandError, "no paused container in document")
	}
	return el, nil
}

// reportSnapshotError prints a snapshot failure through f and returns the
// exit error for it.
func reportSnapshotError(f *OutputFormatter, op string, err error) error {
	var se *snapshot.Error
	if !errors.As(err, &se) {
		return WrapExitError(ExitFailure, op+" failed", err)
	}
	var details any
	if se.ID != "" {
		details = map[string]string{"id": se.ID}
	}
	if ferr := f.Error(string(se.Code), se.Message, details); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitFailure, op+" failed", err)
}

// describeLive renders a live graph value on one line.
func describeLive(v any) string {
	switch x := v.(type) {
	case *proxy.Proxy:
		return "proxy " + describeLive(x.Target())
	case *value.Object:
		return fmt.Sprintf("object {%s}", strings.Join(x.Keys(), ", "))
	case *value.Array:
		return fmt.Sprintf("array [%d]", x.Len())
	case *qrl.QRL:
		return "closure " + x.String()
	case *html.Node:
		if dom.IsDocument(x) {
			return "document"
		}
		return "element " + dom.Describe(x)
	case string:
		return fmt.Sprintf("string %q", x)
	case nil:
		return "null"
	}
	if value.IsUndefined(v) {
		return "undefined"
	}
	return fmt.Sprintf("%s %v", value.KindOf(v), v)
}
