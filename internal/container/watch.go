package container

import (
	"golang.org/x/net/html"

	"github.com/roach88/resumable/internal/qrl"
)

// WatchFlags describe a watcher.
type WatchFlags int64

const (
	// WatchIsEffect marks a client-side effect.
	WatchIsEffect WatchFlags = 1 << iota
	// WatchIsWatch marks a tracked watch.
	WatchIsWatch
	// WatchIsDirty marks a watcher scheduled to re-run.
	WatchIsDirty
)

// Watch is a reactive side effect registered by a component.
// Once destroyed it never runs again.
type Watch struct {
	Flags WatchFlags
	// Index is the hook sequence slot the watcher occupies.
	Index int
	Host  *html.Node
	QRL   *qrl.QRL
	// Cleanup runs once on Destroy.
	Cleanup func()

	destroyed bool
}

// NewWatch creates an active watcher.
func NewWatch(host *html.Node, index int, q *qrl.QRL) *Watch {
	return &Watch{Flags: WatchIsWatch, Index: index, Host: host, QRL: q}
}

// Dirty reports whether the watcher is scheduled to re-run.
func (w *Watch) Dirty() bool {
	return w.Flags&WatchIsDirty != 0
}

// MarkDirty schedules the watcher.
func (w *Watch) MarkDirty() {
	if !w.destroyed {
		w.Flags |= WatchIsDirty
	}
}

// Active reports whether the watcher can still fire.
func (w *Watch) Active() bool {
	return !w.destroyed
}

// Run invokes the watcher closure unless it was destroyed.
func (w *Watch) Run(args ...any) (any, error) {
	if w.destroyed {
		return nil, nil
	}
	w.Flags &^= WatchIsDirty
	return w.QRL.Invoke(args...)
}

// Destroy detaches the watcher permanently and runs its cleanup.
func (w *Watch) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true
	w.Flags &^= WatchIsDirty
	if w.Cleanup != nil {
		cleanup := w.Cleanup
		w.Cleanup = nil
		cleanup()
	}
}
