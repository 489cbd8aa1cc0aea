package dom

import (
	"sync"

	"golang.org/x/net/html"
)

// Event is a custom event dispatched on an element.
type Event struct {
	Name   string
	Target *html.Node
	Detail any
}

// Handler observes dispatched events.
type Handler func(Event)

type handlerEntry struct {
	id      uint64
	name    string
	handler Handler
}

var (
	eventsMu sync.Mutex
	handlers = make(map[*html.Node][]handlerEntry)
	nextID   uint64
)

// Listen registers h for events named name dispatched on el or any of its
// descendants. The returned function removes the registration.
func Listen(el *html.Node, name string, h Handler) func() {
	eventsMu.Lock()
	defer eventsMu.Unlock()
	nextID++
	id := nextID
	handlers[el] = append(handlers[el], handlerEntry{id: id, name: name, handler: h})
	return func() {
		eventsMu.Lock()
		defer eventsMu.Unlock()
		entries := handlers[el]
		for i, e := range entries {
			if e.id == id {
				handlers[el] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
		if len(handlers[el]) == 0 {
			delete(handlers, el)
		}
	}
}

// Dispatch delivers ev synchronously to handlers on the target and then on
// each ancestor (bubbling). Handlers run outside the registry lock.
func Dispatch(ev Event) {
	var toCall []Handler
	eventsMu.Lock()
	for n := ev.Target; n != nil; n = n.Parent {
		for _, e := range handlers[n] {
			if e.name == ev.Name {
				toCall = append(toCall, e.handler)
			}
		}
	}
	eventsMu.Unlock()
	for _, h := range toCall {
		h(ev)
	}
}
