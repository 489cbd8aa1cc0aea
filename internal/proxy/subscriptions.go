package proxy

import "slices"

// Subscription is one subscriber's dependency on a proxied value.
type Subscription struct {
	// Subscriber is an element (*html.Node) or any other value.
	Subscriber any
	// All is true when the subscriber depends on the whole value.
	All bool
	// Props lists the property names depended on when All is false.
	Props []string
}

// SubscriptionMap maps subscribers to the properties they depend on.
// Iteration follows first-subscription order.
type SubscriptionMap struct {
	order []any
	subs  map[any]*Subscription
}

// NewSubscriptionMap creates an empty map.
func NewSubscriptionMap() *SubscriptionMap {
	return &SubscriptionMap{subs: make(map[any]*Subscription)}
}

func (m *SubscriptionMap) entry(sub any) *Subscription {
	if m.subs == nil {
		m.subs = make(map[any]*Subscription)
	}
	e, ok := m.subs[sub]
	if !ok {
		e = &Subscription{Subscriber: sub}
		m.subs[sub] = e
		m.order = append(m.order, sub)
	}
	return e
}

// SubscribeAll records that sub depends on the whole value.
func (m *SubscriptionMap) SubscribeAll(sub any) {
	e := m.entry(sub)
	e.All = true
	e.Props = nil
}

// Subscribe records that sub depends on props. A subscriber already
// depending on the whole value is left unchanged.
func (m *SubscriptionMap) Subscribe(sub any, props ...string) {
	e := m.entry(sub)
	if e.All {
		return
	}
	for _, p := range props {
		if !slices.Contains(e.Props, p) {
			e.Props = append(e.Props, p)
		}
	}
}

// Get returns the subscription for sub.
func (m *SubscriptionMap) Get(sub any) (Subscription, bool) {
	if m == nil {
		return Subscription{}, false
	}
	e, ok := m.subs[sub]
	if !ok {
		return Subscription{}, false
	}
	return Subscription{Subscriber: e.Subscriber, All: e.All, Props: slices.Clone(e.Props)}, true
}

// Unsubscribe removes sub entirely.
func (m *SubscriptionMap) Unsubscribe(sub any) {
	if _, ok := m.subs[sub]; !ok {
		return
	}
	delete(m.subs, sub)
	m.order = slices.DeleteFunc(m.order, func(s any) bool { return s == sub })
}

// Len returns the number of subscribers.
func (m *SubscriptionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Entries returns the subscriptions in order.
func (m *SubscriptionMap) Entries() []Subscription {
	if m == nil {
		return nil
	}
	out := make([]Subscription, 0, len(m.order))
	for _, sub := range m.order {
		e := m.subs[sub]
		out = append(out, Subscription{Subscriber: e.Subscriber, All: e.All, Props: slices.Clone(e.Props)})
	}
	return out
}

// merge copies every subscription of other into m.
func (m *SubscriptionMap) merge(other *SubscriptionMap) {
	for _, s := range other.Entries() {
		if s.All {
			m.SubscribeAll(s.Subscriber)
		} else {
			m.Subscribe(s.Subscriber, s.Props...)
		}
	}
}
