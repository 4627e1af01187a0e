package ksync

import "sync"

// EventKind identifies a kind of asynchronous notification posted to an
// EventBox.
type EventKind int

// Events maps an EventKind to whatever payload was set last.
type Events map[EventKind]any

// EventBox is a condition-variable-backed mailbox: Set records an event
// and wakes waiters, Wait blocks until one is pending. It is the same
// mailbox the teacher uses to fan events between its reader/matcher/
// terminal goroutines. The scheduler uses it only for timer ticks
// (PostTick sets one, Run waits for it); handing the baton to and from
// task goroutines goes over channels instead.
type EventBox struct {
	events Events
	cond   *sync.Cond
	ignore map[EventKind]bool
}

// NewEventBox returns an empty EventBox.
func NewEventBox() *EventBox {
	return &EventBox{
		events: make(Events),
		cond:   sync.NewCond(&sync.Mutex{}),
		ignore: make(map[EventKind]bool),
	}
}

// Wait blocks until at least one event is pending, then invokes
// callback with the pending set under the lock. callback is
// responsible for calling Clear if it wants the set consumed.
func (b *EventBox) Wait(callback func(*Events)) {
	b.cond.L.Lock()
	if len(b.events) == 0 {
		b.cond.Wait()
	}
	callback(&b.events)
	b.cond.L.Unlock()
}

// Set posts value under kind and wakes any waiter, unless kind is
// currently on the ignore list.
func (b *EventBox) Set(kind EventKind, value any) {
	b.cond.L.Lock()
	b.events[kind] = value
	if _, found := b.ignore[kind]; !found {
		b.cond.Broadcast()
	}
	b.cond.L.Unlock()
}

// Clear empties the event set. Unsynchronized; call only from within a
// Wait callback.
func (events *Events) Clear() {
	for k := range *events {
		delete(*events, k)
	}
}

// Peek reports whether kind is currently pending.
func (b *EventBox) Peek(kind EventKind) bool {
	b.cond.L.Lock()
	defer b.cond.L.Unlock()
	_, ok := b.events[kind]
	return ok
}

// Watch removes kinds from the ignore list so future Set calls on them
// wake waiters again.
func (b *EventBox) Watch(kinds ...EventKind) {
	b.cond.L.Lock()
	for _, k := range kinds {
		delete(b.ignore, k)
	}
	b.cond.L.Unlock()
}

// Unwatch adds kinds to the ignore list: Set still records the value
// but no longer broadcasts for it.
func (b *EventBox) Unwatch(kinds ...EventKind) {
	b.cond.L.Lock()
	for _, k := range kinds {
		b.ignore[k] = true
	}
	b.cond.L.Unlock()
}

// WaitFor blocks until kind has been posted at least once.
func (b *EventBox) WaitFor(kind EventKind) {
	looping := true
	for looping {
		b.Wait(func(events *Events) {
			if _, ok := (*events)[kind]; ok {
				looping = false
			}
		})
	}
}
