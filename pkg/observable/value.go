// Package observable holds a value and notifies subscribers when it changes.
package observable

import "sync"

// Value is a concurrency-safe observable value. Subscribers must not call Set
// or Subscribe on the same Value from inside their callback.
type Value[T any] struct {
	// notify is held while subscribers run, so each one sees values in the
	// order they were set, starting with the value current when it subscribed.
	notify  sync.Mutex
	mu      sync.Mutex
	current T
	nextID  int
	subs    map[int]func(T)
}

// New creates a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set stores next and notifies subscribers in subscription order.
// Subscribers run on the caller's goroutine.
func (v *Value[T]) Set(next T) {
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	v.current = next
	fns := v.snapshotLocked()
	v.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// Subscribe registers fn and immediately calls it with the current value.
// The returned function removes the subscription.
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	v.notify.Lock()
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	current := v.current
	v.mu.Unlock()

	fn(current)
	v.notify.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

func (v *Value[T]) snapshotLocked() []func(T) {
	fns := make([]func(T), 0, len(v.subs))
	for id := 0; id < v.nextID; id++ {
		if fn, ok := v.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}
