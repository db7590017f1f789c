// Package observable provides a typed value container that notifies
// subscribers synchronously on every update.
package observable

import "sync"

// Value holds the current value of type T and a set of listeners.
//
// Set replaces the value and then calls every listener, in subscription
// order, on the calling goroutine. Values handed to listeners must be treated
// as immutable snapshots.
type Value[T any] struct {
	mu        sync.RWMutex
	current   T
	listeners []*listener[T]
}

type listener[T any] struct {
	fn func(T)
}

// New returns a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set stores next and notifies listeners.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.current = next
	ls := make([]*listener[T], len(v.listeners))
	copy(ls, v.listeners)
	v.mu.Unlock()

	for _, l := range ls {
		l.fn(next)
	}
}

// Update atomically derives the next value from the current one and, when
// fn reports a change, stores and publishes it.
func (v *Value[T]) Update(fn func(T) (T, bool)) bool {
	v.mu.Lock()
	next, changed := fn(v.current)
	if !changed {
		v.mu.Unlock()
		return false
	}
	v.current = next
	ls := make([]*listener[T], len(v.listeners))
	copy(ls, v.listeners)
	v.mu.Unlock()

	for _, l := range ls {
		l.fn(next)
	}
	return true
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is safe to call more than once.
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	l := &listener[T]{fn: fn}
	v.mu.Lock()
	v.listeners = append(v.listeners, l)
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			for i, cur := range v.listeners {
				if cur == l {
					v.listeners = append(v.listeners[:i:i], v.listeners[i+1:]...)
					return
				}
			}
		})
	}
}
