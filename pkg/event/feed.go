// Package event provides typed, synchronous notification feeds.
//
// Each concern (graph replaced, algorithm replaced, task state) gets its own
// [Feed] carrying a concrete payload type, instead of a shared list of
// string-keyed listeners. Subscriptions are individually revocable.
//
//	sub := m.OnGraph(func(c event.Change[graph.Graph[string]]) {
//	    log.Info("graph replaced", "nodes", c.New.NodeCount())
//	})
//	defer sub.Unsubscribe()
package event

import "sync"

// Change carries the value before and after a state transition.
type Change[T any] struct {
	Old T
	New T
}

// Feed delivers values of type T to its subscribers.
//
// Send invokes every handler synchronously, in subscription order, on the
// sending goroutine. The subscriber list is snapshotted before delivery, so
// handlers may subscribe or unsubscribe without deadlocking. Handlers must
// not block.
//
// The zero value is ready to use. A Feed must not be copied after first use.
type Feed[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Subscription is a handle returned by [Feed.Subscribe].
type Subscription interface {
	// Unsubscribe stops delivery. Calling it more than once is a no-op.
	Unsubscribe()
}

type subscription[T any] struct {
	feed *Feed[T]
	id   uint64
	once sync.Once
}

func (s *subscription[T]) Unsubscribe() {
	s.once.Do(func() { s.feed.remove(s.id) })
}

// Subscribe registers fn and returns a handle that revokes it.
func (f *Feed[T]) Subscribe(fn func(T)) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.subs = append(f.subs, subscriber[T]{id: f.nextID, fn: fn})
	return &subscription[T]{feed: f, id: f.nextID}
}

// Send delivers v to every current subscriber and returns how many received it.
func (f *Feed[T]) Send(v T) int {
	f.mu.Lock()
	subs := make([]subscriber[T], len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
	return len(subs)
}

// Len returns the number of active subscriptions.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.id == id {
			f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
			return
		}
	}
}
