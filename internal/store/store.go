// Package store holds one immutable state value behind a pure reducer and
// notifies observers after every transition.
package store

import "sync"

// Reducer maps the current state and an action to the next state. It must be
// total: actions it does not recognize return state unchanged.
type Reducer[S, A any] func(state S, action A) S

// Observer receives the state produced by a dispatch.
type Observer[S any] func(state S)

type subscription[S any] struct {
	id       uint64
	observer Observer[S]
}

// Store serializes dispatches so each reduction observes the state produced by
// the previous one. States handed out by the store must be treated as read-only.
type Store[S, A any] struct {
	mu        sync.Mutex
	reducer   Reducer[S, A]
	state     S
	observers []subscription[S]
	nextID    uint64

	// pending holds states not yet delivered; delivering is set while one
	// goroutine drains it.
	pending    []S
	delivering bool
}

func New[S, A any](reducer Reducer[S, A], initial S) *Store[S, A] {
	return &Store[S, A]{
		reducer: reducer,
		state:   initial,
	}
}

// Dispatch applies the reducer, replaces the stored state and then calls every
// observer with the new state, in subscription order. Observers see states in
// dispatch order and are never called concurrently. A dispatch made while
// another goroutine (or an observer) is delivering is queued and delivered by
// that goroutine, so observers may read or dispatch without deadlocking.
func (s *Store[S, A]) Dispatch(action A) {
	s.mu.Lock()
	s.state = s.reducer(s.state, action)
	s.pending = append(s.pending, s.state)
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	s.mu.Unlock()

	drained := false
	defer func() {
		// An observer panicked; release delivery so later dispatches notify.
		if !drained {
			s.mu.Lock()
			s.delivering = false
			s.pending = nil
			s.mu.Unlock()
		}
	}()

	for {
		next, observers, ok := s.nextDelivery()
		if !ok {
			drained = true
			return
		}
		for _, sub := range observers {
			sub.observer(next)
		}
	}
}

// nextDelivery pops the oldest undelivered state with the observers current at
// that moment. It clears delivering once the queue is empty.
func (s *Store[S, A]) nextDelivery() (S, []subscription[S], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		s.pending = nil
		s.delivering = false
		var zero S
		return zero, nil, false
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	observers := make([]subscription[S], len(s.observers))
	copy(observers, s.observers)
	return next, observers, true
}

func (s *Store[S, A]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers observer and returns a function that removes it. The
// returned function is safe to call more than once.
func (s *Store[S, A]) Subscribe(observer Observer[S]) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, subscription[S]{id: id, observer: observer})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.observers {
				if sub.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}
