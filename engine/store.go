package engine

import (
	"bmon/interfaces"
	"sync"
)

// Store holds the current ViewState and broadcasts every replacement to its
// subscribers. Writes are restricted to the owning dispatcher (package
// private); reads and subscriptions are safe from any goroutine.
//
// Subscribers are notified in subscription order, synchronously, on the
// goroutine that performed the write. There is no buffering beyond the single
// current value: late subscribers receive the current snapshot immediately and
// never see historical intermediate values.
type Store struct {
	mu      sync.Mutex
	current ViewState
	subs    []*storeSubscription
}

func NewStore(initial ViewState) *Store {
	return &Store{current: initial}
}

// Current returns the current snapshot.
func (s *Store) Current() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers the observer and immediately delivers the current
// snapshot to it before any subsequent publish is observed.
func (s *Store) Subscribe(observer interfaces.Observer) interfaces.Subscription {
	sub := &storeSubscription{store: s, observer: observer}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	current := s.current
	s.mu.Unlock()

	observer.Notify(current)
	return sub
}

// Unsubscribe removes the observer. The observer must be a comparable type;
// prefer cancelling the Subscription handle, which does not compare.
func (s *Store) Unsubscribe(observer interfaces.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.observer == observer {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *Store) remove(sub *storeSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, k := range s.subs {
		if k == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// publish replaces the current snapshot and notifies subscribers in
// subscription order. Only the dispatcher may call this.
func (s *Store) publish(next ViewState) {
	s.mu.Lock()
	s.current = next
	subs := make([]*storeSubscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.isCancelled() {
			continue
		}
		sub.observer.Notify(next)
	}
}

type storeSubscription struct {
	store    *Store
	observer interfaces.Observer

	mu        sync.Mutex
	cancelled bool
}

func (k *storeSubscription) isCancelled() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cancelled
}

// Cancel stops future deliveries. It is idempotent.
func (k *storeSubscription) Cancel() {
	k.mu.Lock()
	if k.cancelled {
		k.mu.Unlock()
		return
	}
	k.cancelled = true
	k.mu.Unlock()

	k.store.remove(k)
}
