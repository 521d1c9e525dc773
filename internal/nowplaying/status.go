package nowplaying

import "sync"

// errorBuffer bounds undelivered error events per subscriber
const errorBuffer = 8

// Status broadcasts the busy flag and failures of one operation.
//
// Busy subscribers receive the current value on subscribe and then every
// change; a slow subscriber only ever sees the latest value. Error
// subscribers receive each failure once, from the moment they subscribe.
type Status struct {
	mu       sync.Mutex
	busy     bool
	busySubs map[chan bool]struct{}
	errSubs  map[chan error]struct{}
}

func newStatus() *Status {
	return &Status{
		busySubs: make(map[chan bool]struct{}),
		errSubs:  make(map[chan error]struct{}),
	}
}

// Busy reports whether the operation is currently running.
func (s *Status) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// SubscribeBusy returns a channel carrying busy changes, starting with the
// current value, and a function that unsubscribes and closes it.
func (s *Status) SubscribeBusy() (<-chan bool, func()) {
	ch := make(chan bool, 1)

	s.mu.Lock()
	ch <- s.busy
	s.busySubs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.busySubs[ch]; ok {
			delete(s.busySubs, ch)
			close(ch)
		}
	}
}

// SubscribeErrors returns a channel carrying failures that happen after the
// call, and a function that unsubscribes and closes it.
func (s *Status) SubscribeErrors() (<-chan error, func()) {
	ch := make(chan error, errorBuffer)

	s.mu.Lock()
	s.errSubs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.errSubs[ch]; ok {
			delete(s.errSubs, ch)
			close(ch)
		}
	}
}

func (s *Status) setBusy(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy == busy {
		return
	}
	s.busy = busy
	for ch := range s.busySubs {
		// Drop the stale value so the send below never blocks
		select {
		case <-ch:
		default:
		}
		ch <- busy
	}
}

func (s *Status) publishError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.errSubs {
		select {
		case ch <- err:
		default:
			// Subscriber is not keeping up, drop
		}
	}
}
