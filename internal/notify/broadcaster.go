// Package notify fans values out to any number of subscribers without ever
// dropping one. Each subscriber owns an unbounded FIFO drained by its own
// goroutine, so a slow reader delays only itself.
package notify

import (
	"sync"
)

// Broadcaster delivers every published value to every current subscriber in
// publish order.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber[T]
	nextID uint64
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[uint64]*subscriber[T])}
}

// Subscribe registers a new subscriber. The returned channel yields every
// value published after the call and is closed after cancel or after
// [Broadcaster.Close] once the queue is drained. cancel is idempotent.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	s := newSubscriber[T]()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.finish()
		go s.pump()
		return s.out, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	go s.pump()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			s.stop()
		})
	}
	return s.out, cancel
}

// Publish enqueues v for every subscriber. It never blocks on readers.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		s.push(v)
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops accepting values. Subscribers receive what is already queued
// and then see their channel closed.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		s.finish()
		delete(b.subs, id)
	}
}

type subscriber[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []T
	finished bool
	out      chan T
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscriber[T any]() *subscriber[T] {
	s := &subscriber[T]{
		out:  make(chan T),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.cond.Signal()
}

// finish lets the pump drain the queue and then close out.
func (s *subscriber[T]) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	s.cond.Signal()
}

// stop discards the queue and closes out as soon as possible.
func (s *subscriber[T]) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.finish()
	})
}

func (s *subscriber[T]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.finished {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		v := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-s.done:
			return
		}
	}
}
