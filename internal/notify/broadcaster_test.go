package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for value")
	}
	var zero T
	return zero
}

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := range 100 {
		b.Publish(i)
	}
	for i := range 100 {
		assert.Equal(t, i, receive(t, ch))
	}
}

// Медленный подписчик не теряет события и не блокирует остальных.
func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster[int]()
	slow, cancelSlow := b.Subscribe()
	defer cancelSlow()
	fast, cancelFast := b.Subscribe()
	defer cancelFast()

	const n = 1000
	done := make(chan struct{})
	go func() {
		for i := range n {
			b.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow reader")
	}

	for i := range n {
		assert.Equal(t, i, receive(t, fast))
	}
	for i := range n {
		assert.Equal(t, i, receive(t, slow))
	}
}

func TestBroadcaster_CancelClosesChannel(t *testing.T) {
	b := NewBroadcaster[string]()
	ch, cancel := b.Subscribe()
	require.Equal(t, 1, b.Subscribers())

	b.Publish("dropped on cancel")
	cancel()
	cancel()

	assert.Equal(t, 0, b.Subscribers())
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestBroadcaster_CloseDrainsQueue(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(1)
	b.Publish(2)
	b.Close()
	b.Publish(3)

	assert.Equal(t, 1, receive(t, ch))
	assert.Equal(t, 2, receive(t, ch))

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestBroadcaster_SubscribeAfterClose(t *testing.T) {
	b := NewBroadcaster[int]()
	b.Close()
	b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestBroadcaster_OnlyValuesAfterSubscribe(t *testing.T) {
	b := NewBroadcaster[int]()
	b.Publish(0)

	ch, cancel := b.Subscribe()
	defer cancel()
	b.Publish(1)

	assert.Equal(t, 1, receive(t, ch))
}

func TestBroadcaster_ConcurrentPublishers(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, cancel := b.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				b.Publish(p*100 + i)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for range 200 {
		seen[receive(t, ch)] = true
	}
	assert.Len(t, seen, 200)
}
