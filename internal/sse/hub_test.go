// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var hello = Message{Event: "test", Data: `"hello"`}

func receive(t *testing.T, ch chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a message")
		return Message{}
	}
}

func assertNothing(t *testing.T, ch chan Message) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	ch := hub.Register(1)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.AdminCount())

	// Second tab of the same admin
	ch2 := hub.Register(1)
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 1, hub.AdminCount())

	hub.Unregister(1, ch)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(1, ch2)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.AdminCount())

	_, open := <-ch
	assert.False(t, open, "unregister closes the channel")
}

func TestHub_UnregisterTwice(t *testing.T) {
	hub := NewHub()
	ch := hub.Register(1)

	hub.Unregister(1, ch)

	assert.NotPanics(t, func() { hub.Unregister(1, ch) })
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	ch1 := hub.Register(1)
	ch2 := hub.Register(2)
	hub.Broadcast(hello)

	hub.Close()

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, hello, receive(t, ch1), "buffered messages survive close")
	_, open := <-ch1
	assert.False(t, open)
	<-ch2
	_, open = <-ch2
	assert.False(t, open)
	assert.NotPanics(t, func() { hub.Unregister(1, ch1) })
}

func TestHub_SendToAdmin(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Register(1)
	ch2 := hub.Register(1)
	ch3 := hub.Register(2)

	n := hub.SendToAdmin(1, hello)

	assert.Equal(t, 2, n)
	assert.Equal(t, hello, receive(t, ch1))
	assert.Equal(t, hello, receive(t, ch2))
	assertNothing(t, ch3)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Register(1)
	ch2 := hub.Register(2)

	n := hub.Broadcast(hello)

	assert.Equal(t, 2, n)
	assert.Equal(t, hello, receive(t, ch1))
	assert.Equal(t, hello, receive(t, ch2))
}

func TestHub_BroadcastWithoutObservers(t *testing.T) {
	hub := NewHub()

	assert.Equal(t, 0, hub.Broadcast(hello))
}

func TestHub_LateObserverMissesEarlierEvents(t *testing.T) {
	hub := NewHub()

	hub.Broadcast(hello)
	ch := hub.Register(1)

	assertNothing(t, ch)
}

func TestHub_NonBlockingSend(t *testing.T) {
	hub := NewHub()
	ch := hub.Register(1)

	for range bufferSize {
		hub.SendToAdmin(1, hello)
	}

	done := make(chan int)
	go func() {
		done <- hub.SendToAdmin(1, hello)
	}()

	select {
	case n := <-done:
		assert.Equal(t, 0, n)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("SendToAdmin blocked on full channel")
	}
	assert.Equal(t, int64(1), hub.Dropped())

	hub.Unregister(1, ch)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	const numGoroutines = 100

	channels := make([]chan Message, numGoroutines)
	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			channels[idx] = hub.Register(int64(idx % 5))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, hub.ClientCount())
	assert.Equal(t, 5, hub.AdminCount())

	// Sends racing with unregistrations must not panic.
	for i := range numGoroutines {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Broadcast(hello)
		}()
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(int64(idx%5), channels[idx])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}
