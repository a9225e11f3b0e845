// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// Message is one dashboard event. Data is a JSON document.
type Message struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// bufferSize is the per-observer backlog; messages beyond it are dropped.
const bufferSize = 16

// Hub fans dashboard events out to connected admin observers.
// An admin may hold several connections (tabs, SSE and WebSocket at once).
// Observers only receive messages published while they are registered.
type Hub struct {
	observers map[int64][]chan Message
	dropped   atomic.Int64
	mu        sync.RWMutex
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		observers: make(map[int64][]chan Message),
	}
}

// Register adds an observer for adminID and returns its channel.
func (h *Hub) Register(adminID int64) chan Message {
	ch := make(chan Message, bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.observers[adminID] = append(h.observers[adminID], ch)
	return ch
}

// Unregister removes and closes an observer channel.
func (h *Hub) Unregister(adminID int64, ch chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	before := len(h.observers[adminID])
	h.observers[adminID] = lo.Filter(h.observers[adminID], func(c chan Message, _ int) bool {
		return c != ch
	})
	if len(h.observers[adminID]) == 0 {
		delete(h.observers, adminID)
	}
	if len(h.observers[adminID]) < before {
		close(ch)
	}
}

// Close disconnects every observer. Their channels are closed so streaming
// handlers return.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, chs := range h.observers {
		for _, ch := range chs {
			close(ch)
		}
	}
	clear(h.observers)
}

// SendToAdmin delivers msg to every connection of one admin.
func (h *Hub) SendToAdmin(adminID int64, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.deliver(h.observers[adminID], msg)
}

// Broadcast delivers msg to every connected observer and returns how many
// accepted it.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.observers), func(chs []chan Message) int {
		return h.deliver(chs, msg)
	})
}

// deliver must be called with mu held so no channel is closed mid-send.
func (h *Hub) deliver(chs []chan Message, msg Message) int {
	delivered := 0
	for _, ch := range chs {
		select {
		case ch <- msg:
			delivered++
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// ClientCount returns the total number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.observers), func(chs []chan Message) int {
		return len(chs)
	})
}

// AdminCount returns the number of admins with at least one connection.
func (h *Hub) AdminCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.observers)
}

// Dropped returns how many messages were discarded for slow observers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
