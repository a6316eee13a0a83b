// Package notify fans out record change events to in-process subscribers.
package notify

import (
	"context"
	"sync"
	"time"
)

const (
	TableTransactions = "transactions"
	TableCategories   = "categories"
	TableSettings     = "settings"
	TableTemplates    = "bill_templates"
)

const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Tables lists every table that emits change events.
var Tables = []string{TableTransactions, TableCategories, TableSettings, TableTemplates}

// Event says that a row of Table changed. It carries no diff; consumers re-fetch.
type Event struct {
	Table  string    `json:"table"`
	Op     string    `json:"op"`
	UserID string    `json:"user_id"`
	ID     string    `json:"id,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher delivers change events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type subscription struct {
	id int
	fn func(Event)
}

// Hub delivers events synchronously to the subscribers of their table.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscription
}

var _ Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for changes of table. The returned func removes it.
func (h *Hub) Subscribe(table string, fn func(Event)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs[table] = append(h.subs[table], subscription{id: id, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		list := h.subs[table]
		for i, s := range list {
			if s.id == id {
				h.subs[table] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (h *Hub) Publish(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.mu.RLock()
	subs := append([]subscription(nil), h.subs[e.Table]...)
	h.mu.RUnlock()
	for _, s := range subs {
		s.fn(e)
	}
	return nil
}
