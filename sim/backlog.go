package sim

import (
	"sort"
	"sync"
	"time"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
)

// Backlog is the set of orders still waiting for a crew. Orders enter once,
// carry over across days, and leave permanently when assigned. Safe for
// concurrent readers; removal is expected from a single writer.
type Backlog struct {
	mu       sync.RWMutex
	orders   map[int64]*model.ServiceOrder
	assigned map[int64]bool
}

// NewBacklog returns an empty backlog.
func NewBacklog() *Backlog {
	return &Backlog{
		orders:   make(map[int64]*model.ServiceOrder),
		assigned: make(map[int64]bool),
	}
}

// Add merges new orders in. Duplicates of pending or already-assigned orders
// are dropped, so re-reading a day's input never resurrects finished work.
// Returns how many orders were actually added.
func (b *Backlog) Add(orders []*model.ServiceOrder) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	added := 0
	for _, o := range orders {
		if o == nil || b.assigned[o.NumOS] {
			continue
		}
		if _, ok := b.orders[o.NumOS]; ok {
			continue
		}
		b.orders[o.NumOS] = o
		added++
	}
	return added
}

// Eligible returns the usable orders requested at or before cutoff, sorted by
// order number for determinism.
func (b *Backlog) Eligible(cutoff time.Time) []*model.ServiceOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*model.ServiceOrder, 0, len(b.orders))
	for _, o := range b.orders {
		if !o.Usable() || o.RequestedAt.After(cutoff) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NumOS < out[j].NumOS })
	return out
}

// Remove marks orders as assigned, removing them from every future day.
func (b *Backlog) Remove(numos ...int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range numos {
		delete(b.orders, n)
		b.assigned[n] = true
	}
}

// Assigned reports whether an order has already been dispatched.
func (b *Backlog) Assigned(numos int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.assigned[numos]
}

// PendingSplit counts pending orders requested on or after dayStart (new)
// versus carried over from earlier days (backlog).
func (b *Backlog) PendingSplit(dayStart time.Time) (newOrders, carried int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.RequestedAt.Before(dayStart) {
			carried++
		} else {
			newOrders++
		}
	}
	return newOrders, carried
}

// Len is the number of orders still pending.
func (b *Backlog) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}
