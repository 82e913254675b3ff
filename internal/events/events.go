// Package events provides an explicit subscription interface for in-process
// change notifications.
package events

import (
	"sync"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// FavoritesChanged is published after every favorites mutation.
type FavoritesChanged struct {
	UserID    string            `json:"user_id"`
	RecipeID  string            `json:"recipe_id"`
	Added     bool              `json:"added"`
	Favorites []domain.Favorite `json:"favorites"`
}

// Broadcaster fans a value out to every current subscriber. Handlers run
// synchronously on the publishing goroutine, in subscription order.
type Broadcaster[T any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(T)
	ord  []int
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (b *Broadcaster[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(T))
	}
	id := b.next
	b.next++
	b.subs[id] = fn
	b.ord = append(b.ord, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.ord {
				if v == id {
					b.ord = append(b.ord[:i], b.ord[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers v to all subscribers.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	fns := make([]func(T), 0, len(b.ord))
	for _, id := range b.ord {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ord)
}
