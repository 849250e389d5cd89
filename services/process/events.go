package process

import "sync"

// DocumentsChanged is published after an upload or delete in a folder
type DocumentsChanged struct {
	CaseID     string
	Phase      string
	FolderType string
}

// Bus fans DocumentsChanged events out to subscribers
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(DocumentsChanged)
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(DocumentsChanged))}
}

// Subscribe registers fn and returns a function that removes it
func (b *Bus) Subscribe(fn func(DocumentsChanged)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to every current subscriber.
// Handlers run on the caller's goroutine and must not block.
func (b *Bus) Publish(ev DocumentsChanged) {
	b.mu.RLock()
	handlers := make([]func(DocumentsChanged), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscribers returns the number of registered handlers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
