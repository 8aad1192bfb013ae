package bus

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

// memoryBus delivers events to forwarders in the same process. Single-replica deployments and
// tests use it.
type memoryBus struct {
	log *logger.Logger

	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

func NewMemoryBus(log *logger.Logger) Bus {
	return &memoryBus{
		log:  log.With("service", "MemorySessionBus"),
		subs: map[int]func(Event){},
	}
}

func (b *memoryBus) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onEvent func(ev Event)) error {
	if onEvent == nil {
		return nil
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = onEvent
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	b.subs = map[int]func(Event){}
	b.mu.Unlock()
	return nil
}
