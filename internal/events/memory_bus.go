package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryBus is an in-process Bus for single-instance deployments. Slow
// subscribers drop events instead of blocking publishers.
type MemoryBus struct {
	log *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event
}

func NewMemoryBus(log *zap.Logger) *MemoryBus {
	return &MemoryBus{
		log:  log,
		subs: map[string]map[int]chan Event{},
	}
}

func (b *MemoryBus) Publish(_ context.Context, stream string, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs[stream] {
		select {
		case ch <- ev:
		default:
			b.log.Warn("dropping event for slow subscriber",
				zap.String("stream", stream),
				zap.Int("subscriber", id),
				zap.String("type", ev.Type),
			)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, stream string) (<-chan Event, func(), error) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[stream] == nil {
		b.subs[stream] = map[int]chan Event{}
	}
	b.subs[stream][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[stream], id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
