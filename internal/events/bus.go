// Package events is an in-process publish/subscribe bus for session
// lifecycle notifications. Delivery is synchronous to every handler
// subscribed at publish time.
package events

import (
	"log/slog"
	"sync"
)

// Event is anything published on the bus.
type Event interface {
	EventName() string
}

// Handler receives published events.
type Handler func(Event)

// Bus fans events out to subscribers.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h for all events. The returned function removes the
// subscription and is safe to call more than once.
func (b *Bus) Subscribe(h Handler) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every current subscriber. A nil bus drops events.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	// Handlers run outside the lock so they may publish or unsubscribe.
	for _, h := range hs {
		h(e)
	}
}

// Subscribe registers fn for events of type T only.
func Subscribe[T Event](b *Bus, fn func(T)) (cancel func()) {
	return b.Subscribe(func(e Event) {
		if typed, ok := e.(T); ok {
			fn(typed)
		}
	})
}

// LogSubscriber logs every event at info level, or warn for errors.
func LogSubscriber(b *Bus, logger *slog.Logger) (cancel func()) {
	return b.Subscribe(func(e Event) {
		switch ev := e.(type) {
		case LoginErrorEvent:
			attrs := []any{slog.String("blog", ev.BlogURL)}
			if ev.Err != nil {
				attrs = append(attrs, slog.String("error", ev.Err.Error()))
			}

			logger.Warn(ev.EventName(), attrs...)
		case CredentialsExpiredEvent:
			logger.Warn(ev.EventName(), slog.String("blog", ev.BlogURL))
		case LoginDoneEvent:
			logger.Info(ev.EventName(), slog.String("blog", ev.BlogURL))
		default:
			logger.Info(e.EventName())
		}
	})
}
