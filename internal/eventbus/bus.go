package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"image-bridge/internal/logger"
	"image-bridge/internal/models"
)

// Event types published by displays and legacy windows.
const (
	DisplayUpdated = "display.updated"
	DisplayDeleted = "display.deleted"
	LegacyChanged  = "legacy.changed"
	LegacyClosed   = "legacy.closed"
)

type Event struct {
	Type      string
	Timestamp time.Time
	Display   *models.Display
	Legacy    *models.LegacyImage
}

type EventHandler interface {
	Handle(event Event)
	GetID() string
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc struct {
	ID string
	Fn func(Event)
}

func (h HandlerFunc) Handle(event Event) { h.Fn(event) }
func (h HandlerFunc) GetID() string      { return h.ID }

// Bus queues events and delivers them through the executor, which runs
// handlers on the owner thread.
type Bus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	buffer      chan Event
	exec        func(func())
	log         logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	inflight    sync.WaitGroup

	// closeMu orders inflight.Add against the Wait in Shutdown.
	closeMu sync.Mutex
	closed  bool
}

// blocking lists the topics whose loss would leave a pairing out of sync.
// Publishing them waits for buffer space instead of dropping; handlers must
// not publish them.
var blocking = map[string]bool{
	DisplayUpdated: true,
	LegacyChanged:  true,
}

func NewBus(bufferSize int, exec func(func()), log logger.Logger) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	bus := &Bus{
		subscribers: make(map[string][]EventHandler),
		buffer:      make(chan Event, bufferSize),
		exec:        exec,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}

	bus.startWorker()
	return bus
}

// Publish queues an event. It reports false when the bus is shut down.
// Harmonization topics wait for buffer space; other events are dropped
// with a warning when the buffer is full.
func (b *Bus) Publish(event Event) bool {
	event.Timestamp = time.Now()

	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return false
	}
	b.inflight.Add(1)
	b.closeMu.Unlock()

	if blocking[event.Type] {
		select {
		case b.buffer <- event:
			return true
		case <-b.ctx.Done():
			b.inflight.Done()
			return false
		}
	}

	select {
	case b.buffer <- event:
		return true
	default:
		b.inflight.Done()
		b.log.Warning("EventBus", "event dropped, buffer full", map[string]interface{}{
			"type": event.Type,
		})
		return false
	}
}

func (b *Bus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

func (b *Bus) Unsubscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.subscribers[eventType]
	for i, h := range handlers {
		if h.GetID() == handler.GetID() {
			b.subscribers[eventType] = append(handlers[:i], handlers[i+1:]...)
			break
		}
	}
}

// Flush waits until every published event has been handled.
func (b *Bus) Flush() {
	b.inflight.Wait()
}

// Shutdown stops accepting events, waits for the queued ones and stops the
// worker.
func (b *Bus) Shutdown() {
	b.closeMu.Lock()
	b.closed = true
	b.closeMu.Unlock()

	b.Flush()
	b.cancel()
	b.wg.Wait()
}

func (b *Bus) startWorker() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		for {
			select {
			case event := <-b.buffer:
				b.dispatchEvent(event)
			case <-b.ctx.Done():
				return
			}
		}
	}()
}

func (b *Bus) dispatchEvent(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.subscribers[event.Type]))
	copy(handlers, b.subscribers[event.Type])
	b.mu.RUnlock()

	done := make(chan struct{})
	b.exec(func() {
		defer close(done)
		for _, handler := range handlers {
			b.handle(handler, event)
		}
	})
	<-done
	b.inflight.Done()
}

func (b *Bus) handle(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("EventBus", fmt.Errorf("handler panic: %v", r), map[string]interface{}{
				"handler": h.GetID(),
				"type":    event.Type,
			})
		}
	}()
	h.Handle(event)
}
