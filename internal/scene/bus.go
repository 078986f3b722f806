package scene

import (
	"sync"
	"sync/atomic"
)

// EventType identifies a topic on the bus.
type EventType int32

var nextEventType atomic.Int32

// Topic is a typed event name. Listeners of a topic only ever receive T.
type Topic[T any] struct {
	Type EventType
	Name string
}

// NewTopic allocates a topic. Call it from package-level var blocks.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{Type: EventType(nextEventType.Add(1)), Name: name}
}

type listener struct {
	id int
	fn func(any)
}

// Bus dispatches typed events synchronously, in subscription order.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[EventType][]listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[EventType][]listener)}
}

// Subscribe registers fn for topic and returns a function that removes it.
func Subscribe[T any](b *Bus, topic Topic[T], fn func(T)) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[topic.Type] = append(b.listeners[topic.Type], listener{
		id: id,
		fn: func(v any) { fn(v.(T)) },
	})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic.Type, id) })
	}
}

// Publish delivers payload to every listener of topic. Listeners may
// subscribe or publish from inside a callback.
func Publish[T any](b *Bus, topic Topic[T], payload T) {
	b.mu.RLock()
	ls := make([]listener, len(b.listeners[topic.Type]))
	copy(ls, b.listeners[topic.Type])
	b.mu.RUnlock()

	for _, l := range ls {
		l.fn(payload)
	}
}

// Listeners returns how many listeners a topic currently has.
func Listeners[T any](b *Bus, topic Topic[T]) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[topic.Type])
}

func (b *Bus) remove(t EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[t]
	for i, l := range ls {
		if l.id == id {
			b.listeners[t] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}
