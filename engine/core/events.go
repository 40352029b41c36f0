package core

// EventCode identifies the kind of an event fired on a Bus.
type EventCode int

const (
	// A decal was created, mutated or removed. Payload is authoring-defined.
	EventDecalUpdated EventCode = iota + 1
	// A pointer-down hit test completed. Payload carries the UV and hit decal.
	EventDecalClicked
	// The compositor finished writing a frame into the texture slot.
	EventRecomposited
	// The gesture machine changed state (entered or left a gesture).
	EventGestureChanged
)

// Event is a single notification delivered to registered listeners.
type Event struct {
	Code    EventCode
	Sender  interface{}
	Payload interface{}
}

// Handler consumes an event. Returning true marks the event handled and
// stops delivery to the remaining listeners for that code.
type Handler func(event Event) bool

// ListenerHandle identifies a registration for later removal.
type ListenerHandle int

type registeredListener struct {
	handle   ListenerHandle
	callback Handler
}

// Bus is an instance-owned event dispatcher. Unlike a package-global
// registry, each Bus is created, handed to the components that need it and
// torn down with Close, so listener lifetime is tied to its owner.
//
// Bus is not safe for concurrent use; the engine is single-threaded and
// events fire synchronously on the caller's stack.
type Bus struct {
	listeners  map[EventCode][]registeredListener
	nextHandle ListenerHandle
	closed     bool
}

func NewBus() *Bus {
	return &Bus{
		listeners: make(map[EventCode][]registeredListener),
	}
}

// Register subscribes the handler to the given code and returns a handle
// usable with Unregister.
func (b *Bus) Register(code EventCode, handler Handler) ListenerHandle {
	if b.closed || handler == nil {
		return 0
	}
	b.nextHandle++
	b.listeners[code] = append(b.listeners[code], registeredListener{
		handle:   b.nextHandle,
		callback: handler,
	})
	return b.nextHandle
}

// Unregister removes a prior registration. It returns false if the handle
// is unknown for the given code.
func (b *Bus) Unregister(code EventCode, handle ListenerHandle) bool {
	entries := b.listeners[code]
	for i, e := range entries {
		if e.handle == handle {
			b.listeners[code] = append(entries[:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// Fire delivers the event to listeners in registration order. Delivery
// stops at the first handler that reports the event handled; Fire returns
// whether any handler did.
func (b *Bus) Fire(event Event) bool {
	if b.closed {
		return false
	}
	for _, e := range b.listeners[event.Code] {
		if e.callback(event) {
			return true
		}
	}
	return false
}

// Close drops every registration. Register and Fire become no-ops after
// Close; a Bus is not reusable.
func (b *Bus) Close() {
	b.closed = true
	b.listeners = nil
}
