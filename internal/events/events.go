// Package events provides the in-process pub/sub channel between the core
// components and a view binder. The core publishes state changes; whatever
// renders the screen subscribes.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types published by the application context.
const (
	TipoDisponibilidad = "disponibilidad_actualizada"
	TipoMenuCargado    = "menu_cargado"
	TipoCarrito        = "carrito_actualizado"
	TipoReserva        = "reserva_confirmada"
	TipoServicio       = "servicio_no_disponible"
)

// Event is a lightweight state-change notification.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus is an in-process pub/sub bus. Handlers run synchronously on the
// publishing goroutine; the single-threaded UI model makes that sufficient.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON marshals the payload and publishes it under the given type.
func (b *Bus) PublishJSON(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Publish(Event{Type: eventType, Payload: data})
	return nil
}
