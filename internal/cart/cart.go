// Package cart implements the order selection engine: the set of dishes a
// student has picked for the active shift, kept under a maximum total item
// count and protected against duplicate UI events.
package cart

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"comedor/internal/metrics"
	"comedor/internal/models"
)

var (
	// ErrLimiteExcedido rejects an addition that would push the cart past
	// its configured maximum item count. The cart is left unchanged.
	ErrLimiteExcedido = errors.New("límite de selecciones excedido")

	// ErrToqueDuplicado marks a mutating call suppressed by the re-entrancy
	// guard. It represents successful de-duplication, not failure: callers
	// log it and stay silent towards the user.
	ErrToqueDuplicado = errors.New("operación duplicada descartada")
)

// Linea is one selected dish with its quantity. Quantity is captured when
// the dish transitions into the cart and stays fixed until the dish is
// removed and re-added.
type Linea struct {
	Plato    models.Plato
	Cantidad int
}

// Carrito holds at most one line per dish id. Invariant: the sum of all
// line quantities never exceeds maxSelecciones; every operation either
// leaves the cart in a valid state or leaves it untouched.
type Carrito struct {
	mu             sync.Mutex
	lineas         map[string]*Linea
	orden          []string // dish ids in insertion order
	maxSelecciones int
	guard          *guard
	logger         *zerolog.Logger
}

func New(maxSelecciones int, guardWindow time.Duration, logger *zerolog.Logger) *Carrito {
	if maxSelecciones <= 0 {
		maxSelecciones = 1
	}
	return &Carrito{
		lineas:         make(map[string]*Linea),
		maxSelecciones: maxSelecciones,
		guard:          newGuard(guardWindow),
		logger:         logger,
	}
}

// Toggle selects the dish if absent and removes it if present. For a new
// selection the requested quantity is clamped to at least 1 and the addition
// is rejected with ErrLimiteExcedido when it would exceed the maximum.
// Returns whether the dish ended up selected.
func (c *Carrito) Toggle(plato models.Plato, cantidad int) (bool, error) {
	if !c.guard.tryAcquire(plato.ID) {
		metrics.IncGuardRejected()
		c.logger.Debug().Str("plato", plato.ID).Msg("toggle duplicado descartado")
		return false, ErrToqueDuplicado
	}
	defer c.guard.release(plato.ID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lineas[plato.ID]; ok {
		c.eliminar(plato.ID)
		return false, nil
	}

	if cantidad < 1 {
		cantidad = 1
	}
	if c.cantidadTotal()+cantidad > c.maxSelecciones {
		return false, fmt.Errorf("%w: máximo %d", ErrLimiteExcedido, c.maxSelecciones)
	}

	c.lineas[plato.ID] = &Linea{Plato: plato, Cantidad: cantidad}
	c.orden = append(c.orden, plato.ID)
	return true, nil
}

// Quitar removes a dish explicitly. Removing an absent dish is a no-op, not
// an error. Returns whether a line was removed.
func (c *Carrito) Quitar(platoID string) (bool, error) {
	if !c.guard.tryAcquire(platoID) {
		metrics.IncGuardRejected()
		c.logger.Debug().Str("plato", platoID).Msg("quitar duplicado descartado")
		return false, ErrToqueDuplicado
	}
	defer c.guard.release(platoID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lineas[platoID]; !ok {
		return false, nil
	}
	c.eliminar(platoID)
	return true, nil
}

// eliminar must be called with c.mu held.
func (c *Carrito) eliminar(platoID string) {
	delete(c.lineas, platoID)
	for i, id := range c.orden {
		if id == platoID {
			c.orden = append(c.orden[:i], c.orden[i+1:]...)
			break
		}
	}
}

// Limpiar empties the cart unconditionally, bypassing the guard. Called
// after a successful submission.
func (c *Carrito) Limpiar() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lineas = make(map[string]*Linea)
	c.orden = nil
}

// Total is the monetary total: sum of precio * cantidad over all lines.
func (c *Carrito) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, l := range c.lineas {
		total += l.Plato.Precio * float64(l.Cantidad)
	}
	return total
}

// Cantidad is the quantity-counted item total compared against the maximum.
func (c *Carrito) Cantidad() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cantidadTotal()
}

// cantidadTotal must be called with c.mu held.
func (c *Carrito) cantidadTotal() int {
	var n int
	for _, l := range c.lineas {
		n += l.Cantidad
	}
	return n
}

// Vacio reports whether no dish is selected.
func (c *Carrito) Vacio() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lineas) == 0
}

// Contiene reports whether the dish is currently selected.
func (c *Carrito) Contiene(platoID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lineas[platoID]
	return ok
}

// Lineas returns the selected lines in insertion order.
func (c *Carrito) Lineas() []Linea {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Linea, 0, len(c.orden))
	for _, id := range c.orden {
		out = append(out, *c.lineas[id])
	}
	return out
}

// Detalle renders the human-readable dish list for the reservation payload,
// e.g. "Arroz con pollo, Ceviche x2".
func (c *Carrito) Detalle() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts := make([]string, 0, len(c.orden))
	for _, id := range c.orden {
		l := c.lineas[id]
		if l.Cantidad > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", l.Plato.Nombre, l.Cantidad))
		} else {
			parts = append(parts, l.Plato.Nombre)
		}
	}
	return strings.Join(parts, ", ")
}
