// Package menu caches the per-shift menu. Dishes are replaced wholesale on
// every refresh; entries are never merged.
package menu

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"comedor/internal/models"
)

// Client is the slice of the backend gateway that serves menus.
type Client interface {
	MenuDelDia(ctx context.Context, turno string, forzar bool) (*models.MenuDelDia, error)
}

// Cache holds one menu per shift for the current session.
type Cache struct {
	client Client
	logger *zerolog.Logger

	mu       sync.Mutex
	porTurno map[string]*models.MenuDelDia
}

func NewCache(client Client, logger *zerolog.Logger) *Cache {
	return &Cache{
		client:   client,
		logger:   logger,
		porTurno: make(map[string]*models.MenuDelDia),
	}
}

// Obtener returns the menu for a shift, fetching it on first use. forzar
// bypasses both this cache and any gateway-side cache.
func (c *Cache) Obtener(ctx context.Context, turno string, forzar bool) (*models.MenuDelDia, error) {
	if !forzar {
		c.mu.Lock()
		cached, ok := c.porTurno[turno]
		c.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	m, err := c.client.MenuDelDia(ctx, turno, forzar)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.porTurno[turno] = m
	c.mu.Unlock()

	c.logger.Debug().Str("turno", turno).Int("platos", len(m.Menu)).Msg("menú cargado")
	return m, nil
}

// Actual returns the cached menu for a shift without fetching.
func (c *Cache) Actual(turno string) (*models.MenuDelDia, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.porTurno[turno]
	return m, ok
}

// Invalidar drops the cached menu for one shift.
func (c *Cache) Invalidar(turno string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.porTurno, turno)
}

// InvalidarTodo drops every cached menu.
func (c *Cache) InvalidarTodo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.porTurno = make(map[string]*models.MenuDelDia)
}
