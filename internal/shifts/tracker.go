// Package shifts tracks per-shift reservation availability.
package shifts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"comedor/internal/config"
	"comedor/internal/models"
)

// ErrTurnoDesconocido rejects a shift id that is not configured. Unknown ids
// are caller errors and never silently default.
var ErrTurnoDesconocido = errors.New("turno desconocido")

// Client is the slice of the backend gateway the tracker depends on.
type Client interface {
	DisponibilidadTurno(ctx context.Context, turno string) (*models.Disponibilidad, error)
	DisponibilidadTurnos(ctx context.Context) (map[string]models.Disponibilidad, error)
}

// Tracker recomputes shift availability on demand. It keeps only the last
// known state per shift, used to answer while the gateway is unreachable and
// to decide whether the active shift must be switched away. It never assumes
// a shift is open on gateway error.
type Tracker struct {
	client Client
	turnos []config.Turno
	logger *zerolog.Logger

	mu     sync.Mutex
	ultimo map[string]models.Disponibilidad
}

func NewTracker(client Client, turnos []config.Turno, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		client: client,
		turnos: turnos,
		logger: logger,
		ultimo: make(map[string]models.Disponibilidad),
	}
}

// desconocida is the explicit state reported for a shift that has never been
// checked successfully.
func desconocida(turno string) models.Disponibilidad {
	return models.Disponibilidad{
		Turno:         turno,
		Disponible:    false,
		PuedeReservar: false,
		Mensaje:       "Disponibilidad desconocida",
	}
}

// CheckAll fetches availability for every configured shift. On gateway
// failure it returns the last known state per shift (or the explicit unknown
// state) together with the error.
func (t *Tracker) CheckAll(ctx context.Context) (map[string]models.Disponibilidad, error) {
	disp, err := t.client.DisponibilidadTurnos(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("no se pudo verificar disponibilidad de turnos")
		return t.snapshot(), fmt.Errorf("check turnos: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tc := range t.turnos {
		d, ok := disp[tc.ID]
		if !ok {
			continue
		}
		t.ultimo[tc.ID] = d
	}
	return t.snapshotLocked(), nil
}

// CheckOne fetches availability for a single configured shift. The result is
// always freshly computed by the backend, never trusted from stale state.
func (t *Tracker) CheckOne(ctx context.Context, turno string) (*models.Disponibilidad, error) {
	if _, ok := t.turnoConfigurado(turno); !ok {
		return nil, fmt.Errorf("%w: %q", ErrTurnoDesconocido, turno)
	}

	disp, err := t.client.DisponibilidadTurno(ctx, turno)
	if err != nil {
		t.logger.Warn().Err(err).Str("turno", turno).Msg("no se pudo verificar disponibilidad")
		last := t.UltimaConocida(turno)
		return &last, fmt.Errorf("check turno %s: %w", turno, err)
	}

	t.mu.Lock()
	t.ultimo[turno] = *disp
	t.mu.Unlock()
	return disp, nil
}

// UltimaConocida returns the last successfully fetched state for a shift, or
// the explicit unknown state.
func (t *Tracker) UltimaConocida(turno string) models.Disponibilidad {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.ultimo[turno]; ok {
		return d
	}
	return desconocida(turno)
}

// TurnoActivo resolves which shift should be active given the current one.
// If the current shift is still open it stays. Otherwise the first open
// shift in configured order wins. ok=false means no shift is open and no
// shift should be selected.
func (t *Tracker) TurnoActivo(actual string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d, ok := t.ultimo[actual]; ok && d.Disponible {
		return actual, true
	}
	for _, tc := range t.turnos {
		if d, ok := t.ultimo[tc.ID]; ok && d.Disponible {
			return tc.ID, true
		}
	}
	return "", false
}

func (t *Tracker) turnoConfigurado(id string) (config.Turno, bool) {
	for _, tc := range t.turnos {
		if tc.ID == id {
			return tc, true
		}
	}
	return config.Turno{}, false
}

func (t *Tracker) snapshot() map[string]models.Disponibilidad {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// snapshotLocked must be called with t.mu held.
func (t *Tracker) snapshotLocked() map[string]models.Disponibilidad {
	out := make(map[string]models.Disponibilidad, len(t.turnos))
	for _, tc := range t.turnos {
		if d, ok := t.ultimo[tc.ID]; ok {
			out[tc.ID] = d
		} else {
			out[tc.ID] = desconocida(tc.ID)
		}
	}
	return out
}
