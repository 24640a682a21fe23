// Package app wires the core components into the application context a view
// binder drives. It owns the active shift, forwards user intents into the
// cart and submitter, and publishes state changes on the event bus.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"comedor/internal/cart"
	"comedor/internal/config"
	"comedor/internal/events"
	"comedor/internal/menu"
	"comedor/internal/metrics"
	"comedor/internal/models"
	"comedor/internal/report"
	"comedor/internal/reservation"
	"comedor/internal/shifts"
	"comedor/internal/store"
)

// Gateway is the full backend surface the application context needs. Both
// the web app client and the direct Sheets client satisfy it.
type Gateway interface {
	DisponibilidadTurno(ctx context.Context, turno string) (*models.Disponibilidad, error)
	DisponibilidadTurnos(ctx context.Context) (map[string]models.Disponibilidad, error)
	MenuDelDia(ctx context.Context, turno string, forzar bool) (*models.MenuDelDia, error)
	CrearReserva(ctx context.Context, reserva *models.Reserva) (*models.Confirmacion, error)
	Reservas(ctx context.Context, fecha, turno string) ([]models.ReservaRegistrada, error)
}

// ErrServicioNoDisponible is returned when the cafeteria does not operate
// today (weekend or disabled day). The app stays interactive.
var ErrServicioNoDisponible = errors.New("servicio de comedor no disponible hoy")

type App struct {
	cfg       *config.Config
	gateway   Gateway
	carrito   *cart.Carrito
	tracker   *shifts.Tracker
	menus     *menu.Cache
	submitter *reservation.Submitter
	store     *store.Store
	bus       *events.Bus
	logger    *zerolog.Logger
	now       func() time.Time

	mu            sync.Mutex
	turnoActual   string
	puedeReservar bool
}

func New(cfg *config.Config, gw Gateway, st *store.Store, bus *events.Bus, logger *zerolog.Logger) *App {
	tracker := shifts.NewTracker(gw, cfg.Turnos, logger)
	return &App{
		cfg:       cfg,
		gateway:   gw,
		carrito:   cart.New(cfg.Carrito.MaxSelecciones, cfg.GuardWindow(), logger),
		tracker:   tracker,
		menus:     menu.NewCache(gw, logger),
		submitter: reservation.NewSubmitter(gw, tracker, logger),
		store:     st,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
	}
}

// Init checks the business-day gate, fetches availability for all shifts
// and activates the default shift, falling back to the first open one.
func (a *App) Init(ctx context.Context) error {
	if !a.cfg.EsDiaHabil(a.now()) {
		a.logger.Info().Str("dia", config.NombreDia(a.now())).Msg("día no hábil")
		_ = a.bus.PublishJSON(events.TipoServicio, map[string]string{
			"mensaje": a.cfg.Mensajes.FinSemana,
		})
		return ErrServicioNoDisponible
	}

	disp, err := a.tracker.CheckAll(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("disponibilidad inicial incompleta")
	}
	_ = a.bus.PublishJSON(events.TipoDisponibilidad, disp)

	turno := a.cfg.TurnoDefault
	if d, ok := disp[turno]; !ok || !d.Disponible {
		elegido, abierto := a.tracker.TurnoActivo(turno)
		if !abierto {
			a.logger.Info().Msg("ningún turno abierto")
			a.mu.Lock()
			a.turnoActual = ""
			a.puedeReservar = false
			a.mu.Unlock()
			_ = a.bus.PublishJSON(events.TipoServicio, map[string]string{
				"mensaje": a.cfg.Mensajes.ReservaCerrada,
			})
			return nil
		}
		turno = elegido
	}

	return a.CambiarTurno(ctx, turno)
}

// CambiarTurno switches the active shift: re-checks its availability, loads
// its menu and publishes both. The cart is not carried across shifts.
func (a *App) CambiarTurno(ctx context.Context, turno string) error {
	disp, err := a.tracker.CheckOne(ctx, turno)
	if err != nil {
		if errors.Is(err, shifts.ErrTurnoDesconocido) {
			return err
		}
		// Last known state; never assume the shift is open.
		a.logger.Warn().Err(err).Str("turno", turno).Msg("usando última disponibilidad conocida")
	}

	a.mu.Lock()
	if a.turnoActual != "" && a.turnoActual != turno {
		a.carrito.Limpiar()
	}
	a.turnoActual = turno
	a.puedeReservar = disp.PuedeReservar
	a.mu.Unlock()

	metrics.IncShiftSwitched(turno)
	_ = a.bus.PublishJSON(events.TipoDisponibilidad, map[string]models.Disponibilidad{turno: *disp})

	m, err := a.menus.Obtener(ctx, turno, false)
	if err != nil {
		return fmt.Errorf("cargar menú %s: %w", turno, err)
	}
	if !m.DiaDisponible {
		_ = a.bus.PublishJSON(events.TipoServicio, map[string]string{"mensaje": m.Mensaje})
		return nil
	}

	_ = a.bus.PublishJSON(events.TipoMenuCargado, m)
	a.publicarCarrito()
	return nil
}

// RecargarMenu force-refreshes the active shift's menu.
func (a *App) RecargarMenu(ctx context.Context) error {
	a.mu.Lock()
	turno := a.turnoActual
	a.mu.Unlock()
	if turno == "" {
		return ErrServicioNoDisponible
	}

	m, err := a.menus.Obtener(ctx, turno, true)
	if err != nil {
		return err
	}
	_ = a.bus.PublishJSON(events.TipoMenuCargado, m)
	return nil
}

// SeleccionarPlato toggles a dish from the active menu in or out of the
// cart. Duplicate clicks suppressed by the guard are logged and swallowed;
// they are successful de-duplication, not failures.
func (a *App) SeleccionarPlato(platoID string, cantidad int) error {
	a.mu.Lock()
	turno := a.turnoActual
	puede := a.puedeReservar
	a.mu.Unlock()

	if !puede {
		return reservation.ErrReservasCerradas
	}

	m, ok := a.menus.Actual(turno)
	if !ok {
		return fmt.Errorf("menú no cargado para %s", turno)
	}
	plato, ok := m.PlatoPorID(platoID)
	if !ok {
		return fmt.Errorf("plato desconocido: %s", platoID)
	}

	_, err := a.carrito.Toggle(plato, cantidad)
	if errors.Is(err, cart.ErrToqueDuplicado) {
		return nil
	}
	if err != nil {
		return err
	}

	a.publicarCarrito()
	return nil
}

// QuitarPlato removes a dish via the summary's "×" control.
func (a *App) QuitarPlato(platoID string) {
	removed, err := a.carrito.Quitar(platoID)
	if err != nil || !removed {
		return
	}
	a.publicarCarrito()
}

// ConfirmarReserva validates and submits the reservation for the active
// shift. On success the confirmation is logged locally and published.
func (a *App) ConfirmarReserva(ctx context.Context, datos reservation.DatosEstudiante) (*models.Confirmacion, error) {
	a.mu.Lock()
	turno := a.turnoActual
	a.mu.Unlock()
	if turno == "" {
		return nil, reservation.ErrReservasCerradas
	}

	conf, err := a.submitter.Enviar(ctx, turno, a.carrito, datos)
	if err != nil {
		return nil, err
	}

	if a.store != nil {
		_ = a.store.RegistrarReserva(ctx, conf)
	}
	_ = a.bus.PublishJSON(events.TipoReserva, conf)
	a.publicarCarrito()
	return conf, nil
}

// ExportarDia fetches today's reservations and writes the Excel report.
// Returns the written file path.
func (a *App) ExportarDia(ctx context.Context, dir string) (string, error) {
	fecha := a.now().Format("2006-01-02")
	reservas, err := a.gateway.Reservas(ctx, fecha, "")
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = a.cfg.Report.Dir
	}
	path := filepath.Join(dir, fmt.Sprintf("reservas_%s.xlsx", fecha))
	if err := report.Exportar(path, reservas, a.cfg.Moneda); err != nil {
		return "", err
	}
	a.logger.Info().Str("path", path).Int("reservas", len(reservas)).Msg("reporte exportado")
	return path, nil
}

// Tema returns the persisted UI theme preference.
func (a *App) Tema(ctx context.Context) string {
	if a.store == nil {
		return store.TemaClaro
	}
	tema, err := a.store.Tema(ctx)
	if err != nil {
		return store.TemaClaro
	}
	return tema
}

// CambiarTema persists the UI theme preference.
func (a *App) CambiarTema(ctx context.Context, tema string) error {
	if a.store == nil {
		return nil
	}
	return a.store.GuardarTema(ctx, tema)
}

// TurnoActual returns the active shift id and whether reservations are open
// for it.
func (a *App) TurnoActual() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.turnoActual, a.puedeReservar
}

// Carrito exposes the selection engine for the view binder.
func (a *App) Carrito() *cart.Carrito {
	return a.carrito
}

func (a *App) publicarCarrito() {
	_ = a.bus.PublishJSON(events.TipoCarrito, map[string]any{
		"lineas":   a.carrito.Lineas(),
		"cantidad": a.carrito.Cantidad(),
		"total":    a.carrito.Total(),
		"detalle":  a.carrito.Detalle(),
	})
}
