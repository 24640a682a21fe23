package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"comedor/internal/config"
	"comedor/internal/events"
	"comedor/internal/models"
	"comedor/internal/reservation"
)

var discard = zerolog.New(io.Discard)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) DisponibilidadTurno(ctx context.Context, turno string) (*models.Disponibilidad, error) {
	args := m.Called(ctx, turno)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Disponibilidad), args.Error(1)
}

func (m *mockGateway) DisponibilidadTurnos(ctx context.Context) (map[string]models.Disponibilidad, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Disponibilidad), args.Error(1)
}

func (m *mockGateway) MenuDelDia(ctx context.Context, turno string, forzar bool) (*models.MenuDelDia, error) {
	args := m.Called(ctx, turno, forzar)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MenuDelDia), args.Error(1)
}

func (m *mockGateway) CrearReserva(ctx context.Context, reserva *models.Reserva) (*models.Confirmacion, error) {
	args := m.Called(ctx, reserva)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Confirmacion), args.Error(1)
}

func (m *mockGateway) Reservas(ctx context.Context, fecha, turno string) ([]models.ReservaRegistrada, error) {
	args := m.Called(ctx, fecha, turno)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReservaRegistrada), args.Error(1)
}

func configPrueba() *config.Config {
	cfg := &config.Config{
		Turnos: []config.Turno{
			{ID: "MANANA", Nombre: "Mañana", HoraInicio: "06:00", HoraLimite: "09:00"},
			{ID: "TARDE", Nombre: "Tarde", HoraInicio: "10:00", HoraLimite: "16:30"},
		},
		TurnoDefault: "MANANA",
		Moneda:       "S/",
		DiasHabiles:  []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"},
	}
	cfg.Carrito.MaxSelecciones = 3
	cfg.Carrito.GuardWindowMS = 500
	cfg.Mensajes.FinSemana = "El servicio de comedor no está disponible los fines de semana."
	cfg.Mensajes.ReservaCerrada = "Lo sentimos, ya no se aceptan reservas para este turno."
	return cfg
}

func abierta(turno string) models.Disponibilidad {
	return models.Disponibilidad{Turno: turno, Disponible: true, PuedeReservar: true}
}

func cerrada(turno string, razon models.Razon) models.Disponibilidad {
	return models.Disponibilidad{Turno: turno, Disponible: false, PuedeReservar: false, Razon: razon}
}

func menuPrueba() *models.MenuDelDia {
	return &models.MenuDelDia{
		DiaDisponible: true,
		NombreTurno:   "Mañana",
		Menu: []models.Plato{
			{ID: "1", Nombre: "Arroz con pollo", Precio: 8.5},
			{ID: "2", Nombre: "Ceviche", Precio: 15.0},
		},
	}
}

var lunes = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestApp(gw *mockGateway) *App {
	a := New(configPrueba(), gw, nil, events.NewBus(), &discard)
	a.now = func() time.Time { return lunes }
	return a
}

func TestInitActivatesDefaultShift(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DisponibilidadTurnos", mock.Anything).Return(map[string]models.Disponibilidad{
		"MANANA": abierta("MANANA"),
		"TARDE":  cerrada("TARDE", models.RazonTurnoNoIniciado),
	}, nil)
	disp := abierta("MANANA")
	gw.On("DisponibilidadTurno", mock.Anything, "MANANA").Return(&disp, nil)
	gw.On("MenuDelDia", mock.Anything, "MANANA", false).Return(menuPrueba(), nil)

	a := newTestApp(gw)
	require.NoError(t, a.Init(context.Background()))

	turno, abierto := a.TurnoActual()
	assert.Equal(t, "MANANA", turno)
	assert.True(t, abierto)
	gw.AssertExpectations(t)
}

func TestInitFallsBackToOpenShift(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DisponibilidadTurnos", mock.Anything).Return(map[string]models.Disponibilidad{
		"MANANA": cerrada("MANANA", models.RazonHoraLimite),
		"TARDE":  abierta("TARDE"),
	}, nil)
	disp := abierta("TARDE")
	gw.On("DisponibilidadTurno", mock.Anything, "TARDE").Return(&disp, nil)
	gw.On("MenuDelDia", mock.Anything, "TARDE", false).Return(menuPrueba(), nil)

	a := newTestApp(gw)
	require.NoError(t, a.Init(context.Background()))

	turno, abierto := a.TurnoActual()
	assert.Equal(t, "TARDE", turno)
	assert.True(t, abierto)
}

func TestInitAllShiftsClosed(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DisponibilidadTurnos", mock.Anything).Return(map[string]models.Disponibilidad{
		"MANANA": cerrada("MANANA", models.RazonHoraLimite),
		"TARDE":  cerrada("TARDE", models.RazonHoraLimite),
	}, nil)

	a := newTestApp(gw)
	require.NoError(t, a.Init(context.Background()))

	turno, abierto := a.TurnoActual()
	assert.Empty(t, turno)
	assert.False(t, abierto)
	gw.AssertNotCalled(t, "MenuDelDia", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitWeekendGate(t *testing.T) {
	gw := new(mockGateway)
	a := newTestApp(gw)
	a.now = func() time.Time { return time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC) } // sábado

	var avisado bool
	a.bus.Subscribe(events.TipoServicio, func(events.Event) error {
		avisado = true
		return nil
	})

	err := a.Init(context.Background())
	require.ErrorIs(t, err, ErrServicioNoDisponible)
	assert.True(t, avisado)
	gw.AssertNotCalled(t, "DisponibilidadTurnos", mock.Anything)
}

func TestCambiarTurnoClearsCart(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DisponibilidadTurnos", mock.Anything).Return(map[string]models.Disponibilidad{
		"MANANA": abierta("MANANA"),
		"TARDE":  abierta("TARDE"),
	}, nil)
	dispM := abierta("MANANA")
	dispT := abierta("TARDE")
	gw.On("DisponibilidadTurno", mock.Anything, "MANANA").Return(&dispM, nil)
	gw.On("DisponibilidadTurno", mock.Anything, "TARDE").Return(&dispT, nil)
	gw.On("MenuDelDia", mock.Anything, "MANANA", false).Return(menuPrueba(), nil)
	gw.On("MenuDelDia", mock.Anything, "TARDE", false).Return(menuPrueba(), nil)

	a := newTestApp(gw)
	ctx := context.Background()
	require.NoError(t, a.Init(ctx))

	require.NoError(t, a.SeleccionarPlato("1", 1))
	assert.Equal(t, 1, a.Carrito().Cantidad())

	require.NoError(t, a.CambiarTurno(ctx, "TARDE"))
	assert.True(t, a.Carrito().Vacio())
}

func TestSeleccionarPlato(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DisponibilidadTurnos", mock.Anything).Return(map[string]models.Disponibilidad{
		"MANANA": abierta("MANANA"),
	}, nil)
	disp := abierta("MANANA")
	gw.On("DisponibilidadTurno", mock.Anything, "MANANA").Return(&disp, nil)
	gw.On("MenuDelDia", mock.Anything, "MANANA", false).Return(menuPrueba(), nil)

	a := newTestApp(gw)
	require.NoError(t, a.Init(context.Background()))

	t.Run("PlatoDesconocido", func(t *testing.T) {
		err := a.SeleccionarPlato("99", 1)
		require.Error(t, err)
	})

	t.Run("ToqueDuplicadoSilencioso", func(t *testing.T) {
		require.NoError(t, a.SeleccionarPlato("1", 1))
		// A second click inside the guard window is dropped, not an error.
		require.NoError(t, a.SeleccionarPlato("1", 1))
		assert.True(t, a.Carrito().Contiene("1"))
		assert.Equal(t, 1, a.Carrito().Cantidad())
	})
}

func TestSeleccionarPlatoReservasCerradas(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DisponibilidadTurnos", mock.Anything).Return(map[string]models.Disponibilidad{
		"MANANA": cerrada("MANANA", models.RazonHoraLimite),
		"TARDE":  cerrada("TARDE", models.RazonHoraLimite),
	}, nil)

	a := newTestApp(gw)
	require.NoError(t, a.Init(context.Background()))

	err := a.SeleccionarPlato("1", 1)
	require.ErrorIs(t, err, reservation.ErrReservasCerradas)
}

func TestConfirmarReserva(t *testing.T) {
	gw := new(mockGateway)
	gw.On("DisponibilidadTurnos", mock.Anything).Return(map[string]models.Disponibilidad{
		"MANANA": abierta("MANANA"),
	}, nil)
	disp := abierta("MANANA")
	gw.On("DisponibilidadTurno", mock.Anything, "MANANA").Return(&disp, nil)
	gw.On("MenuDelDia", mock.Anything, "MANANA", false).Return(menuPrueba(), nil)
	gw.On("CrearReserva", mock.Anything, mock.MatchedBy(func(r *models.Reserva) bool {
		return r.Turno == "MANANA" && r.PlatosDetalle == "Arroz con pollo"
	})).Return(&models.Confirmacion{
		Fecha: "2026-03-02", Turno: "MANANA", Estudiante: "Ana Torres",
		Plato: "Arroz con pollo", Cantidad: 1, PrecioTotal: 8.5,
	}, nil)

	a := newTestApp(gw)
	ctx := context.Background()
	require.NoError(t, a.Init(ctx))
	require.NoError(t, a.SeleccionarPlato("1", 1))

	var confirmada bool
	a.bus.Subscribe(events.TipoReserva, func(events.Event) error {
		confirmada = true
		return nil
	})

	conf, err := a.ConfirmarReserva(ctx, reservation.DatosEstudiante{
		Nombre: "Ana Torres",
		Codigo: "A2024X",
	})
	require.NoError(t, err)
	assert.Equal(t, "Arroz con pollo", conf.Plato)
	assert.True(t, confirmada)
	assert.True(t, a.Carrito().Vacio())
	gw.AssertExpectations(t)
}

func TestConfirmarReservaSinTurno(t *testing.T) {
	gw := new(mockGateway)
	a := newTestApp(gw)

	_, err := a.ConfirmarReserva(context.Background(), reservation.DatosEstudiante{
		Nombre: "Ana Torres", Codigo: "A2024X",
	})
	require.ErrorIs(t, err, reservation.ErrReservasCerradas)
	gw.AssertNotCalled(t, "CrearReserva", mock.Anything, mock.Anything)
}
