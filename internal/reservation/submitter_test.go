package reservation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"comedor/internal/gateway"
	"comedor/internal/models"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CrearReserva(ctx context.Context, reserva *models.Reserva) (*models.Confirmacion, error) {
	args := m.Called(ctx, reserva)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Confirmacion), args.Error(1)
}

type mockDisp struct {
	mock.Mock
}

func (m *mockDisp) CheckOne(ctx context.Context, turno string) (*models.Disponibilidad, error) {
	args := m.Called(ctx, turno)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Disponibilidad), args.Error(1)
}

// fakeCart is a minimal Seleccion double so validation tests do not depend
// on the cart package.
type fakeCart struct {
	cantidad int
	total    float64
	detalle  string
	limpio   bool
}

func (f *fakeCart) Cantidad() int   { return f.cantidad }
func (f *fakeCart) Total() float64  { return f.total }
func (f *fakeCart) Detalle() string { return f.detalle }
func (f *fakeCart) Limpiar()        { f.limpio = true; f.cantidad = 0 }

func abierta(turno string) *models.Disponibilidad {
	return &models.Disponibilidad{Turno: turno, Disponible: true, PuedeReservar: true, Mensaje: "abierto"}
}

func cerrada(turno string) *models.Disponibilidad {
	return &models.Disponibilidad{Turno: turno, Razon: models.RazonHoraLimite, Mensaje: "cerrado"}
}

func newTestSubmitter() (*Submitter, *mockGateway, *mockDisp) {
	gw := new(mockGateway)
	disp := new(mockDisp)
	logger := zerolog.New(io.Discard)
	return NewSubmitter(gw, disp, &logger), gw, disp
}

func datosValidos() DatosEstudiante {
	return DatosEstudiante{Nombre: "Ana Torres", Codigo: "A2024X", Email: "ana@uni.edu"}
}

func TestEnviarOK(t *testing.T) {
	s, gw, disp := newTestSubmitter()
	ctx := context.Background()
	carrito := &fakeCart{cantidad: 2, total: 21.0, detalle: "Arroz con pollo, Ceviche"}

	disp.On("CheckOne", ctx, "MANANA").Return(abierta("MANANA"), nil).Once()
	gw.On("CrearReserva", ctx, mock.MatchedBy(func(r *models.Reserva) bool {
		return r.Turno == "MANANA" &&
			r.NombreEstudiante == "Ana Torres" &&
			r.CodigoEstudiante == "A2024X" &&
			r.PlatosDetalle == "Arroz con pollo, Ceviche" &&
			r.CantidadTotal == 2 &&
			r.PrecioTotal == 21.0
	})).Return(&models.Confirmacion{
		Fecha: "2026-03-02", Hora: "08:15", Turno: "MANANA",
		Estudiante: "Ana Torres", Plato: "Arroz con pollo, Ceviche",
		Cantidad: 2, PrecioTotal: 21.0,
	}, nil).Once()

	conf, err := s.Enviar(ctx, "MANANA", carrito, datosValidos())
	require.NoError(t, err)
	assert.Equal(t, "MANANA", conf.Turno)
	assert.True(t, carrito.limpio, "cart clears unconditionally on success")
	gw.AssertExpectations(t)
	disp.AssertExpectations(t)
}

func TestEnviarReservasCerradas(t *testing.T) {
	s, gw, disp := newTestSubmitter()
	ctx := context.Background()
	carrito := &fakeCart{cantidad: 1, total: 8.5, detalle: "Arroz con pollo"}

	disp.On("CheckOne", ctx, "MANANA").Return(cerrada("MANANA"), nil).Once()

	_, err := s.Enviar(ctx, "MANANA", carrito, datosValidos())
	assert.ErrorIs(t, err, ErrReservasCerradas)
	assert.False(t, carrito.limpio)
	gw.AssertNotCalled(t, "CrearReserva")
}

func TestEnviarDisponibilidadInalcanzable(t *testing.T) {
	s, gw, disp := newTestSubmitter()
	ctx := context.Background()
	carrito := &fakeCart{cantidad: 1}

	disp.On("CheckOne", ctx, "MANANA").Return(nil, errors.New("timeout")).Once()

	_, err := s.Enviar(ctx, "MANANA", carrito, datosValidos())
	require.Error(t, err)
	assert.False(t, carrito.limpio)
	gw.AssertNotCalled(t, "CrearReserva")
}

func TestEnviarValidacion(t *testing.T) {
	tests := []struct {
		name    string
		carrito *fakeCart
		datos   DatosEstudiante
		want    error
	}{
		{
			name:    "CarritoVacio",
			carrito: &fakeCart{cantidad: 0},
			datos:   datosValidos(),
			want:    ErrCarritoVacio,
		},
		{
			name:    "NombreVacio",
			carrito: &fakeCart{cantidad: 1},
			datos:   DatosEstudiante{Nombre: "   ", Codigo: "A2024X"},
			want:    ErrCamposRequeridos,
		},
		{
			name:    "CodigoVacio",
			carrito: &fakeCart{cantidad: 1},
			datos:   DatosEstudiante{Nombre: "Ana", Codigo: ""},
			want:    ErrCamposRequeridos,
		},
		{
			// First failing check wins: empty name beats bad email.
			name:    "OrdenDeValidacion",
			carrito: &fakeCart{cantidad: 1},
			datos:   DatosEstudiante{Nombre: "", Codigo: "A2024X", Email: "no-es-email"},
			want:    ErrCamposRequeridos,
		},
		{
			name:    "CodigoMuyCorto",
			carrito: &fakeCart{cantidad: 1},
			datos:   DatosEstudiante{Nombre: "Ana", Codigo: "A1"},
			want:    ErrCodigoInvalido,
		},
		{
			name:    "CodigoMuyLargo",
			carrito: &fakeCart{cantidad: 1},
			datos:   DatosEstudiante{Nombre: "Ana", Codigo: "A1234567890"},
			want:    ErrCodigoInvalido,
		},
		{
			name:    "CodigoConSimbolos",
			carrito: &fakeCart{cantidad: 1},
			datos:   DatosEstudiante{Nombre: "Ana", Codigo: "A-2024"},
			want:    ErrCodigoInvalido,
		},
		{
			name:    "EmailInvalido",
			carrito: &fakeCart{cantidad: 1},
			datos:   DatosEstudiante{Nombre: "Ana", Codigo: "A2024X", Email: "sin-arroba"},
			want:    ErrEmailInvalido,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, gw, disp := newTestSubmitter()
			ctx := context.Background()
			disp.On("CheckOne", ctx, "MANANA").Return(abierta("MANANA"), nil).Once()

			_, err := s.Enviar(ctx, "MANANA", tt.carrito, tt.datos)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, EsValidacion(err))
			assert.False(t, tt.carrito.limpio)
			gw.AssertNotCalled(t, "CrearReserva")
		})
	}
}

func TestEnviarEmailOpcional(t *testing.T) {
	s, gw, disp := newTestSubmitter()
	ctx := context.Background()
	carrito := &fakeCart{cantidad: 1, total: 8.5, detalle: "Arroz con pollo"}

	disp.On("CheckOne", ctx, "MANANA").Return(abierta("MANANA"), nil).Once()
	gw.On("CrearReserva", ctx, mock.Anything).Return(&models.Confirmacion{Turno: "MANANA"}, nil).Once()

	datos := datosValidos()
	datos.Email = ""
	_, err := s.Enviar(ctx, "MANANA", carrito, datos)
	assert.NoError(t, err)
}

func TestEnviarErrorDeNegocioConservaCarrito(t *testing.T) {
	s, gw, disp := newTestSubmitter()
	ctx := context.Background()
	carrito := &fakeCart{cantidad: 1, total: 8.5, detalle: "Arroz con pollo"}

	disp.On("CheckOne", ctx, "MANANA").Return(abierta("MANANA"), nil).Once()
	gw.On("CrearReserva", ctx, mock.Anything).
		Return(nil, &gateway.BusinessError{Operacion: "crearReserva", Mensaje: "Cupo lleno"}).Once()

	_, err := s.Enviar(ctx, "MANANA", carrito, datosValidos())
	require.Error(t, err)

	be, ok := gateway.EsErrorNegocio(err)
	require.True(t, ok)
	assert.Equal(t, "Cupo lleno", be.Mensaje, "server message surfaces verbatim")
	assert.False(t, carrito.limpio)
	assert.Equal(t, 1, carrito.cantidad)
}

func TestEnviarErrorDeTransporteConservaCarrito(t *testing.T) {
	s, gw, disp := newTestSubmitter()
	ctx := context.Background()
	carrito := &fakeCart{cantidad: 1, total: 8.5, detalle: "Arroz con pollo"}

	disp.On("CheckOne", ctx, "MANANA").Return(abierta("MANANA"), nil).Once()
	gw.On("CrearReserva", ctx, mock.Anything).
		Return(nil, &gateway.TransportError{Operacion: "crearReserva", Err: errors.New("timeout")}).Once()

	_, err := s.Enviar(ctx, "MANANA", carrito, datosValidos())
	require.Error(t, err)
	assert.True(t, gateway.EsErrorTransporte(err))
	assert.False(t, carrito.limpio)
}
