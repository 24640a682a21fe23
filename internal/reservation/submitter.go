// Package reservation validates and submits reservations.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"comedor/internal/metrics"
	"comedor/internal/models"
)

// Client-side validation failures. None of them ever reaches the gateway.
var (
	ErrReservasCerradas = errors.New("reservas cerradas para este turno")
	ErrCarritoVacio     = errors.New("carrito vacío")
	ErrCamposRequeridos = errors.New("campos obligatorios incompletos")
	ErrCodigoInvalido   = errors.New("código de estudiante inválido")
	ErrEmailInvalido    = errors.New("email inválido")
)

// The student code is 5-10 alphanumeric characters, matching the backend's
// validation and the configured error message.
var (
	reCodigo = regexp.MustCompile(`^[A-Za-z0-9]{5,10}$`)
	reEmail  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// EsValidacion reports whether err was detected client-side before any
// gateway call.
func EsValidacion(err error) bool {
	return errors.Is(err, ErrReservasCerradas) ||
		errors.Is(err, ErrCarritoVacio) ||
		errors.Is(err, ErrCamposRequeridos) ||
		errors.Is(err, ErrCodigoInvalido) ||
		errors.Is(err, ErrEmailInvalido)
}

// DatosEstudiante are the identity fields from the reservation form.
type DatosEstudiante struct {
	Nombre string
	Codigo string
	Email  string
	Notas  string
}

// Gateway is the slice of the backend used to create reservations.
type Gateway interface {
	CrearReserva(ctx context.Context, reserva *models.Reserva) (*models.Confirmacion, error)
}

// Disponibilidad re-checks shift availability at submit time. Stale state is
// never trusted for gating a submission.
type Disponibilidad interface {
	CheckOne(ctx context.Context, turno string) (*models.Disponibilidad, error)
}

// Seleccion is the cart surface the submitter needs.
type Seleccion interface {
	Cantidad() int
	Total() float64
	Detalle() string
	Limpiar()
}

// Submitter assembles and submits a reservation from cart and form data.
type Submitter struct {
	gateway Gateway
	disp    Disponibilidad
	logger  *zerolog.Logger
}

func NewSubmitter(gateway Gateway, disp Disponibilidad, logger *zerolog.Logger) *Submitter {
	return &Submitter{gateway: gateway, disp: disp, logger: logger}
}

// Enviar runs the client-side precondition chain in order, short-circuiting
// on the first failure, then calls the gateway. On success the cart is
// cleared unconditionally; on any failure the cart keeps its contents so the
// user can retry.
func (s *Submitter) Enviar(ctx context.Context, turno string, carrito Seleccion, datos DatosEstudiante) (*models.Confirmacion, error) {
	disp, err := s.disp.CheckOne(ctx, turno)
	if err != nil {
		// Availability is never assumed while the gateway is unreachable.
		metrics.IncReservationCreated("transport_error")
		return nil, fmt.Errorf("verificar disponibilidad: %w", err)
	}
	if !disp.PuedeReservar {
		metrics.IncReservationCreated("cerrado")
		return nil, ErrReservasCerradas
	}

	if carrito.Cantidad() == 0 {
		return nil, ErrCarritoVacio
	}

	nombre := strings.TrimSpace(datos.Nombre)
	codigo := strings.TrimSpace(datos.Codigo)
	if nombre == "" || codigo == "" {
		return nil, ErrCamposRequeridos
	}
	if !reCodigo.MatchString(codigo) {
		return nil, ErrCodigoInvalido
	}

	email := strings.TrimSpace(datos.Email)
	if email != "" && !reEmail.MatchString(email) {
		return nil, ErrEmailInvalido
	}

	reserva := &models.Reserva{
		Turno:            turno,
		NombreEstudiante: nombre,
		CodigoEstudiante: codigo,
		Email:            email,
		Notas:            strings.TrimSpace(datos.Notas),
		PlatosDetalle:    carrito.Detalle(),
		CantidadTotal:    carrito.Cantidad(),
		PrecioTotal:      carrito.Total(),
	}

	conf, err := s.gateway.CrearReserva(ctx, reserva)
	if err != nil {
		metrics.IncReservationCreated("error")
		s.logger.Warn().Err(err).Str("turno", turno).Msg("reserva rechazada")
		return nil, err
	}

	carrito.Limpiar()
	metrics.IncReservationCreated("ok")
	s.logger.Info().
		Str("turno", conf.Turno).
		Str("estudiante", conf.Estudiante).
		Int("cantidad", conf.Cantidad).
		Msg("reserva confirmada")
	return conf, nil
}
