// Package models contains the wire and domain types shared across the
// application. Field names mirror the backend's Spanish JSON contract.
package models

import (
	"fmt"
	"strings"
)

// Razon explains why a shift is closed for reservations.
type Razon string

const (
	RazonNinguna         Razon = ""
	RazonTurnoNoIniciado Razon = "turno_no_iniciado"
	RazonHoraLimite      Razon = "hora_limite_superada"
)

// Plato is a menu item available for a given shift/day. Immutable once
// fetched; the menu cache replaces dishes wholesale on shift switch.
type Plato struct {
	ID          string  `json:"id"`
	Nombre      string  `json:"nombre"`
	Descripcion string  `json:"descripcion"`
	Precio      float64 `json:"precio"`
}

// Disponibilidad is the reservation availability state of one shift.
// It is recomputed on every check, never mutated incrementally.
type Disponibilidad struct {
	Turno         string `json:"turno"`
	Disponible    bool   `json:"disponible"`
	PuedeReservar bool   `json:"puedeReservar"`
	Razon         Razon  `json:"razon,omitempty"`
	HoraInicio    string `json:"horaInicio,omitempty"`
	HoraLimite    string `json:"horaLimite,omitempty"`
	Mensaje       string `json:"mensaje"`
}

// MenuDelDia is the menu payload for one shift.
type MenuDelDia struct {
	Menu          []Plato `json:"menu"`
	DiaDisponible bool    `json:"diaDisponible"`
	NombreTurno   string  `json:"nombreTurno"`
	Mensaje       string  `json:"mensaje,omitempty"`
}

// PlatoPorID returns the dish with the given id, if present.
func (m *MenuDelDia) PlatoPorID(id string) (Plato, bool) {
	for _, p := range m.Menu {
		if p.ID == id {
			return p, true
		}
	}
	return Plato{}, false
}

// Reserva is the submission payload sent to the backend. It is built fresh
// at submit time and discarded once the gateway call resolves.
type Reserva struct {
	Turno            string  `json:"turno"`
	NombreEstudiante string  `json:"nombreEstudiante"`
	CodigoEstudiante string  `json:"codigoEstudiante"`
	Email            string  `json:"email,omitempty"`
	Notas            string  `json:"notas,omitempty"`
	PlatosDetalle    string  `json:"plato"`
	CantidadTotal    int     `json:"cantidadTotal"`
	PrecioTotal      float64 `json:"precioTotal"`
}

// Confirmacion carries the server-assigned reservation details returned by
// a successful createReservation call.
type Confirmacion struct {
	Fecha       string  `json:"fecha"`
	Hora        string  `json:"hora"`
	Turno       string  `json:"turno"`
	Estudiante  string  `json:"estudiante"`
	Plato       string  `json:"plato"`
	Cantidad    int     `json:"cantidad"`
	PrecioTotal float64 `json:"precioTotal"`
}

// ReservaRegistrada is one row of the backend's reservation listing.
type ReservaRegistrada struct {
	Fecha       string  `json:"fecha"`
	Hora        string  `json:"hora"`
	Turno       string  `json:"turno"`
	Estudiante  string  `json:"estudiante"`
	Codigo      string  `json:"codigo"`
	Plato       string  `json:"plato"`
	Cantidad    int     `json:"cantidad"`
	PrecioTotal float64 `json:"precioTotal"`
	Notas       string  `json:"notas,omitempty"`
}

// FormatPrecio renders a price with the configured currency symbol,
// e.g. "S/ 12.50".
func FormatPrecio(moneda string, precio float64) string {
	return fmt.Sprintf("%s %.2f", moneda, precio)
}

// HoraCorta reduces a time string to HH:MM. The backend sends cutoff times
// in several formats ("09:00:00", "09:00 AM"); only the leading hour and
// minute matter for display.
func HoraCorta(hora string) string {
	if !strings.Contains(hora, ":") {
		return hora
	}
	parts := strings.Split(hora, ":")
	if len(parts) < 2 {
		return hora
	}
	min := parts[1]
	if i := strings.IndexByte(min, ' '); i >= 0 {
		min = min[:i]
	}
	return parts[0] + ":" + min
}
