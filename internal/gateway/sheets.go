package gateway

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"comedor/internal/config"
	"comedor/internal/models"
)

// SheetsClient talks to the backing spreadsheet directly through the Google
// Sheets API instead of the web app endpoint. The web app computes cutoff
// logic server-side; here it is computed locally from the configured shift
// windows, since raw Sheets has no logic of its own.
type SheetsClient struct {
	svc           *sheets.Service
	spreadsheetID string
	turnos        []config.Turno
	logger        *zerolog.Logger
	now           func() time.Time
}

const (
	hojaReservas = "Reservas"
	rangoMenu    = "Menu_%s!A2:D"
)

func NewSheetsClient(ctx context.Context, credentialsFile, spreadsheetID string, turnos []config.Turno, logger *zerolog.Logger) (*SheetsClient, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		turnos:        turnos,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// DisponibilidadTurno computes availability for one shift from its
// configured window.
func (c *SheetsClient) DisponibilidadTurno(_ context.Context, turno string) (*models.Disponibilidad, error) {
	for _, tc := range c.turnos {
		if tc.ID == turno {
			d := c.disponibilidadDe(tc)
			return &d, nil
		}
	}
	return nil, &BusinessError{Operacion: "checkDisponibilidad", Mensaje: fmt.Sprintf("Turno no configurado: %s", turno)}
}

// DisponibilidadTurnos computes availability for every configured shift.
func (c *SheetsClient) DisponibilidadTurnos(_ context.Context) (map[string]models.Disponibilidad, error) {
	out := make(map[string]models.Disponibilidad, len(c.turnos))
	for _, tc := range c.turnos {
		out[tc.ID] = c.disponibilidadDe(tc)
	}
	return out, nil
}

func (c *SheetsClient) disponibilidadDe(tc config.Turno) models.Disponibilidad {
	ahora := c.now()
	inicio := horaDelDia(ahora, tc.HoraInicio)
	limite := horaDelDia(ahora, tc.HoraLimite)

	d := models.Disponibilidad{
		Turno:      tc.ID,
		HoraInicio: tc.HoraInicio,
		HoraLimite: tc.HoraLimite,
	}

	switch {
	case ahora.Before(inicio):
		d.Razon = models.RazonTurnoNoIniciado
		d.Mensaje = fmt.Sprintf("El turno %s inicia a las %s", tc.Nombre, tc.HoraInicio)
	case ahora.After(limite):
		d.Razon = models.RazonHoraLimite
		d.Mensaje = fmt.Sprintf("Reservas cerradas desde las %s", tc.HoraLimite)
	default:
		d.Disponible = true
		d.PuedeReservar = true
		d.Mensaje = fmt.Sprintf("Reservas abiertas hasta las %s", tc.HoraLimite)
	}
	return d
}

// horaDelDia anchors an HH:MM string to the date of ref in local time.
func horaDelDia(ref time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return ref
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), 0, 0, ref.Location())
}

// MenuDelDia reads the shift's menu sheet. The forzar flag is meaningless
// here: every read already goes straight to the spreadsheet.
func (c *SheetsClient) MenuDelDia(ctx context.Context, turno string, _ bool) (*models.MenuDelDia, error) {
	const op = "getMenuDelDia"

	nombreTurno := turno
	for _, tc := range c.turnos {
		if tc.ID == turno {
			nombreTurno = tc.Nombre
		}
	}

	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, fmt.Sprintf(rangoMenu, turno)).
		Context(ctx).Do()
	if err != nil {
		return nil, &TransportError{Operacion: op, Err: err}
	}

	m := &models.MenuDelDia{DiaDisponible: true, NombreTurno: nombreTurno}
	for _, row := range resp.Values {
		if len(row) < 4 {
			continue
		}
		precio, err := strconv.ParseFloat(fmt.Sprint(row[3]), 64)
		if err != nil {
			c.logger.Warn().Interface("fila", row).Msg("fila de menú con precio inválido")
			continue
		}
		m.Menu = append(m.Menu, models.Plato{
			ID:          fmt.Sprint(row[0]),
			Nombre:      fmt.Sprint(row[1]),
			Descripcion: fmt.Sprint(row[2]),
			Precio:      precio,
		})
	}
	return m, nil
}

// reservaRowValues flattens a reservation into the Reservas sheet layout.
func reservaRowValues(r *models.Reserva, fecha, hora string) []interface{} {
	return []interface{}{
		fecha,
		hora,
		r.Turno,
		r.NombreEstudiante,
		r.CodigoEstudiante,
		r.PlatosDetalle,
		r.CantidadTotal,
		r.PrecioTotal,
		r.Notas,
		r.Email,
	}
}

// CrearReserva appends the reservation to the Reservas sheet.
func (c *SheetsClient) CrearReserva(ctx context.Context, reserva *models.Reserva) (*models.Confirmacion, error) {
	const op = "crearReserva"

	ahora := c.now()
	fecha := ahora.Format("2006-01-02")
	hora := ahora.Format("15:04")

	vr := &sheets.ValueRange{Values: [][]interface{}{reservaRowValues(reserva, fecha, hora)}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, hojaReservas+"!A:J", vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return nil, &TransportError{Operacion: op, Err: err}
	}

	return &models.Confirmacion{
		Fecha:       fecha,
		Hora:        hora,
		Turno:       reserva.Turno,
		Estudiante:  reserva.NombreEstudiante,
		Plato:       reserva.PlatosDetalle,
		Cantidad:    reserva.CantidadTotal,
		PrecioTotal: reserva.PrecioTotal,
	}, nil
}

// Reservas reads the Reservas sheet, optionally filtered by date and shift.
func (c *SheetsClient) Reservas(ctx context.Context, fecha, turno string) ([]models.ReservaRegistrada, error) {
	const op = "getReservas"

	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, hojaReservas+"!A2:J").
		Context(ctx).Do()
	if err != nil {
		return nil, &TransportError{Operacion: op, Err: err}
	}

	var out []models.ReservaRegistrada
	for _, row := range resp.Values {
		if len(row) < 8 {
			continue
		}
		r := models.ReservaRegistrada{
			Fecha:      fmt.Sprint(row[0]),
			Hora:       fmt.Sprint(row[1]),
			Turno:      fmt.Sprint(row[2]),
			Estudiante: fmt.Sprint(row[3]),
			Codigo:     fmt.Sprint(row[4]),
			Plato:      fmt.Sprint(row[5]),
		}
		r.Cantidad, _ = strconv.Atoi(fmt.Sprint(row[6]))
		r.PrecioTotal, _ = strconv.ParseFloat(fmt.Sprint(row[7]), 64)
		if len(row) > 8 {
			r.Notas = fmt.Sprint(row[8])
		}
		if fecha != "" && r.Fecha != fecha {
			continue
		}
		if turno != "" && r.Turno != turno {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
