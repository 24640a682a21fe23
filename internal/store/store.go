// Package store is the client-side SQLite store: the persisted UI theme
// preference and a local log of submitted reservations. Server-side truth
// lives in the backend; this store only survives restarts of one kiosk.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"comedor/internal/models"
)

const (
	TemaClaro  = "light"
	TemaOscuro = "dark"
)

var ErrTemaInvalido = errors.New("tema inválido")

type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func Open(path string, logger *zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS preferencias (
    clave TEXT PRIMARY KEY,
    valor TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reservas_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fecha TEXT NOT NULL,
    hora TEXT NOT NULL,
    turno TEXT NOT NULL,
    estudiante TEXT NOT NULL,
    plato TEXT NOT NULL,
    cantidad INTEGER NOT NULL,
    precio_total REAL NOT NULL,
    creado_en DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reservas_log_fecha ON reservas_log(fecha);
`
	_, err := s.db.Exec(schema)
	return err
}

// Tema returns the persisted theme preference, defaulting to light.
func (s *Store) Tema(ctx context.Context) (string, error) {
	var tema string
	err := s.db.QueryRowContext(ctx,
		`SELECT valor FROM preferencias WHERE clave = 'tema'`).Scan(&tema)
	if errors.Is(err, sql.ErrNoRows) {
		return TemaClaro, nil
	}
	if err != nil {
		return "", err
	}
	return tema, nil
}

// GuardarTema persists the theme preference.
func (s *Store) GuardarTema(ctx context.Context, tema string) error {
	if tema != TemaClaro && tema != TemaOscuro {
		return fmt.Errorf("%w: %q", ErrTemaInvalido, tema)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferencias (clave, valor) VALUES ('tema', ?)
         ON CONFLICT(clave) DO UPDATE SET valor = excluded.valor`, tema)
	return err
}

// RegistrarReserva appends a confirmed reservation to the local log.
func (s *Store) RegistrarReserva(ctx context.Context, conf *models.Confirmacion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reservas_log (fecha, hora, turno, estudiante, plato, cantidad, precio_total, creado_en)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conf.Fecha, conf.Hora, conf.Turno, conf.Estudiante, conf.Plato,
		conf.Cantidad, conf.PrecioTotal, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("no se pudo registrar la reserva local")
	}
	return err
}

// UltimasReservas returns the most recent locally logged reservations.
func (s *Store) UltimasReservas(ctx context.Context, limite int) ([]models.Confirmacion, error) {
	if limite <= 0 {
		limite = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT fecha, hora, turno, estudiante, plato, cantidad, precio_total
         FROM reservas_log ORDER BY id DESC LIMIT ?`, limite)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Confirmacion
	for rows.Next() {
		var c models.Confirmacion
		if err := rows.Scan(&c.Fecha, &c.Hora, &c.Turno, &c.Estudiante,
			&c.Plato, &c.Cantidad, &c.PrecioTotal); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
