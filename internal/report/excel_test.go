package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"comedor/internal/models"
)

func reservasPrueba() []models.ReservaRegistrada {
	return []models.ReservaRegistrada{
		{Fecha: "2026-03-02", Hora: "08:10", Turno: "MANANA", Estudiante: "Ana Torres",
			Codigo: "A2024X", Plato: "Arroz con pollo x2", Cantidad: 2, PrecioTotal: 17.0},
		{Fecha: "2026-03-02", Hora: "08:30", Turno: "MANANA", Estudiante: "Luis Paz",
			Codigo: "B2023Y", Plato: "Ceviche", Cantidad: 1, PrecioTotal: 15.0},
		{Fecha: "2026-03-02", Hora: "12:05", Turno: "TARDE", Estudiante: "Rosa Díaz",
			Codigo: "C2025Z", Plato: "Lomo saltado", Cantidad: 1, PrecioTotal: 12.5},
	}
}

func TestExportarSheetPerShift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservas.xlsx")
	require.NoError(t, Exportar(path, reservasPrueba(), "S/"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"MANANA", "TARDE"}, f.GetSheetList())

	rows, err := f.GetRows("MANANA")
	require.NoError(t, err)
	// Header, two reservations, totals row.
	require.Len(t, rows, 4)
	assert.Equal(t, "Estudiante", rows[0][3])
	assert.Equal(t, "Ana Torres", rows[1][3])
	assert.Equal(t, "S/ 17.00", rows[1][7])

	totales := rows[3]
	assert.Equal(t, "Total", totales[5])
	assert.Equal(t, "3", totales[6])
	assert.Equal(t, "S/ 32.00", totales[7])
}

func TestExportarSinReservas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vacio.xlsx")
	require.NoError(t, Exportar(path, nil, "S/"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Reservas"}, f.GetSheetList())
	rows, err := f.GetRows("Reservas")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Fecha", rows[0][0])
}

func TestAgruparPorTurnoPreservaOrden(t *testing.T) {
	grupos, orden := agruparPorTurno(reservasPrueba())
	assert.Equal(t, []string{"MANANA", "TARDE"}, orden)
	assert.Len(t, grupos["MANANA"], 2)
	assert.Len(t, grupos["TARDE"], 1)
}

func TestAddSheetTruncatesLongNames(t *testing.T) {
	w := NewWriter()
	defer w.Close()

	largo := "TURNO_EXTENDIDO_DE_LA_TARDE_CON_NOMBRE_LARGO"
	require.NoError(t, w.AddSheet(largo))
	assert.Equal(t, largo[:31], w.currentSheet)
}
