// Package report exports the day's reservations to an Excel workbook, one
// sheet per shift, for the cafeteria staff.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"comedor/internal/models"
)

var columnas = []string{
	"Fecha", "Hora", "Turno", "Estudiante", "Código", "Plato", "Cantidad", "Precio",
}

// Writer builds an Excel workbook row by row.
type Writer struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddSheet adds a sheet and makes it current. Sheet names are truncated to
// the 31-character Excel limit.
func (w *Writer) AddSheet(name string) error {
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *Writer) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *Writer) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// SaveToFile writes the workbook to disk.
func (w *Writer) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}

// reservaRowValues flattens one reservation into a spreadsheet row.
func reservaRowValues(r models.ReservaRegistrada, moneda string) []interface{} {
	return []interface{}{
		r.Fecha,
		r.Hora,
		r.Turno,
		r.Estudiante,
		r.Codigo,
		r.Plato,
		r.Cantidad,
		models.FormatPrecio(moneda, r.PrecioTotal),
	}
}

// agruparPorTurno splits reservations by shift, preserving order.
func agruparPorTurno(reservas []models.ReservaRegistrada) (map[string][]models.ReservaRegistrada, []string) {
	grupos := make(map[string][]models.ReservaRegistrada)
	var orden []string
	for _, r := range reservas {
		if _, ok := grupos[r.Turno]; !ok {
			orden = append(orden, r.Turno)
		}
		grupos[r.Turno] = append(grupos[r.Turno], r)
	}
	return grupos, orden
}

// Exportar writes the reservations to path, one sheet per shift with a
// totals row at the bottom of each.
func Exportar(path string, reservas []models.ReservaRegistrada, moneda string) error {
	w := NewWriter()
	defer w.Close()

	if len(reservas) == 0 {
		if err := w.AddSheet("Reservas"); err != nil {
			return err
		}
		if err := w.WriteHeader(columnas); err != nil {
			return err
		}
		return w.SaveToFile(path)
	}

	grupos, orden := agruparPorTurno(reservas)
	for _, turno := range orden {
		if err := w.AddSheet(turno); err != nil {
			return err
		}
		if err := w.WriteHeader(columnas); err != nil {
			return err
		}

		var total float64
		var cantidad int
		for _, r := range grupos[turno] {
			if err := w.WriteRow(reservaRowValues(r, moneda)); err != nil {
				return err
			}
			total += r.PrecioTotal
			cantidad += r.Cantidad
		}

		totalRow := []interface{}{"", "", "", "", "", "Total", cantidad, models.FormatPrecio(moneda, total)}
		if err := w.WriteRow(totalRow); err != nil {
			return err
		}
	}

	return w.SaveToFile(path)
}
