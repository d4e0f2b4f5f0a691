package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// MonthCSV writes the month sheet as CSV: one row per date, one column per
// customer, then the totals row.
func MonthCSV(rep MonthReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Date"}
	for _, col := range rep.Columns {
		header = append(header, col.Name)
	}
	header = append(header, "Liters", "Amount", "Notes")
	w.Write(header)

	for _, row := range rep.Rows {
		rec := []string{row.Date}
		for _, cell := range row.Cells {
			if cell.Delivered {
				rec = append(rec, FormatVolume(cell.Volume))
			} else {
				rec = append(rec, "")
			}
		}
		rec = append(rec, FormatVolume(row.Volume), fmt.Sprintf("%.2f", row.Revenue), row.Notes)
		w.Write(rec)
	}

	totals := []string{"Total"}
	for _, ct := range rep.ColumnTotals {
		totals = append(totals, FormatVolume(ct.Volume))
	}
	totals = append(totals, FormatVolume(rep.Volume), fmt.Sprintf("%.2f", rep.Revenue), "")
	w.Write(totals)

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
