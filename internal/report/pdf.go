package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
)

// Core PDF fonts are Latin-1 only, so amounts use "Rs." instead of the rupee sign.
const currencyPrefix = "Rs."

// FormatVolume prints liters without trailing zeros.
func FormatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatAmount prints a rupee amount with two decimals.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%s %.2f", currencyPrefix, v)
}

// MonthPDF renders the month sheet on landscape A4 pages.
func MonthPDF(rep MonthReport, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(277, 12, "Milk Delivery Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(277, 8, monthTitle(rep.Month), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(277, 6, fmt.Sprintf("Generated: %s", generated.Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Summary band
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(69, 8, fmt.Sprintf("Total: %s L", FormatVolume(rep.Volume)), "1", 0, "C", true, 0, "")
	pdf.CellFormat(69, 8, fmt.Sprintf("Revenue: %s", FormatAmount(rep.Revenue)), "1", 0, "C", true, 0, "")
	pdf.CellFormat(69, 8, fmt.Sprintf("Delivery days: %d", rep.DeliveryDays), "1", 0, "C", true, 0, "")
	pdf.CellFormat(70, 8, fmt.Sprintf("Average: %.1f L/day", rep.AverageVolume), "1", 1, "C", true, 0, "")
	pdf.Ln(4)

	if len(rep.Columns) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.CellFormat(277, 8, "No active customers.", "", 1, "C", false, 0, "")
		return output(pdf)
	}

	const dateW, totalW = 26.0, 24.0
	colW := (277 - dateW - 2*totalW) / float64(len(rep.Columns))
	if colW > 30 {
		colW = 30
	}

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(dateW, 7, "Date", "1", 0, "C", true, 0, "")
		for _, col := range rep.Columns {
			pdf.CellFormat(colW, 7, fit(pdf, col.Name, colW), "1", 0, "C", true, 0, "")
		}
		pdf.CellFormat(totalW, 7, "Liters", "1", 0, "C", true, 0, "")
		pdf.CellFormat(totalW, 7, "Amount", "1", 1, "C", true, 0, "")
	}
	header()

	pdf.SetFont("Arial", "", 8)
	for _, row := range rep.Rows {
		if pdf.GetY() > 190 {
			pdf.AddPage()
			header()
			pdf.SetFont("Arial", "", 8)
		}
		pdf.CellFormat(dateW, 6, row.Date, "1", 0, "C", false, 0, "")
		for _, cell := range row.Cells {
			text := "-"
			if cell.Delivered {
				text = FormatVolume(cell.Volume)
			}
			pdf.CellFormat(colW, 6, text, "1", 0, "C", false, 0, "")
		}
		pdf.CellFormat(totalW, 6, FormatVolume(row.Volume), "1", 0, "R", false, 0, "")
		pdf.CellFormat(totalW, 6, fmt.Sprintf("%.2f", row.Revenue), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(dateW, 7, "Total", "1", 0, "C", true, 0, "")
	for _, ct := range rep.ColumnTotals {
		pdf.CellFormat(colW, 7, FormatVolume(ct.Volume), "1", 0, "C", true, 0, "")
	}
	pdf.CellFormat(totalW, 7, FormatVolume(rep.Volume), "1", 0, "R", true, 0, "")
	pdf.CellFormat(totalW, 7, fmt.Sprintf("%.2f", rep.Revenue), "1", 1, "R", true, 0, "")

	return output(pdf)
}

// BillPDF renders a customer's monthly bill on portrait A4.
func BillPDF(st Statement, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Milk Bill", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", generated.Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Customer Information", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", st.Customer.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Phone: %s", st.Customer.Phone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Address: %s", st.Customer.Address), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Month: %s", monthTitle(st.Month)), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Deliveries", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(70, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 7, "Liters", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	if len(st.Lines) == 0 {
		pdf.CellFormat(190, 6, "No deliveries this month.", "1", 1, "C", false, 0, "")
	}
	for _, line := range st.Lines {
		pdf.CellFormat(70, 6, line.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, FormatVolume(line.Volume), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, FormatAmount(line.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Total: %s L", FormatVolume(st.Volume)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Rate: %s/L", FormatAmount(st.Price)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Deliveries: %d", st.Deliveries), "1", 1, "C", false, 0, "")

	pdf.SetFillColor(255, 230, 200)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, fmt.Sprintf("Amount Due: %s", FormatAmount(st.Revenue)), "1", 1, "C", true, 0, "")

	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// fit truncates text to the cell width.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	for len(text) > 1 && pdf.GetStringWidth(text) > width-2 {
		text = text[:len(text)-1]
	}
	return text
}

func monthTitle(ym string) string {
	t, err := time.Parse("2006-01", ym)
	if err != nil {
		return ym
	}
	return t.Format("January 2006")
}
