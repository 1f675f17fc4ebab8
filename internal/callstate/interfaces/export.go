package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	callstate "callboard/internal/callstate/domain"
)

const exportTimeLayout = time.RFC3339

// BuildHistoryCSV renders the call history as CSV.
func BuildHistoryCSV(entries []callstate.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"id", "ticket_number", "counter_label", "called_at"}); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		record := []string{entry.ID, entry.TicketNumber, entry.CounterLabel, entry.CalledAt.Format(exportTimeLayout)}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildHistoryPDF renders a minimal PDF for the call history.
func BuildHistoryPDF(entries []callstate.HistoryEntry) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Call History")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(exportTimeLayout)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Ticket", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Counter", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Called At", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, entry := range entries {
		pdf.CellFormat(40, 6, entry.TicketNumber, "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, entry.CounterLabel, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, entry.CalledAt.Format("2006-01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildHistoryXLSX renders a minimal XLSX for the call history.
func BuildHistoryXLSX(entries []callstate.HistoryEntry) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "history"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Ticket")
	_ = f.SetCellValue(sheet, "B1", "Counter")
	_ = f.SetCellValue(sheet, "C1", "Called At")
	for i, entry := range entries {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry.TicketNumber)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry.CounterLabel)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), entry.CalledAt.Format(exportTimeLayout))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
