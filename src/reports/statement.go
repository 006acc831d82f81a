package reports

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"pocketbook-server/src/models"

	"github.com/phpdave11/gofpdf"
)

// MaxStatementRows bounds the rows listed in one statement.
const MaxStatementRows = 2000

type Statement struct {
	Owner        string
	Description  string
	Summary      models.Summary
	Transactions []models.Transaction
	// Count is the number of matching transactions, which can exceed
	// len(Transactions).
	Count       int64
	GeneratedAt time.Time
}

var columnWidths = []float64{22, 26, 92, 42}

func header(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(columnWidths[0], 8, "ID", "1", 0, "C", true, 0, "")
	pdf.CellFormat(columnWidths[1], 8, "DATE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(columnWidths[2], 8, "DESCRIPTION", "1", 0, "L", true, 0, "")
	pdf.CellFormat(columnWidths[3], 8, "AMOUNT", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
}

// RenderStatement writes st as an A4 PDF to w.
func RenderStatement(w io.Writer, st Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(false, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Pocketbook Statement")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	if st.Owner != "" {
		pdf.Cell(0, 6, tr("User: "+st.Owner))
		pdf.Ln(5)
	}
	if st.Description != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Description contains: %q", st.Description)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Transactions: %d", st.Count))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)

	sumW := []float64{60, 61, 61}
	pdf.CellFormat(sumW[0], 10, "Income", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Expense", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Balance", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 10, st.Summary.TotalIncome.String(), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, st.Summary.TotalExpense.String(), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, st.Summary.NetBalance.String(), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	header(pdf)
	for i, t := range st.Transactions {
		if i >= MaxStatementRows {
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header(pdf)
		}

		pdf.CellFormat(columnWidths[0], 8, fmt.Sprintf("%d", t.ID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(columnWidths[1], 8, t.Date.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(columnWidths[2], 8, tr(trimTo(t.Description, 60)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(columnWidths[3], 8, signedAmount(t), "1", 1, "R", false, 0, "")
	}
	if st.Count > int64(len(st.Transactions)) {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, fmt.Sprintf("... %d more not shown", st.Count-int64(len(st.Transactions))), "1", 1, "C", false, 0, "")
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+st.GeneratedAt.UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf build failed: %w", err)
	}
	return nil
}

func signedAmount(t models.Transaction) string {
	if t.Type == models.Expense {
		return "-" + t.Amount.String()
	}
	return t.Amount.String()
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
