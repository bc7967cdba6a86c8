// Package export renders complaint receipts as PDF.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"complaint-desk/internal/domain"
)

const timeLayout = "Jan 02, 2006 03:04 PM"

type Receipt struct {
	Complaint   domain.ComplaintView
	Logs        []domain.RecordLog
	GeneratedAt time.Time
	Location    *time.Location
}

func (r Receipt) FileName() string { return fmt.Sprintf("complaint-%s.pdf", r.Complaint.Code) }

func (r Receipt) stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timeLayout)
}

func WriteReceipt(w io.Writer, r Receipt) error {
	c := r.Complaint
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Complaint "+c.Code, true)
	pdf.SetCreator("complaint-desk", true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Complaint Receipt", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, "Generated "+r.stamp(&r.GeneratedAt), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(42, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 7, tr(value), "", "L", false)
	}
	created, updated := c.CreatedAt, c.UpdatedAt
	row("Complaint code", c.Code)
	row("Type", c.Type)
	row("Status", c.Status.Label())
	row("Resident", c.ResidentName)
	row("Room", c.RoomNumber)
	row("Submitted", r.stamp(&created))
	row("Last updated", r.stamp(&updated))
	row("Resolved", r.stamp(c.ResolvedAt))

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Description", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(c.Description), "", "L", false)
	if c.ResolutionNotes != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Resolution", "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(c.ResolutionNotes), "", "L", false)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Record log (%d)", len(r.Logs)), "B", 1, "L", false, 0, "")
	pdf.SetFillColor(245, 245, 245)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(48, 7, "Time", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "By", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 7, "Note", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range r.Logs {
		ts := l.Timestamp
		pdf.CellFormat(48, 7, r.stamp(&ts), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, tr(l.CreatedBy), "1", 0, "L", false, 0, "")
		pdf.MultiCell(0, 7, tr(l.Message), "1", "L", false)
	}

	return pdf.Output(w)
}
