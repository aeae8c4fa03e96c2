// Package report renders printable documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PrescriptionDoc is the data printed on a prescription.
type PrescriptionDoc struct {
	ID            string
	IssuedAt      time.Time
	DoctorName    string
	Designation   string
	Qualification string
	Workplace     string
	PatientName   string
	PatientEmail  string
	Slot          time.Time
	Instructions  string
	FollowUpDate  *time.Time
}

// PrescriptionPDF renders doc as an A4 PDF.
func PrescriptionPDF(doc PrescriptionDoc) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Prescription "+doc.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(20, 60, 120)
	pdf.CellFormat(0, 10, "Medicare Prescription", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, "Issued "+doc.IssuedAt.UTC().Format("02 Jan 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Doctor")
	detail(pdf, "Name", doc.DoctorName)
	detail(pdf, "Designation", doc.Designation)
	detail(pdf, "Qualification", doc.Qualification)
	detail(pdf, "Workplace", doc.Workplace)
	pdf.Ln(3)

	section(pdf, "Patient")
	detail(pdf, "Name", doc.PatientName)
	detail(pdf, "Email", doc.PatientEmail)
	if !doc.Slot.IsZero() {
		detail(pdf, "Appointment", doc.Slot.UTC().Format("02 Jan 2006 15:04 MST"))
	}
	pdf.Ln(3)

	section(pdf, "Instructions")
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, doc.Instructions, "1", "L", false)

	if doc.FollowUpDate != nil {
		pdf.Ln(3)
		detail(pdf, "Follow-up", doc.FollowUpDate.UTC().Format("02 Jan 2006"))
	}

	pdf.SetY(pdf.GetY() + 12)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 8, "This is a computer generated prescription", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render prescription pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 8, title, "1", 1, "L", true, 0, "")
}

func detail(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 7, label, "1", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, value, "1", 1, "", false, 0, "")
}
