// Package report renders canonical records into the attachment formats the
// mail layer consumes: a simple tabular PDF and indented JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/tradedoc/internal/record"
)

// Attachment is the narrow contract handed to the transport layer: opaque
// bytes plus just enough metadata to send them.
type Attachment struct {
	Filename string
	MIME     string
	Bytes    []byte
}

func kindTitle(kind record.Kind) string {
	switch kind {
	case record.KindInquiry:
		return "Inquiry"
	case record.KindQuotation:
		return "Quotation"
	default:
		return "Purchase Order"
	}
}

// JSON renders the record as an indented JSON attachment.
func JSON(doc record.Document) (Attachment, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Attachment{}, fmt.Errorf("marshal record: %w", err)
	}
	return Attachment{
		Filename: attachmentBase(doc) + ".json",
		MIME:     "application/json",
		Bytes:    b,
	}, nil
}

// PDF renders the record as a one-page summary: header block, counterparty,
// line-item table and totals.
func PDF(doc record.Document) (Attachment, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, kindTitle(doc.Kind)+" "+doc.Number, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	if !doc.Date.IsZero() {
		pdf.CellFormat(0, 6, "Date: "+doc.Date.Format("2006-01-02"), "", 1, "L", false, 0, "")
	}
	if !doc.ExpiryDate.IsZero() {
		pdf.CellFormat(0, 6, "Valid until: "+doc.ExpiryDate.Format("2006-01-02"), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Status: "+string(doc.Status), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, doc.Counterparty.Name, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{doc.Counterparty.Address, doc.Counterparty.Email, doc.Counterparty.Phone} {
		if line != "" {
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(3)

	if len(doc.Items) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, "Qty", "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, "Unit Price", "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, "Total", "1", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, it := range doc.Items {
			name := it.Name
			if it.Code != "" {
				name = it.Code + " " + name
			}
			pdf.CellFormat(90, 7, name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 7, trimZeros(it.Quantity), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, money(it.UnitPrice), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, money(it.Total), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Grand Total: %s %s", doc.Currency, money(doc.GrandTotal)), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	if doc.Terms != "" {
		pdf.Ln(2)
		pdf.MultiCell(0, 5, "Terms: "+doc.Terms, "", "L", false)
	}
	if doc.Notes != "" {
		pdf.MultiCell(0, 5, "Notes: "+doc.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Attachment{}, fmt.Errorf("render pdf: %w", err)
	}
	return Attachment{
		Filename: attachmentBase(doc) + ".pdf",
		MIME:     "application/pdf",
		Bytes:    buf.Bytes(),
	}, nil
}

func attachmentBase(doc record.Document) string {
	num := doc.Number
	if num == "" || num == "N/A" {
		num = "draft"
	}
	num = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, num)
	return string(doc.Kind) + "-" + num
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func trimZeros(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
