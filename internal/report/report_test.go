package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/tradedoc/internal/record"
)

func sampleDoc() record.Document {
	return record.Document{
		Kind:   record.KindPurchaseOrder,
		Number: "PO-2025-171",
		Date:   time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
		Counterparty: record.Party{
			Name:  "Apex Industrial Supplies",
			Email: "orders@apex.example",
		},
		Currency: "USD",
		Items: []record.LineItem{
			{Name: "Widget", Quantity: 5, UnitPrice: 180, Total: 900},
		},
		GrandTotal: 900,
		Status:     record.StatusActive,
		Valid:      true,
	}
}

func TestJSON(t *testing.T) {
	att, err := JSON(sampleDoc())
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if att.Filename != "purchase_order-PO-2025-171.json" || att.MIME != "application/json" {
		t.Fatalf("attachment meta = %+v", att)
	}
	var back record.Document
	if err := json.Unmarshal(att.Bytes, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Number != "PO-2025-171" || back.GrandTotal != 900 {
		t.Fatalf("round trip = %+v", back)
	}
}

func TestPDF(t *testing.T) {
	att, err := PDF(sampleDoc())
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if att.MIME != "application/pdf" || !strings.HasSuffix(att.Filename, ".pdf") {
		t.Fatalf("attachment meta = %+v", att)
	}
	if !bytes.HasPrefix(att.Bytes, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestAttachmentBase_SanitizesNumber(t *testing.T) {
	doc := sampleDoc()
	doc.Number = "PO/2025 #7"
	att, err := JSON(doc)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if strings.ContainsAny(att.Filename, "/# ") {
		t.Fatalf("filename not sanitized: %q", att.Filename)
	}
	doc.Number = "N/A"
	att, _ = JSON(doc)
	if att.Filename != "purchase_order-draft.json" {
		t.Fatalf("draft fallback missing: %q", att.Filename)
	}
}
