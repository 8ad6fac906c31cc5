package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/hyperifyio/tradedoc/internal/pipeline"
	"github.com/hyperifyio/tradedoc/internal/record"
)

func testNormalizer() *Normalizer {
	return New(Options{
		Now: func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func TestNormalize_CommaBearingAmount(t *testing.T) {
	n := testNormalizer()
	payload := []byte(`{"isValid":true,"poData":{"poNumber":"PO-99","customerName":"Apex Industrial Supplies","totalAmount":"1,234.50"},"summary":"ok"}`)
	doc, err := n.Normalize(payload, "", record.KindPurchaseOrder)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if doc.Number != "PO-99" {
		t.Fatalf("number = %q", doc.Number)
	}
	if doc.GrandTotal != 1234.50 {
		t.Fatalf("grand total = %v, want 1234.50", doc.GrandTotal)
	}
	if doc.Summary != "ok" || !doc.Valid {
		t.Fatalf("summary=%q valid=%v", doc.Summary, doc.Valid)
	}
}

func TestNormalize_MismatchedLineTotalRecomputed(t *testing.T) {
	n := testNormalizer()
	payload := []byte(`{"isValid":true,"poData":{"poNumber":"PO-7","customerName":"Apex Industrial Supplies","lineItems":[{"itemName":"Widget","quantity":"5.00","unitPrice":"180.00","total":"850.00"}]}}`)
	doc, err := n.Normalize(payload, "", record.KindPurchaseOrder)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("items = %d", len(doc.Items))
	}
	it := doc.Items[0]
	if it.Name != "Widget" || it.Quantity != 5 || it.UnitPrice != 180 {
		t.Fatalf("item = %+v", it)
	}
	if it.Total != 900 {
		t.Fatalf("total = %v, want 900 (recomputed)", it.Total)
	}
	if doc.GrandTotal != 900 {
		t.Fatalf("grand total = %v, want item sum", doc.GrandTotal)
	}
}

func TestNormalize_NumberFallbackFromRawText(t *testing.T) {
	n := testNormalizer()
	payload := []byte(`{"isValid":true,"poData":{"customerName":"Apex Industrial Supplies"}}`)
	raw := "Apex Industrial Supplies\nPO Number: PO-2025-171\nTotal Amount: USD 450.00"
	doc, err := n.Normalize(payload, raw, record.KindPurchaseOrder)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if doc.Number != "PO-2025-171" {
		t.Fatalf("number = %q, want fallback PO-2025-171", doc.Number)
	}
	if doc.Currency != "USD" {
		t.Fatalf("currency = %q", doc.Currency)
	}
	if doc.GrandTotal != 450 {
		t.Fatalf("grand total = %v", doc.GrandTotal)
	}
}

func TestNormalize_SentinelsTreatedAsAbsent(t *testing.T) {
	n := testNormalizer()
	payload := []byte(`{"isValid":true,"poData":{"poNumber":"N/A","customerName":"Sample Company Ltd"}}`)
	raw := "Supplier: Jensen Fabrication GmbH\nPO Number: PO-11"
	doc, err := n.Normalize(payload, raw, record.KindPurchaseOrder)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if doc.Number != "PO-11" {
		t.Fatalf("sentinel number not replaced: %q", doc.Number)
	}
	if doc.Counterparty.Name != "Jensen Fabrication GmbH" {
		t.Fatalf("placeholder counterparty not replaced: %q", doc.Counterparty.Name)
	}
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	n := testNormalizer()
	doc, err := n.Normalize([]byte(`{"isValid":true}`), "nothing recognizable here", record.KindInquiry)
	var ve *pipeline.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Missing) == 0 {
		t.Fatal("missing list empty")
	}
	if doc.Valid {
		t.Fatal("document marked valid despite missing fields")
	}
	if doc.Number != "N/A" || doc.Counterparty.Name != "Unknown" {
		t.Fatalf("absence defaults not applied: %q %q", doc.Number, doc.Counterparty.Name)
	}
}

func TestNormalize_InvalidFlagPropagates(t *testing.T) {
	n := testNormalizer()
	payload := []byte(`{"isValid":false,"poData":{"poNumber":"PO-5","customerName":"Apex Industrial Supplies"}}`)
	doc, err := n.Normalize(payload, "", record.KindPurchaseOrder)
	var ve *pipeline.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for isValid=false, got %v", err)
	}
	if doc.Valid {
		t.Fatal("valid flag not propagated")
	}
	if doc.Number != "PO-5" {
		t.Fatal("partial record discarded")
	}
}

func TestNormalize_TableFallbackForItems(t *testing.T) {
	n := testNormalizer()
	payload := []byte(`{"isValid":true,"quotationData":{"quotationNumber":"QT-88","supplierName":"Jensen Fabrication GmbH"}}`)
	raw := "Quotation QT-88\nItem Qty Rate Total\nWidget 5 180.00 900.00\nBracket 10 12.50 125.00\nGrand Total: 1025.00"
	doc, err := n.Normalize(payload, raw, record.KindQuotation)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(doc.Items) != 2 {
		t.Fatalf("items = %+v", doc.Items)
	}
	if doc.Items[0].Name != "Widget" || doc.Items[0].Total != 900 {
		t.Fatalf("first item = %+v", doc.Items[0])
	}
	if doc.Items[1].Total != 125 {
		t.Fatalf("second item = %+v", doc.Items[1])
	}
	if doc.GrandTotal != 1025 {
		t.Fatalf("grand total = %v", doc.GrandTotal)
	}
}

func TestNormalize_RejectsNonPositiveRows(t *testing.T) {
	n := testNormalizer()
	payload := []byte(`{"isValid":true,"poData":{"poNumber":"PO-3","customerName":"Apex Industrial Supplies","lineItems":[
		{"name":"Free sample unit","quantity":0,"unitPrice":10},
		{"name":"Adjustment","quantity":2,"unitPrice":-1},
		{"name":"Bolt","quantity":3,"unitPrice":1.5}
	]}}`)
	doc, err := n.Normalize(payload, "", record.KindPurchaseOrder)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(doc.Items) != 1 || doc.Items[0].Name != "Bolt" || doc.Items[0].Total != 4.5 {
		t.Fatalf("items = %+v", doc.Items)
	}
}

func TestNormalize_StatusDerivation(t *testing.T) {
	n := testNormalizer() // now = 2025-06-01
	cases := []struct {
		name   string
		expiry string
		want   record.Status
	}{
		{"far future", "2025-12-31", record.StatusActive},
		{"inside window", "2025-06-05", record.StatusExpiringSoon},
		{"past", "2025-05-01", record.StatusExpired},
		{"absent", "", record.StatusActive},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			payload := []byte(`{"isValid":true,"quotationData":{"quotationNumber":"QT-1","supplierName":"Jensen Fabrication GmbH","validUntil":"` + c.expiry + `"}}`)
			doc, err := n.Normalize(payload, "", record.KindQuotation)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if doc.Status != c.want {
				t.Fatalf("status = %q, want %q", doc.Status, c.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-08-15", time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"15/08/2025", time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"15Aug25", time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"15 August 2025", time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"August 15, 2025", time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"01Jan69", time.Date(2069, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"01Jan70", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"31 Feb 2025", time.Time{}},
		{"not a date", time.Time{}},
	}
	for _, c := range cases {
		if got := parseDate(c.in); !got.Equal(c.want) {
			t.Errorf("parseDate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1,234.50", 1234.50},
		{"1 234,50", 1234.50},
		{"1.234,50", 1234.50},
		{"1.234,50 EUR", 1234.50},
		{"$ 900.00", 900},
		{"USD 450", 450},
		{"1'000'000", 1000000},
		{"12,345", 12345},
		{"", 0},
		{"n/a", 0},
		{"-12.5", -12.5},
	}
	for _, c := range cases {
		if got := parseAmount(c.in); got != c.want {
			t.Errorf("parseAmount(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDetectCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Total: EUR 1,234.50", "EUR"},
		{"Total: 1,234.50 GBP", "GBP"},
		{"Amount due $500", "USD"},
		{"five hundred euro net", "EUR"},
		{"PLEASE TRY AGAIN LATER", ""},
		{"ALL ITEMS SHIPPED", ""},
		{"TRY 1,250.00", "TRY"},
		{"no cue at all", ""},
	}
	for _, c := range cases {
		if got := detectCurrency(c.in); got != c.want {
			t.Errorf("detectCurrency(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
