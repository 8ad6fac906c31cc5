package record

import "time"

// Kind identifies the business document variant a record was extracted from.
type Kind string

const (
	KindPurchaseOrder Kind = "purchase_order"
	KindInquiry       Kind = "inquiry"
	KindQuotation     Kind = "quotation"
)

// Status is the derived lifecycle state of a time-bound record. It is always
// computed from wall-clock time versus the record's relevant date and never
// taken from upstream input.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// ExpiringSoonWindow is the horizon within which a not-yet-expired record is
// reported as expiring soon.
const ExpiringSoonWindow = 7 * 24 * time.Hour

// LineItem is one row of a document's item table. Quantity, UnitPrice and
// Total are always numeric in canonical form; Total equals
// Quantity*UnitPrice after reconciliation.
type LineItem struct {
	Name        string  `json:"name"`
	Code        string  `json:"code,omitempty"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// Party is the counterparty named on a document.
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Document is the canonical record shared by all three kinds. A Document is
// immutable once returned by the pipeline; collaborators (export, report,
// mail) only ever read it.
type Document struct {
	Kind         Kind       `json:"kind"`
	Number       string     `json:"number"`
	Date         time.Time  `json:"date,omitempty"`
	ExpiryDate   time.Time  `json:"expiryDate,omitempty"`
	Counterparty Party      `json:"counterparty"`
	Currency     string     `json:"currency"`
	Items        []LineItem `json:"lineItems"`
	GrandTotal   float64    `json:"grandTotal"`
	Terms        string     `json:"terms,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Status       Status     `json:"status"`

	// Valid reports whether the upstream content looked like the expected
	// document kind and all required fields survived normalization. Partial
	// records are still returned alongside an explicit validation error so a
	// human can decide.
	Valid bool `json:"isValid"`
}

// DeriveStatus computes the lifecycle status for a record whose relevant
// date is expiry. Records without an expiry date are always active.
func DeriveStatus(expiry, now time.Time) Status {
	if expiry.IsZero() {
		return StatusActive
	}
	if expiry.Before(now) {
		return StatusExpired
	}
	if expiry.Sub(now) <= ExpiringSoonWindow {
		return StatusExpiringSoon
	}
	return StatusActive
}

// ItemsTotal sums the reconciled line totals.
func (d *Document) ItemsTotal() float64 {
	var sum float64
	for _, it := range d.Items {
		sum += it.Total
	}
	return sum
}
