// Package normalize turns a repaired JSON payload plus the original raw text
// into a canonical record. Structured values win when present and plausible;
// anything absent, sentinel-valued or implausible falls back to prioritized
// regular-expression extraction over the raw text.
package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tradedoc/internal/pipeline"
	"github.com/hyperifyio/tradedoc/internal/record"
)

// Denylist holds the configurable sentinel patterns. Exact entries match the
// whole trimmed lowercased value; Substrings flag obvious placeholder company
// names anywhere in the value.
type Denylist struct {
	Exact      []string
	Substrings []string
}

// DefaultDenylist returns the stock sentinel set.
func DefaultDenylist() Denylist {
	return Denylist{
		Exact:      []string{"", "-", "n/a", "na", "unknown", "null", "none", "nil", "sample", "test", "tbd"},
		Substrings: []string{"acme corp", "sample company", "test company", "your company", "company name"},
	}
}

// Options configures a Normalizer. The zero value is completed by New.
type Options struct {
	Denylist        Denylist
	DefaultCurrency string
	Now             func() time.Time
}

// Normalizer builds canonical records. Safe for concurrent use; it holds no
// per-document state.
type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Denylist.Exact == nil && opts.Denylist.Substrings == nil {
		opts.Denylist = DefaultDenylist()
	}
	return &Normalizer{opts: opts}
}

// dataKeys lists where the per-kind payload object may live inside the top
// level response, most specific first.
func dataKeys(kind record.Kind) []string {
	switch kind {
	case record.KindPurchaseOrder:
		return []string{"poData", "purchaseOrderData", "data", "record"}
	case record.KindInquiry:
		return []string{"inquiryData", "enquiryData", "data", "record"}
	case record.KindQuotation:
		return []string{"quotationData", "quoteData", "data", "record"}
	default:
		return []string{"data", "record"}
	}
}

// requiredFields is the minimal policy checked after all fallbacks ran.
var requiredFields = []string{"number", "counterpartyName"}

// Normalize builds the canonical record for kind from the repaired payload
// and the raw text it was generated from. The returned document is always
// populated as far as possible; when required fields are still missing after
// every fallback the document comes back with Valid=false together with a
// *pipeline.ValidationError naming them.
func (n *Normalizer) Normalize(payload []byte, rawText string, kind record.Kind) (record.Document, error) {
	var top map[string]any
	if err := json.Unmarshal(payload, &top); err != nil {
		top = map[string]any{}
	}

	data := topLevelData(top, kind)
	doc := record.Document{Kind: kind}

	doc.Number = n.stringField(data, rawText, "number", fallbackNumber)
	doc.Counterparty = record.Party{
		Name:    n.stringField(data, rawText, "counterpartyName", fallbackCounterparty),
		Address: n.stringField(data, rawText, "address", fallbackAddress),
		Email:   n.stringField(data, rawText, "email", fallbackEmail),
		Phone:   n.stringField(data, rawText, "phone", nil),
	}
	doc.Terms = n.cleanString(aliasValue(data, fieldAliases["terms"]))
	doc.Notes = n.cleanString(aliasValue(data, fieldAliases["notes"]))
	doc.Summary = n.cleanString(top["summary"])

	doc.Date = n.dateField(data, rawText, "date")
	doc.ExpiryDate = n.dateField(data, rawText, "expiryDate")

	doc.Currency = n.currencyField(data, rawText)
	doc.Items = n.lineItems(data, rawText)
	doc.GrandTotal = n.grandTotal(data, rawText, doc.Items)

	now := n.opts.Now()
	doc.Status = record.DeriveStatus(doc.ExpiryDate, now)

	var missing []string
	for _, f := range requiredFields {
		switch f {
		case "number":
			if doc.Number == "" || doc.Number == "N/A" {
				missing = append(missing, f)
			}
		case "counterpartyName":
			if doc.Counterparty.Name == "" || doc.Counterparty.Name == "Unknown" {
				missing = append(missing, f)
			}
		}
	}

	payloadValid := true
	if v, ok := top["isValid"].(bool); ok {
		payloadValid = v
	}
	doc.Valid = payloadValid && len(missing) == 0

	// Field-specific absence policy: these never stay empty.
	if doc.Number == "" {
		doc.Number = "N/A"
	}
	if doc.Counterparty.Name == "" {
		doc.Counterparty.Name = "Unknown"
	}

	if len(missing) > 0 {
		log.Debug().Str("stage", "normalize").Strs("missing", missing).Msg("required fields absent after fallbacks")
		return doc, &pipeline.ValidationError{Missing: missing}
	}
	if !payloadValid {
		return doc, &pipeline.ValidationError{Reason: "content not recognized as " + string(kind)}
	}
	return doc, nil
}

// topLevelData finds the per-kind object; when none of the known keys hold
// an object the top level itself is treated as the data object.
func topLevelData(top map[string]any, kind record.Kind) map[string]any {
	for _, k := range dataKeys(kind) {
		if m, ok := top[k].(map[string]any); ok {
			return m
		}
	}
	return top
}

// stringField resolves a string field: alias lookup, sentinel scrub, then the
// raw-text fallback ladder.
func (n *Normalizer) stringField(data map[string]any, rawText, field string, fallback func(string) string) string {
	if s := n.cleanString(aliasValue(data, fieldAliases[field])); s != "" {
		return s
	}
	if fallback == nil {
		return ""
	}
	return strings.TrimSpace(fallback(rawText))
}

// cleanString coerces v to a trimmed string and scrubs sentinels to "".
func (n *Normalizer) cleanString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if n.isSentinel(s) {
		return ""
	}
	return s
}

func (n *Normalizer) isSentinel(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, e := range n.opts.Denylist.Exact {
		if lower == e {
			return true
		}
	}
	for _, sub := range n.opts.Denylist.Substrings {
		if sub != "" && strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// aliasValue returns the first alias present in data with a non-nil value.
func aliasValue(data map[string]any, aliases []string) any {
	for _, k := range aliases {
		if v, ok := data[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// fieldAliases maps each canonical field to its accepted spellings in
// priority order.
var fieldAliases = map[string][]string{
	"number": {
		"number", "poNumber", "po_number", "po_no", "orderNumber",
		"inquiryNumber", "quotationNumber", "quoteNumber",
		"documentNumber", "referenceNumber", "reference",
	},
	"date": {
		"date", "poDate", "orderDate", "inquiryDate", "quotationDate",
		"documentDate", "issueDate",
	},
	"expiryDate": {
		"expiryDate", "expiry_date", "expiry", "validUntil", "valid_until",
		"validityDate", "expirationDate",
	},
	"counterpartyName": {
		"counterpartyName", "customerName", "supplierName", "vendorName",
		"buyerName", "companyName", "customer", "supplier",
	},
	"address": {
		"address", "customerAddress", "supplierAddress", "billingAddress",
	},
	"email": {
		"email", "customerEmail", "supplierEmail", "contactEmail",
	},
	"phone": {
		"phone", "phoneNumber", "contactPhone", "telephone", "mobile",
	},
	"currency": {
		"currency", "currencyCode",
	},
	"totalAmount": {
		"totalAmount", "grandTotal", "total", "netTotal", "amount",
	},
	"terms": {
		"terms", "paymentTerms", "termsAndConditions", "deliveryTerms",
	},
	"notes": {
		"notes", "remarks", "comments", "note",
	},
	"lineItems": {
		"lineItems", "items", "line_items", "products", "itemList",
	},
}
