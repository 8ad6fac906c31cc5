package normalize

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tradedoc/internal/record"
)

var itemAliases = map[string][]string{
	"name":        {"name", "itemName", "productName", "product", "item"},
	"code":        {"code", "sku", "itemCode", "productId", "partNumber"},
	"description": {"description", "desc", "details"},
	"quantity":    {"quantity", "qty"},
	"unit":        {"unit", "uom"},
	"unitPrice":   {"unitPrice", "unit_price", "rate", "price"},
	"total":       {"total", "lineTotal", "amount"},
}

// lineItems builds the reconciled item list: structured entries first, and
// when those yield nothing, a secondary table-pattern pass over the raw text.
func (n *Normalizer) lineItems(data map[string]any, rawText string) []record.LineItem {
	items := n.structuredItems(data)
	if len(items) == 0 {
		items = n.tableItems(rawText)
	}
	return items
}

func (n *Normalizer) structuredItems(data map[string]any) []record.LineItem {
	raw, ok := aliasValue(data, fieldAliases["lineItems"]).([]any)
	if !ok {
		return nil
	}
	var items []record.LineItem
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		it := record.LineItem{
			Name:        n.cleanString(aliasValue(m, itemAliases["name"])),
			Code:        n.cleanString(aliasValue(m, itemAliases["code"])),
			Description: n.cleanString(aliasValue(m, itemAliases["description"])),
			Unit:        n.cleanString(aliasValue(m, itemAliases["unit"])),
			Quantity:    toFloat(aliasValue(m, itemAliases["quantity"])),
			UnitPrice:   toFloat(aliasValue(m, itemAliases["unitPrice"])),
		}
		if it.Name == "" && it.Description != "" {
			it.Name = it.Description
		}
		if reconcile(&it, toFloat(aliasValue(m, itemAliases["total"]))) {
			items = append(items, it)
		}
	}
	return items
}

// tableItems applies the table-row patterns in order and stops at the first
// one that yields at least one item.
func (n *Normalizer) tableItems(rawText string) []record.LineItem {
	for _, re := range tableRowRes {
		var items []record.LineItem
		for _, m := range re.FindAllStringSubmatch(rawText, -1) {
			it := record.LineItem{
				Name:      strings.TrimSpace(m[1]),
				Quantity:  parseAmount(m[2]),
				UnitPrice: parseAmount(m[3]),
			}
			if n.isSentinel(it.Name) || looksLikeHeader(it.Name) {
				continue
			}
			supplied := 0.0
			if len(m) > 4 {
				supplied = parseAmount(m[4])
			}
			if reconcile(&it, supplied) {
				items = append(items, it)
			}
		}
		if len(items) > 0 {
			log.Debug().Str("stage", "normalize").Int("items", len(items)).Msg("line items recovered from raw text")
			return items
		}
	}
	return nil
}

// reconcile enforces Total == Quantity*UnitPrice and rejects rows with a
// non-positive quantity or price.
func reconcile(it *record.LineItem, supplied float64) bool {
	if it.Quantity <= 0 || it.UnitPrice <= 0 {
		return false
	}
	it.Total = it.Quantity * it.UnitPrice
	if supplied != 0 && supplied != it.Total {
		log.Debug().Str("stage", "normalize").Str("item", it.Name).
			Float64("supplied", supplied).Float64("computed", it.Total).
			Msg("line total recomputed")
	}
	return true
}

var headerWords = []string{"item", "description", "qty", "quantity", "rate", "price", "total", "amount", "unit"}

func looksLikeHeader(name string) bool {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return false
	}
	hits := 0
	for _, f := range fields {
		for _, w := range headerWords {
			if f == w {
				hits++
				break
			}
		}
	}
	return hits == len(fields)
}

// grandTotal resolves the document total: structured value, raw-text ladder,
// then the sum of reconciled items.
func (n *Normalizer) grandTotal(data map[string]any, rawText string, items []record.LineItem) float64 {
	if v := toFloat(aliasValue(data, fieldAliases["totalAmount"])); v > 0 {
		return v
	}
	if s := fallbackTotal(rawText); s != "" {
		if v := parseAmount(s); v > 0 {
			return v
		}
	}
	var sum float64
	for _, it := range items {
		sum += it.Total
	}
	return sum
}
