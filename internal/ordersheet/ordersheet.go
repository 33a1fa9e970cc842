// Package ordersheet turns rep-edited order-sheet rows into enriched
// line items. Order sheets are wide: one row per parent SKU with a
// quantity column per size. Detection finds those columns, breakout
// expands them to long form, and enrichment joins against the master
// catalog with size-alias fallbacks.
package ordersheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matta-kelly/local-bi/internal/catalog"
	"github.com/matta-kelly/local-bi/internal/csvx"
)

// OSFMSize is always accepted as a size token even when the catalog has
// no one-size-fits-most rows.
const OSFMSize = "OSFM"

// ConfigurationError reports an order sheet whose structure is
// incompatible with processing: no size-quantity columns could be
// detected. The run must stop rather than silently emit nothing.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "order sheet not processable: " + e.Reason
}

// SizeColumn maps an order-sheet column header to a canonical size.
type SizeColumn struct {
	Header string
	Size   string
}

// BreakoutRecord is one (parent, size, quantity) extracted from an
// order-sheet row. Quantity is always positive.
type BreakoutRecord struct {
	Parent string
	Size   string
	Qty    int
}

// LineItem is a breakout record enriched with master catalog data.
type LineItem struct {
	SKU        string
	Barcode    string
	Qty        int
	ExternalID string
}

// DetectSizeColumns identifies which order-sheet columns are size
// quantity fields by matching header tokens against the catalog's size
// abbreviations (plus OSFM). Headers are matched after stripping the
// literal "QTY" and slashes, e.g. "S QTY", "S/M", "QTY XL".
func DetectSizeColumns(t *csvx.Table, sizes map[string]bool) ([]SizeColumn, error) {
	sizeSet := make(map[string]bool, len(sizes)+1)
	for s := range sizes {
		sizeSet[strings.ToUpper(s)] = true
	}
	sizeSet[OSFMSize] = true

	var cols []SizeColumn
	for _, header := range t.Headers {
		clean := strings.ToUpper(header)
		clean = strings.ReplaceAll(clean, "QTY", "")
		clean = strings.ReplaceAll(clean, "/", " ")
		for _, token := range strings.Fields(clean) {
			if sizeSet[token] {
				cols = append(cols, SizeColumn{Header: header, Size: token})
				break
			}
		}
	}

	if len(cols) == 0 {
		return nil, &ConfigurationError{Reason: "no size-quantity columns detected"}
	}
	return cols, nil
}

// Breakout expands one order-sheet row into long form: one record per
// size column holding a positive numeric quantity. Blank, zero, and
// non-numeric cells are dropped without comment; reps leave most cells
// empty.
func Breakout(t *csvx.Table, row int, parent string, cols []SizeColumn) []BreakoutRecord {
	if parent == "" {
		return nil
	}

	var records []BreakoutRecord
	for _, col := range cols {
		raw := t.Cell(row, col.Header)
		if raw == "" {
			continue
		}
		qty, err := strconv.ParseFloat(raw, 64)
		if err != nil || qty == 0 {
			continue
		}
		records = append(records, BreakoutRecord{
			Parent: parent,
			Size:   col.Size,
			Qty:    int(qty),
		})
	}
	return records
}

// sizeAliases are the retry rules applied, in order, to records the
// exact join missed. Master data uses combined sizes for some styles.
var sizeAliases = []struct {
	From, To string
}{
	{From: "S", To: "SM"},
	{From: "L", To: "LXL"},
}

// Enrich joins breakout records to the master catalog on (parent, size).
// Records the exact pass misses are retried once per alias rule. The
// result re-merges all passes in priority order: exact hits first, then
// each alias pass in rule order. Records no pass matched are returned as
// unmatched keys; the caller decides how loudly to report them.
func Enrich(records []BreakoutRecord, cat *catalog.Catalog) (items []LineItem, unmatched []catalog.Key) {
	var missed []BreakoutRecord
	for _, rec := range records {
		if row, ok := cat.Lookup(rec.Parent, rec.Size); ok {
			items = append(items, toLineItem(row, rec.Qty))
		} else {
			missed = append(missed, rec)
		}
	}

	for _, alias := range sizeAliases {
		var still []BreakoutRecord
		for _, rec := range missed {
			if rec.Size != alias.From {
				still = append(still, rec)
				continue
			}
			if row, ok := cat.Lookup(rec.Parent, alias.To); ok {
				items = append(items, toLineItem(row, rec.Qty))
			} else {
				still = append(still, rec)
			}
		}
		missed = still
	}

	for _, rec := range missed {
		unmatched = append(unmatched, catalog.Key{Parent: rec.Parent, Size: rec.Size})
	}
	return items, unmatched
}

func toLineItem(row catalog.Row, qty int) LineItem {
	return LineItem{
		SKU:        row.SKU,
		Barcode:    row.UPC,
		Qty:        qty,
		ExternalID: row.ExternalID,
	}
}

// TotalQty sums the quantities of a record set. Used for reconciliation
// checks between breakout and enrichment.
func TotalQty(records []BreakoutRecord) int {
	total := 0
	for _, r := range records {
		total += r.Qty
	}
	return total
}

// FormatKey renders a catalog key for warning logs.
func FormatKey(k catalog.Key) string {
	return fmt.Sprintf("parent=%s size=%s", k.Parent, k.Size)
}
