// Package transform assembles ERP-import rows from a rep order sheet.
// It folds sheet rows into order groups (a non-empty Customer cell
// starts a new order), breaks each row out into line items, enriches
// them against the master catalog, matches the customer to a contact,
// and renders the final CSV records.
package transform

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matta-kelly/local-bi/internal/catalog"
	"github.com/matta-kelly/local-bi/internal/contacts"
	"github.com/matta-kelly/local-bi/internal/csvx"
	"github.com/matta-kelly/local-bi/internal/ordersheet"
	"github.com/matta-kelly/local-bi/internal/shipdate"
)

// Order-sheet column names.
const (
	CustomerCol = "Customer"
	ShipDateCol = "Ship Date"
	NotesCol    = "Notes"
	ParentCol   = "Parent SKU"
)

// OutputColumns is the fixed column order of the ERP import file.
var OutputColumns = []string{
	"Salesperson", "Sales Team", "Name", "ID",
	"SKU", "Quantity", "External ID", "Tags", "Rep Notes",
}

const noteSeparator = " | "

// Options carries the per-batch values stamped onto every order.
type Options struct {
	Salesperson string
	SalesTeam   string
	Tag         string
}

// Order is one customer order group: the header resolved once, plus
// every line item from its rows.
type Order struct {
	Customer      string
	ContactID     string
	MatchLabel    string
	ShipDate      string
	ShipDefaulted bool
	Notes         []string // rep notes, one entry per source row that had any
	Items         []ordersheet.LineItem
}

// ComposeNotes builds the Rep Notes cell: ship-date annotation, match
// annotation, then the rep's own notes, in that order.
func (o *Order) ComposeNotes() string {
	parts := []string{o.shipAnnotation(), o.MatchLabel}
	parts = append(parts, o.Notes...)
	return strings.Join(parts, noteSeparator)
}

func (o *Order) shipAnnotation() string {
	s := "Ship date: " + o.ShipDate
	if o.ShipDefaulted {
		s += " (defaulted)"
	}
	return s
}

// Result is everything a Group pass produces besides the orders
// themselves: run-level telemetry for the log digest.
type Result struct {
	Orders         []Order
	MatchStats     contacts.Stats
	Unmatched      []catalog.Key // size-fallback failures, deduplicated
	DatesDefaulted int
}

// Group folds the order sheet into order groups. Rows above the first
// non-empty Customer cell have no order to belong to and are skipped
// with a warning. Unmatched (parent, size) combinations are warned
// once per run, not once per row.
func Group(t *csvx.Table, cols []ordersheet.SizeColumn, cat *catalog.Catalog, list *contacts.List, now time.Time, logger *slog.Logger) *Result {
	res := &Result{}
	seen := make(map[catalog.Key]bool)
	var cur *Order

	for i := 0; i < t.Len(); i++ {
		customer := csvx.CleanCell(t.Cell(i, CustomerCol))
		if customer != "" {
			m := list.Match(customer)
			res.MatchStats.Record(m)
			if m.Tier == contacts.TierNone {
				logger.Warn("unmatched customer", "name", customer,
					"suggestions", list.Suggest(customer, 3))
			}

			date, defaulted := shipdate.Normalize(t.Cell(i, ShipDateCol), now)
			if defaulted {
				res.DatesDefaulted++
				logger.Warn("ship date defaulted", "customer", customer,
					"raw", t.Cell(i, ShipDateCol), "date", date)
			}

			res.Orders = append(res.Orders, Order{
				Customer:      customer,
				ContactID:     m.ContactID,
				MatchLabel:    m.Label,
				ShipDate:      date,
				ShipDefaulted: defaulted,
			})
			cur = &res.Orders[len(res.Orders)-1]
		}

		if cur == nil {
			logger.Warn("row before first customer, skipped", "row", i)
			continue
		}

		if note := csvx.CleanCell(t.Cell(i, NotesCol)); note != "" {
			cur.Notes = append(cur.Notes, note)
		}

		parent := strings.ToUpper(csvx.CleanCell(t.Cell(i, ParentCol)))
		records := ordersheet.Breakout(t, i, parent, cols)
		items, unmatched := ordersheet.Enrich(records, cat)
		cur.Items = append(cur.Items, items...)

		for _, k := range unmatched {
			if seen[k] {
				continue
			}
			seen[k] = true
			res.Unmatched = append(res.Unmatched, k)
		}
	}

	sort.Slice(res.Unmatched, func(i, j int) bool {
		a, b := res.Unmatched[i], res.Unmatched[j]
		if a.Parent != b.Parent {
			return a.Parent < b.Parent
		}
		return a.Size < b.Size
	})
	for _, k := range res.Unmatched {
		logger.Warn("unmatched combo", "parent", k.Parent, "size", k.Size)
	}

	logger.Info("orders grouped",
		"orders", len(res.Orders),
		"unmatched_combos", len(res.Unmatched),
		"dates_defaulted", res.DatesDefaulted,
	)
	return res
}

// Render produces the final CSV records, header first. Only the first
// line item of each order carries the header fields; the ERP importer
// treats the lead row as the order and the rest as its lines. Orders
// that matched no line items emit nothing.
func Render(orders []Order, opts Options) [][]string {
	records := [][]string{OutputColumns}
	for i := range orders {
		o := &orders[i]
		if len(o.Items) == 0 {
			continue
		}
		for j, it := range o.Items {
			if j == 0 {
				records = append(records, []string{
					opts.Salesperson, opts.SalesTeam, o.Customer, o.ContactID,
					it.SKU, strconv.Itoa(it.Qty), it.ExternalID, opts.Tag, o.ComposeNotes(),
				})
				continue
			}
			records = append(records, []string{
				"", "", "", "",
				it.SKU, strconv.Itoa(it.Qty), it.ExternalID, "", "",
			})
		}
	}
	return records
}
