package report

import (
	"log/slog"
	"time"

	"github.com/matta-kelly/local-bi/internal/searchspring"
)

// DefaultLowStockWeeks flags listings likely to sell out mid-campaign.
const DefaultLowStockWeeks = 2.0

// CollectionRow is one collection position joined to its listing sales.
// Unmatched positions keep zero metrics with Matched false.
type CollectionRow struct {
	Position      int
	Name          string
	Matched       bool
	PublishedAt   time.Time
	UnitsSold30d  int
	Revenue30d    float64
	RateOfSale30d float64
	VelocityTrend float64
	MarkdownPct   float64
	MarginPct     float64
	WeeksOfSale   float64
	LowStock      bool
}

// BuildCollectionAnalysis joins collection positions to listing sales
// on product name = listing title. Velocity trend compares the 7d rate
// of sale to 30d; a trend above 1 is heating up.
func BuildCollectionAnalysis(
	products []searchspring.Product,
	listings []ListingSales,
	lowStockWeeks float64,
	logger *slog.Logger,
) []CollectionRow {
	byTitle := make(map[string]ListingSales, len(listings))
	for _, ls := range listings {
		byTitle[ls.Title] = ls
	}

	out := make([]CollectionRow, 0, len(products))
	matched := 0
	for _, p := range products {
		row := CollectionRow{Position: p.Position, Name: p.Name}
		if ls, ok := byTitle[p.Name]; ok {
			row.Matched = true
			row.PublishedAt = ls.PublishedAt
			row.UnitsSold30d = ls.ByWindow[0].UnitsSold
			row.Revenue30d = ls.ByWindow[0].Revenue
			row.RateOfSale30d = ls.ByWindow[0].RateOfSale
			row.VelocityTrend = safeDiv(ls.ByWindow[2].RateOfSale, ls.ByWindow[0].RateOfSale, 0)
			row.MarkdownPct = ls.MarkdownPct
			row.MarginPct = ls.MarginPct
			row.WeeksOfSale = ls.WeeksOfSale
			row.LowStock = ls.WeeksOfSale < lowStockWeeks
			matched++
		}
		out = append(out, row)
	}

	pct := 0.0
	if len(out) > 0 {
		pct = float64(matched) / float64(len(out)) * 100
	}
	logger.Info("collection analysis built",
		"positions", len(out), "matched", matched, "match_pct", pct)
	return out
}
