// Package report builds the merchandising analysis: variant sales
// aggregated to listing level, collection position joins, summary
// stats, and an HTML report with percentile-based conditional
// formatting.
package report

import (
	"sort"
	"time"

	"github.com/matta-kelly/local-bi/internal/warehouse"
)

// Window is one trailing sales window.
type Window struct {
	Name string
	Days int
}

// Windows are the trailing windows every rollup reports on, widest
// first. Index positions are shared by WindowSales and WindowRollup.
var Windows = []Window{
	{Name: "30d", Days: 30},
	{Name: "14d", Days: 14},
	{Name: "7d", Days: 7},
}

// WindowSales holds one variant's sales inside one window.
type WindowSales struct {
	UnitsSold   int
	Revenue     float64
	OrderCount  int
	DaysInStock int
}

// VariantSale is one variant's aggregated sales with pricing.
type VariantSale struct {
	VariantID      string
	ProductID      string
	SKU            string
	UnitsSold      int
	Revenue        float64
	OrderCount     int
	Price          float64
	CompareAtPrice float64
	MarkdownPct    float64
	MarginPct      float64
	CurrentQty     int
	ByWindow       []WindowSales // parallel to Windows
}

// BuildVariantSales aggregates order lines to variant level. Pricing
// joins against the variant snapshot; compare-at falls back to the EC
// wholesale price and then the selling price. Window sales come from
// line timestamps and days in stock from daily snapshots with positive
// quantity.
func BuildVariantSales(
	lines []warehouse.OrderLine,
	variants []warehouse.Variant,
	ecBySKU map[string]float64,
	stock []warehouse.StockDay,
	now time.Time,
) []VariantSale {
	byVariant := make(map[string]*VariantSale)
	orders := make(map[string]map[string]bool)
	windowOrders := make([]map[string]map[string]bool, len(Windows))
	for i := range Windows {
		windowOrders[i] = make(map[string]map[string]bool)
	}

	for _, ln := range lines {
		vs := byVariant[ln.VariantID]
		if vs == nil {
			vs = &VariantSale{
				VariantID: ln.VariantID,
				ByWindow:  make([]WindowSales, len(Windows)),
			}
			byVariant[ln.VariantID] = vs
			orders[ln.VariantID] = make(map[string]bool)
		}

		revenue := ln.VariantPrice * float64(ln.Quantity)
		vs.UnitsSold += ln.Quantity
		vs.Revenue += revenue
		orders[ln.VariantID][ln.OrderID] = true

		for i, w := range Windows {
			if ln.CreatedAt.Before(now.AddDate(0, 0, -w.Days)) {
				continue
			}
			vs.ByWindow[i].UnitsSold += ln.Quantity
			vs.ByWindow[i].Revenue += revenue
			if windowOrders[i][ln.VariantID] == nil {
				windowOrders[i][ln.VariantID] = make(map[string]bool)
			}
			windowOrders[i][ln.VariantID][ln.OrderID] = true
		}
	}

	for id, vs := range byVariant {
		vs.OrderCount = len(orders[id])
		for i := range Windows {
			vs.ByWindow[i].OrderCount = len(windowOrders[i][id])
		}
	}

	// Pricing join. Compare-at falls back EC then price; markdown is
	// clipped at zero so price above compare-at reads as full price.
	for _, v := range variants {
		vs := byVariant[v.VariantID]
		if vs == nil {
			continue
		}
		vs.ProductID = v.ProductID
		vs.SKU = v.SKU
		vs.Price = v.Price
		vs.CurrentQty = v.CurrentQty

		compareAt := v.CompareAtPrice
		if compareAt == 0 {
			compareAt = ecBySKU[v.SKU]
		}
		if compareAt == 0 {
			compareAt = v.Price
		}
		vs.CompareAtPrice = compareAt

		if compareAt > 0 {
			vs.MarkdownPct = (compareAt - v.Price) / compareAt
			if vs.MarkdownPct < 0 {
				vs.MarkdownPct = 0
			}
		}
		if ec := ecBySKU[v.SKU]; ec > 0 && v.Price > 0 {
			vs.MarginPct = (v.Price - ec) / v.Price
			if vs.MarginPct < 0 {
				vs.MarginPct = 0
			}
		}
	}

	// A day counts as in stock when the snapshot shows positive quantity.
	for _, sd := range stock {
		vs := byVariant[sd.VariantID]
		if vs == nil || sd.Quantity <= 0 {
			continue
		}
		for i, w := range Windows {
			if sd.SnapshotDate.Before(now.AddDate(0, 0, -w.Days)) {
				continue
			}
			vs.ByWindow[i].DaysInStock++
		}
	}

	out := make([]VariantSale, 0, len(byVariant))
	for _, vs := range byVariant {
		out = append(out, *vs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID < out[j].VariantID })
	return out
}
