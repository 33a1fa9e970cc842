package report

import (
	"sort"
	"strings"
	"time"

	"github.com/matta-kelly/local-bi/internal/warehouse"
)

// MinCurrentQty drops listings too thin to read a rate of sale from.
const MinCurrentQty = 5

// weeksOfSaleCap stands in for "never sells out" when the 30d rate of
// sale is zero with stock on hand.
const weeksOfSaleCap = 9999

// WindowRollup holds one listing's rolled-up sales inside one window.
type WindowRollup struct {
	UnitsSold   int
	Revenue     float64
	OrderCount  int
	DaysInStock int
	RateOfSale  float64
	AUR         float64
}

// ListingSales is one product listing's rollup across its variants.
type ListingSales struct {
	ProductID      string
	Title          string
	ProductType    string
	CategoryGroup  string
	PublishedAt    time.Time
	VariantCount   int
	Price          float64 // mean across variants
	CompareAtPrice float64
	MarkdownPct    float64
	MarginPct      float64
	CurrentQty     int
	ByWindow       []WindowRollup // parallel to Windows
	WeeksOfSale    float64
}

var jewelryTypeWords = []string{
	"NECKLACE", "BRACELET", "EARRING", "RING", "ANKLET", "JEWELRY", "CHARM",
}

var clothingTypeWords = []string{
	"TOP", "PANT", "DRESS", "SKIRT", "SHORT", "JACKET", "HOODIE",
	"TEE", "SHIRT", "ROMPER", "JUMPSUIT", "KIMONO", "SWEATER", "LEGGING",
}

// categoryGroup buckets a product type for the summary tables.
func categoryGroup(productType string) string {
	t := strings.ToUpper(productType)
	for _, w := range jewelryTypeWords {
		if strings.Contains(t, w) {
			return "JEWELRY"
		}
	}
	for _, w := range clothingTypeWords {
		if strings.Contains(t, w) {
			return "CLOTHING"
		}
	}
	return "OTHER"
}

// BuildListingSales rolls variant sales up to product listings,
// recomputes per-window rate of sale and AUR from the summed inputs,
// and drops listings with current quantity below MinCurrentQty.
func BuildListingSales(sales []VariantSale, listings []warehouse.Listing) []ListingSales {
	byProduct := make(map[string]*ListingSales)

	for _, vs := range sales {
		if vs.ProductID == "" {
			continue
		}
		ls := byProduct[vs.ProductID]
		if ls == nil {
			ls = &ListingSales{
				ProductID: vs.ProductID,
				ByWindow:  make([]WindowRollup, len(Windows)),
			}
			byProduct[vs.ProductID] = ls
		}

		ls.VariantCount++
		ls.Price += vs.Price
		ls.CompareAtPrice += vs.CompareAtPrice
		ls.MarkdownPct += vs.MarkdownPct
		ls.MarginPct += vs.MarginPct
		ls.CurrentQty += vs.CurrentQty
		for i := range Windows {
			ls.ByWindow[i].UnitsSold += vs.ByWindow[i].UnitsSold
			ls.ByWindow[i].Revenue += vs.ByWindow[i].Revenue
			ls.ByWindow[i].OrderCount += vs.ByWindow[i].OrderCount
			ls.ByWindow[i].DaysInStock += vs.ByWindow[i].DaysInStock
		}
	}

	out := make([]ListingSales, 0, len(byProduct))
	for _, ls := range byProduct {
		n := float64(ls.VariantCount)
		ls.Price /= n
		ls.CompareAtPrice /= n
		ls.MarkdownPct /= n
		ls.MarginPct /= n

		for i := range ls.ByWindow {
			w := &ls.ByWindow[i]
			w.RateOfSale = safeDiv(float64(w.UnitsSold), float64(w.DaysInStock), 0)
			w.AUR = safeDiv(w.Revenue, float64(w.UnitsSold), 0)
		}

		weeklyBurn := ls.ByWindow[0].RateOfSale * 7
		switch {
		case weeklyBurn > 0:
			ls.WeeksOfSale = float64(ls.CurrentQty) / weeklyBurn
		case ls.CurrentQty > 0:
			ls.WeeksOfSale = weeksOfSaleCap
		}

		if ls.CurrentQty < MinCurrentQty {
			continue
		}
		out = append(out, *ls)
	}

	// Listing detail join.
	info := make(map[string]warehouse.Listing, len(listings))
	for _, l := range listings {
		info[l.ProductID] = l
	}
	for i := range out {
		l, ok := info[out[i].ProductID]
		if !ok {
			continue
		}
		out[i].Title = l.Title
		out[i].ProductType = l.ProductType
		out[i].CategoryGroup = categoryGroup(l.ProductType)
		out[i].PublishedAt = l.PublishedAt
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// safeDiv divides, substituting fallback when the denominator is zero.
func safeDiv(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}
