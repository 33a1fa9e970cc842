package report

import "sort"

// CategoryGroups are the groups the executive summary reports on.
// Listings outside them are excluded from the summary tables.
var CategoryGroups = []string{"CLOTHING", "JEWELRY"}

// markdownBuckets fixes the display order of the markdown table.
var markdownBuckets = []string{"0% (Full Price)", "1-20%", "21-50%", "50%+"}

// GroupSummary is one category group's share of 30-day revenue.
type GroupSummary struct {
	CategoryGroup string
	Revenue30d    float64
	UnitsSold30d  int
	PctRevenue    float64
}

// TypeSummary is one product type's 30-day sales within its group.
type TypeSummary struct {
	CategoryGroup        string
	ProductType          string
	ListingCount         int
	UnitsSold30d         int
	Revenue30d           float64
	AvgRevenuePerListing float64
	PctOfTotal           float64
	PctOfGroup           float64
}

// MarkdownSummary is one markdown depth bucket's 30-day sales.
type MarkdownSummary struct {
	Bucket               string
	ListingCount         int
	UnitsSold30d         int
	Revenue30d           float64
	AvgRevenuePerListing float64
}

func markdownBucket(pct float64) string {
	switch {
	case pct == 0:
		return markdownBuckets[0]
	case pct <= 0.20:
		return markdownBuckets[1]
	case pct <= 0.50:
		return markdownBuckets[2]
	default:
		return markdownBuckets[3]
	}
}

func inCategoryGroups(group string) bool {
	for _, g := range CategoryGroups {
		if g == group {
			return true
		}
	}
	return false
}

// BuildCategorySummary totals 30-day revenue per category group,
// sorted by revenue descending.
func BuildCategorySummary(listings []ListingSales) []GroupSummary {
	totals := make(map[string]*GroupSummary)
	var totalRevenue float64
	for _, ls := range listings {
		if !inCategoryGroups(ls.CategoryGroup) {
			continue
		}
		g := totals[ls.CategoryGroup]
		if g == nil {
			g = &GroupSummary{CategoryGroup: ls.CategoryGroup}
			totals[ls.CategoryGroup] = g
		}
		g.Revenue30d += ls.ByWindow[0].Revenue
		g.UnitsSold30d += ls.ByWindow[0].UnitsSold
		totalRevenue += ls.ByWindow[0].Revenue
	}

	out := make([]GroupSummary, 0, len(totals))
	for _, g := range totals {
		g.PctRevenue = safeDiv(g.Revenue30d, totalRevenue, 0) * 100
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revenue30d > out[j].Revenue30d })
	return out
}

// BuildTypeBreakdown breaks each category group down by product type,
// keyed by group with types sorted by revenue descending.
func BuildTypeBreakdown(listings []ListingSales) map[string][]TypeSummary {
	type key struct{ group, ptype string }
	totals := make(map[key]*TypeSummary)
	var totalRevenue float64

	for _, ls := range listings {
		if !inCategoryGroups(ls.CategoryGroup) {
			continue
		}
		k := key{ls.CategoryGroup, ls.ProductType}
		t := totals[k]
		if t == nil {
			t = &TypeSummary{CategoryGroup: ls.CategoryGroup, ProductType: ls.ProductType}
			totals[k] = t
		}
		t.ListingCount++
		t.UnitsSold30d += ls.ByWindow[0].UnitsSold
		t.Revenue30d += ls.ByWindow[0].Revenue
		totalRevenue += ls.ByWindow[0].Revenue
	}

	breakdown := make(map[string][]TypeSummary)
	for _, t := range totals {
		t.AvgRevenuePerListing = safeDiv(t.Revenue30d, float64(t.ListingCount), 0)
		t.PctOfTotal = safeDiv(t.Revenue30d, totalRevenue, 0) * 100
		breakdown[t.CategoryGroup] = append(breakdown[t.CategoryGroup], *t)
	}
	for group, types := range breakdown {
		var groupTotal float64
		for _, t := range types {
			groupTotal += t.Revenue30d
		}
		for i := range types {
			types[i].PctOfGroup = safeDiv(types[i].Revenue30d, groupTotal, 0) * 100
		}
		sort.Slice(types, func(i, j int) bool { return types[i].Revenue30d > types[j].Revenue30d })
		breakdown[group] = types
	}
	return breakdown
}

// BuildMarkdownSummary totals 30-day sales per markdown depth bucket,
// in fixed bucket order. Buckets with no listings are omitted.
func BuildMarkdownSummary(listings []ListingSales) []MarkdownSummary {
	totals := make(map[string]*MarkdownSummary)
	for _, ls := range listings {
		bucket := markdownBucket(ls.MarkdownPct)
		m := totals[bucket]
		if m == nil {
			m = &MarkdownSummary{Bucket: bucket}
			totals[bucket] = m
		}
		m.ListingCount++
		m.UnitsSold30d += ls.ByWindow[0].UnitsSold
		m.Revenue30d += ls.ByWindow[0].Revenue
	}

	out := make([]MarkdownSummary, 0, len(totals))
	for _, bucket := range markdownBuckets {
		m, ok := totals[bucket]
		if !ok {
			continue
		}
		m.AvgRevenuePerListing = safeDiv(m.Revenue30d, float64(m.ListingCount), 0)
		out = append(out, *m)
	}
	return out
}
