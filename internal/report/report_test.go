package report

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/matta-kelly/local-bi/internal/searchspring"
	"github.com/matta-kelly/local-bi/internal/warehouse"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ---------- variant sales ----------

func testVariantSales() []VariantSale {
	lines := []warehouse.OrderLine{
		{OrderID: "o1", VariantID: "v1", Quantity: 2, VariantPrice: 10, CreatedAt: daysAgo(3)},
		{OrderID: "o2", VariantID: "v1", Quantity: 1, VariantPrice: 10, CreatedAt: daysAgo(20)},
		{OrderID: "o1", VariantID: "v1", Quantity: 1, VariantPrice: 10, CreatedAt: daysAgo(40)},
		{OrderID: "o3", VariantID: "v2", Quantity: 5, VariantPrice: 4, CreatedAt: daysAgo(10)},
	}
	variants := []warehouse.Variant{
		{VariantID: "v1", ProductID: "p1", SKU: "SKU1", Price: 10, CurrentQty: 10},
		{VariantID: "v2", ProductID: "p1", SKU: "SKU2", Price: 4, CompareAtPrice: 5, CurrentQty: 3},
	}
	ec := map[string]float64{"SKU1": 20, "SKU2": 2}
	stock := []warehouse.StockDay{
		{VariantID: "v1", Quantity: 5, SnapshotDate: daysAgo(1)},
		{VariantID: "v1", Quantity: 0, SnapshotDate: daysAgo(5)},
		{VariantID: "v1", Quantity: 2, SnapshotDate: daysAgo(20)},
	}
	return BuildVariantSales(lines, variants, ec, stock, testNow)
}

func TestBuildVariantSalesAggregates(t *testing.T) {
	sales := testVariantSales()
	if len(sales) != 2 {
		t.Fatalf("got %d variants, want 2", len(sales))
	}

	v1 := sales[0]
	if v1.VariantID != "v1" {
		t.Fatalf("sales[0] = %q, want v1", v1.VariantID)
	}
	if v1.UnitsSold != 4 || !almost(v1.Revenue, 40) || v1.OrderCount != 2 {
		t.Errorf("v1 totals = %d units, %.2f revenue, %d orders", v1.UnitsSold, v1.Revenue, v1.OrderCount)
	}

	// 30d window excludes the 40-day-old line.
	w30 := v1.ByWindow[0]
	if w30.UnitsSold != 3 || !almost(w30.Revenue, 30) || w30.OrderCount != 2 {
		t.Errorf("v1 30d = %+v", w30)
	}
	w7 := v1.ByWindow[2]
	if w7.UnitsSold != 2 || w7.OrderCount != 1 {
		t.Errorf("v1 7d = %+v", w7)
	}

	// Zero-quantity snapshots do not count as in stock.
	if w30.DaysInStock != 2 || w7.DaysInStock != 1 {
		t.Errorf("v1 days in stock: 30d=%d 7d=%d", w30.DaysInStock, w7.DaysInStock)
	}
}

func TestBuildVariantSalesPricing(t *testing.T) {
	sales := testVariantSales()
	v1, v2 := sales[0], sales[1]

	// No compare-at on v1: falls back to EC.
	if !almost(v1.CompareAtPrice, 20) || !almost(v1.MarkdownPct, 0.5) {
		t.Errorf("v1 compare_at=%.2f markdown=%.2f", v1.CompareAtPrice, v1.MarkdownPct)
	}
	// EC above selling price clips margin at zero.
	if v1.MarginPct != 0 {
		t.Errorf("v1 margin = %.2f, want 0", v1.MarginPct)
	}

	if !almost(v2.CompareAtPrice, 5) || !almost(v2.MarkdownPct, 0.2) {
		t.Errorf("v2 compare_at=%.2f markdown=%.2f", v2.CompareAtPrice, v2.MarkdownPct)
	}
	if !almost(v2.MarginPct, 0.5) {
		t.Errorf("v2 margin = %.2f, want 0.5", v2.MarginPct)
	}
}

// ---------- listing rollup ----------

func testListings() []warehouse.Listing {
	return []warehouse.Listing{
		{ProductID: "p1", Title: "Sunset Maxi Dress", ProductType: "Dresses", PublishedAt: daysAgo(100)},
	}
}

func TestBuildListingSalesRollsUp(t *testing.T) {
	rollup := BuildListingSales(testVariantSales(), testListings())
	if len(rollup) != 1 {
		t.Fatalf("got %d listings, want 1", len(rollup))
	}

	ls := rollup[0]
	if ls.ProductID != "p1" || ls.Title != "Sunset Maxi Dress" || ls.CategoryGroup != "CLOTHING" {
		t.Errorf("listing identity = %+v", ls)
	}
	if ls.VariantCount != 2 || ls.CurrentQty != 13 {
		t.Errorf("variant_count=%d current_qty=%d", ls.VariantCount, ls.CurrentQty)
	}
	if !almost(ls.Price, 7) {
		t.Errorf("mean price = %.2f, want 7", ls.Price)
	}
	if !almost(ls.MarkdownPct, 0.35) {
		t.Errorf("mean markdown = %.2f, want 0.35", ls.MarkdownPct)
	}

	w30 := ls.ByWindow[0]
	if w30.UnitsSold != 8 || !almost(w30.Revenue, 50) {
		t.Errorf("30d rollup = %+v", w30)
	}
	if !almost(w30.RateOfSale, 4) {
		t.Errorf("ros30 = %.4f, want 4 (8 units / 2 days)", w30.RateOfSale)
	}
	if !almost(w30.AUR, 6.25) {
		t.Errorf("aur30 = %.4f, want 6.25", w30.AUR)
	}
	if !almost(ls.WeeksOfSale, 13.0/28.0) {
		t.Errorf("weeks_of_sale = %.4f", ls.WeeksOfSale)
	}
}

func TestBuildListingSalesFiltersThinInventory(t *testing.T) {
	sales := []VariantSale{
		{VariantID: "v9", ProductID: "p9", CurrentQty: 4, ByWindow: make([]WindowSales, len(Windows))},
	}
	if got := BuildListingSales(sales, nil); len(got) != 0 {
		t.Fatalf("expected thin listing dropped, got %d", len(got))
	}
}

func TestBuildListingSalesWeeksCappedWithoutSales(t *testing.T) {
	sales := []VariantSale{
		{VariantID: "v9", ProductID: "p9", CurrentQty: 50, ByWindow: make([]WindowSales, len(Windows))},
	}
	got := BuildListingSales(sales, nil)
	if len(got) != 1 {
		t.Fatalf("got %d listings, want 1", len(got))
	}
	if got[0].WeeksOfSale != weeksOfSaleCap {
		t.Errorf("weeks_of_sale = %.0f, want cap", got[0].WeeksOfSale)
	}
}

func TestCategoryGroup(t *testing.T) {
	tests := []struct {
		productType string
		want        string
	}{
		{"Dresses", "CLOTHING"},
		{"Harem Pants", "CLOTHING"},
		{"Beaded Necklaces", "JEWELRY"},
		{"Stacking Rings", "JEWELRY"},
		{"Stickers", "OTHER"},
		{"", "OTHER"},
	}
	for _, tt := range tests {
		if got := categoryGroup(tt.productType); got != tt.want {
			t.Errorf("categoryGroup(%q) = %q, want %q", tt.productType, got, tt.want)
		}
	}
}

// ---------- collection analysis ----------

func TestBuildCollectionAnalysis(t *testing.T) {
	listings := []ListingSales{
		{
			ProductID: "p1", Title: "Sunset Maxi Dress", WeeksOfSale: 1.5,
			MarkdownPct: 0.1, MarginPct: 0.5,
			ByWindow: []WindowRollup{
				{UnitsSold: 30, Revenue: 300, RateOfSale: 1.0},
				{},
				{RateOfSale: 1.5},
			},
		},
	}
	products := []searchspring.Product{
		{Position: 1, Name: "Sunset Maxi Dress"},
		{Position: 2, Name: "Unknown Item"},
	}

	rows := BuildCollectionAnalysis(products, listings, DefaultLowStockWeeks, discard())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	r := rows[0]
	if !r.Matched || r.UnitsSold30d != 30 || !almost(r.Revenue30d, 300) {
		t.Errorf("matched row = %+v", r)
	}
	if !almost(r.VelocityTrend, 1.5) {
		t.Errorf("velocity_trend = %.2f, want 1.5", r.VelocityTrend)
	}
	if !r.LowStock {
		t.Error("1.5 weeks of sale should flag low stock")
	}

	if rows[1].Matched {
		t.Error("unknown item should be unmatched")
	}
}

// ---------- summary stats ----------

func summaryFixture() []ListingSales {
	w := func(rev float64, units int) []WindowRollup {
		return []WindowRollup{{UnitsSold: units, Revenue: rev}, {}, {}}
	}
	return []ListingSales{
		{ProductID: "p1", ProductType: "Dresses", CategoryGroup: "CLOTHING", MarkdownPct: 0, ByWindow: w(600, 30)},
		{ProductID: "p2", ProductType: "Dresses", CategoryGroup: "CLOTHING", MarkdownPct: 0.15, ByWindow: w(200, 10)},
		{ProductID: "p3", ProductType: "Necklaces", CategoryGroup: "JEWELRY", MarkdownPct: 0.4, ByWindow: w(200, 20)},
		{ProductID: "p4", ProductType: "Stickers", CategoryGroup: "OTHER", MarkdownPct: 0.9, ByWindow: w(999, 99)},
	}
}

func TestBuildCategorySummary(t *testing.T) {
	groups := BuildCategorySummary(summaryFixture())
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2 (OTHER excluded)", len(groups))
	}
	if groups[0].CategoryGroup != "CLOTHING" || !almost(groups[0].Revenue30d, 800) {
		t.Errorf("groups[0] = %+v", groups[0])
	}
	if !almost(groups[0].PctRevenue, 80) || !almost(groups[1].PctRevenue, 20) {
		t.Errorf("pct split = %.1f / %.1f", groups[0].PctRevenue, groups[1].PctRevenue)
	}
}

func TestBuildTypeBreakdown(t *testing.T) {
	breakdown := BuildTypeBreakdown(summaryFixture())
	clothing := breakdown["CLOTHING"]
	if len(clothing) != 1 {
		t.Fatalf("got %d clothing types, want 1", len(clothing))
	}
	d := clothing[0]
	if d.ListingCount != 2 || !almost(d.Revenue30d, 800) {
		t.Errorf("dresses = %+v", d)
	}
	if !almost(d.AvgRevenuePerListing, 400) {
		t.Errorf("avg/listing = %.2f", d.AvgRevenuePerListing)
	}
	if !almost(d.PctOfTotal, 80) || !almost(d.PctOfGroup, 100) {
		t.Errorf("pct_of_total=%.1f pct_of_group=%.1f", d.PctOfTotal, d.PctOfGroup)
	}
}

func TestBuildMarkdownSummary(t *testing.T) {
	buckets := BuildMarkdownSummary(summaryFixture())
	if len(buckets) != 4 {
		t.Fatalf("got %d buckets, want 4", len(buckets))
	}
	want := []string{"0% (Full Price)", "1-20%", "21-50%", "50%+"}
	for i, b := range buckets {
		if b.Bucket != want[i] {
			t.Errorf("buckets[%d] = %q, want %q", i, b.Bucket, want[i])
		}
	}
	if buckets[0].ListingCount != 1 || !almost(buckets[0].Revenue30d, 600) {
		t.Errorf("full price bucket = %+v", buckets[0])
	}
}

func TestMarkdownBucketBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "0% (Full Price)"},
		{0.01, "1-20%"},
		{0.20, "1-20%"},
		{0.21, "21-50%"},
		{0.50, "21-50%"},
		{0.51, "50%+"},
	}
	for _, tt := range tests {
		if got := markdownBucket(tt.pct); got != tt.want {
			t.Errorf("markdownBucket(%.2f) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

// ---------- percentile ranks and colors ----------

func TestPercentileRanks(t *testing.T) {
	ranks := PercentileRanks([]float64{10, 20, 30, 40})
	want := []float64{0.25, 0.5, 0.75, 1.0}
	for i := range want {
		if !almost(ranks[i], want[i]) {
			t.Errorf("ranks[%d] = %.3f, want %.3f", i, ranks[i], want[i])
		}
	}
}

func TestPercentileRanksTiesShareAverage(t *testing.T) {
	ranks := PercentileRanks([]float64{10, 10, 20})
	if !almost(ranks[0], 0.5) || !almost(ranks[1], 0.5) {
		t.Errorf("tied ranks = %.3f, %.3f, want 0.5 each", ranks[0], ranks[1])
	}
	if !almost(ranks[2], 1.0) {
		t.Errorf("ranks[2] = %.3f, want 1.0", ranks[2])
	}
}

func TestPercentileRanksNaNAboveAll(t *testing.T) {
	ranks := PercentileRanks([]float64{math.NaN(), 10, 20})
	if !almost(ranks[0], 1.0) {
		t.Errorf("NaN rank = %.3f, want 1.0", ranks[0])
	}
	if !almost(ranks[1], 1.0/3) {
		t.Errorf("ranks[1] = %.3f", ranks[1])
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{10, 20, 30, 40, math.NaN()}
	if got := Quantile(values, 0.5); !almost(got, 25) {
		t.Errorf("median = %.2f, want 25", got)
	}
	if got := Quantile(values, 0); !almost(got, 10) {
		t.Errorf("q0 = %.2f, want 10", got)
	}
	if got := Quantile(values, 1); !almost(got, 40) {
		t.Errorf("q1 = %.2f, want 40", got)
	}
	if got := Quantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("empty quantile = %.2f, want NaN", got)
	}
}

func TestRankToColor(t *testing.T) {
	tests := []struct {
		name   string
		rank   float64
		invert bool
		want   string
	}{
		{"bottom solid red", 0, false, "rgba(255, 107, 107, 0.80)"},
		{"bottom threshold", 0.30, false, "rgba(255, 107, 107, 0.30)"},
		{"middle transparent", 0.5, false, "transparent"},
		{"top threshold", 0.70, false, "rgba(46, 204, 113, 0.30)"},
		{"top solid green", 1.0, false, "rgba(46, 204, 113, 0.80)"},
		{"inverted low is green", 0, true, "rgba(46, 204, 113, 0.80)"},
		{"nan transparent", math.NaN(), false, "transparent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RankToColor(tt.rank, tt.invert); got != tt.want {
				t.Errorf("RankToColor(%.2f, %v) = %q, want %q", tt.rank, tt.invert, got, tt.want)
			}
		})
	}
}

func TestRelativeRank(t *testing.T) {
	p30, p70 := 100.0, 200.0
	if got := RelativeRank(math.NaN(), p30, p70); !almost(got, 0.5) {
		t.Errorf("NaN rank = %.3f, want 0.5", got)
	}
	if got := RelativeRank(50, p30, p70); !almost(got, 0.075) {
		t.Errorf("below p30 = %.3f, want 0.075", got)
	}
	if got := RelativeRank(150, p30, p70); !almost(got, 0.5) {
		t.Errorf("midpoint = %.3f, want 0.5", got)
	}
	if got := RelativeRank(300, p30, p70); !almost(got, 1.0) {
		t.Errorf("far above p70 = %.3f, want 1.0", got)
	}
}

// ---------- collection prep and render ----------

func prepFixture(n int) []CollectionRow {
	rows := make([]CollectionRow, n)
	for i := range rows {
		rows[i] = CollectionRow{
			Position:   i + 1,
			Name:       "Item",
			Matched:    true,
			Revenue30d: float64(n - i), // revenue falls with position
		}
	}
	return rows
}

func TestPrepCollectionSplitsTopAndBuried(t *testing.T) {
	rows := prepFixture(60)
	// Make one buried item outsell everything.
	rows[57].Revenue30d = 1000

	section := PrepCollection("best-sellers", rows)
	if section.Name != "Best Sellers" {
		t.Errorf("Name = %q", section.Name)
	}
	if len(section.Top) != TopN {
		t.Errorf("top rows = %d, want %d", len(section.Top), TopN)
	}
	if len(section.Buried) != BuriedN {
		t.Errorf("buried rows = %d, want %d", len(section.Buried), BuriedN)
	}
	if section.Buried[0].Position != 58 {
		t.Errorf("best buried position = %d, want 58", section.Buried[0].Position)
	}
	if section.BuriedCount != 10 {
		t.Errorf("BuriedCount = %d, want 10", section.BuriedCount)
	}
	if section.Matched != TopN+BuriedN {
		t.Errorf("Matched = %d", section.Matched)
	}

	// The position-1 row has the top revenue inside the top cohort.
	if !strings.HasPrefix(section.Top[0].RevenueColor, "rgba(46, 204, 113") {
		t.Errorf("top revenue color = %q, want green", section.Top[0].RevenueColor)
	}
	if !strings.HasPrefix(section.Buried[0].RevenueColor, "rgba(46, 204, 113") {
		t.Errorf("buried leader color = %q, want green", section.Buried[0].RevenueColor)
	}
}

func TestPrepCollectionSmall(t *testing.T) {
	section := PrepCollection("new-arrivals", prepFixture(3))
	if len(section.Top) != 3 || len(section.Buried) != 0 || section.BuriedCount != 0 {
		t.Errorf("small collection = %+v", section)
	}
	if !almost(section.MatchRate, 100) {
		t.Errorf("match rate = %.1f", section.MatchRate)
	}
}

func TestRenderReport(t *testing.T) {
	listings := summaryFixture()
	sections := []CollectionSection{PrepCollection("best-sellers", prepFixture(10))}
	data := NewReportData(listings, sections, testNow)

	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		t.Fatalf("Render: %v", err)
	}

	html := buf.String()
	for _, want := range []string{"Best Sellers", "Merchandising Report", "0% (Full Price)", "2025-06-15"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}
