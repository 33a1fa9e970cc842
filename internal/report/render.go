package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TopN is how many leading positions each collection table shows with
// full percentile formatting.
const TopN = 50

// BuriedN is how many high-revenue items past position TopN each
// collection surfaces.
const BuriedN = 5

//go:embed report.html.tmpl
var reportTemplate string

// RenderRow is one collection row with its cell colors resolved.
type RenderRow struct {
	CollectionRow
	RevenueColor  string
	ROSColor      string
	VelocityColor string
	MarkdownColor string
	MarginColor   string
}

// CollectionSection is one collection prepared for the template.
type CollectionSection struct {
	Name        string
	Matched     int
	Total       int
	TotalShown  int
	MatchRate   float64
	Top         []RenderRow
	Buried      []RenderRow
	BuriedCount int
}

// TypeGroup is one category group's type breakdown, in group order.
type TypeGroup struct {
	Group string
	Types []TypeSummary
}

// ReportData is everything the HTML template renders.
type ReportData struct {
	ReportDate      string
	ReportDateTime  string
	CategorySummary []GroupSummary
	TypeBreakdown   []TypeGroup
	MarkdownSummary []MarkdownSummary
	Collections     []CollectionSection
}

var titleCaser = cases.Title(language.English)

// DisplayName turns a collection handle into its report heading.
func DisplayName(handle string) string {
	return titleCaser.String(strings.ReplaceAll(handle, "-", " "))
}

type metric struct {
	value  func(CollectionRow) float64
	color  func(*RenderRow) *string
	invert bool
}

// metrics are the conditionally formatted columns. Markdown inverts:
// deeper markdown is worse.
var metrics = []metric{
	{value: func(r CollectionRow) float64 { return r.Revenue30d }, color: func(r *RenderRow) *string { return &r.RevenueColor }},
	{value: func(r CollectionRow) float64 { return r.RateOfSale30d }, color: func(r *RenderRow) *string { return &r.ROSColor }},
	{value: func(r CollectionRow) float64 { return r.VelocityTrend }, color: func(r *RenderRow) *string { return &r.VelocityColor }},
	{value: func(r CollectionRow) float64 { return r.MarkdownPct }, color: func(r *RenderRow) *string { return &r.MarkdownColor }, invert: true},
	{value: func(r CollectionRow) float64 { return r.MarginPct }, color: func(r *RenderRow) *string { return &r.MarginColor }},
}

// metricValue reads a metric, as NaN for unmatched rows so they rank
// apart from genuine zeros.
func metricValue(m metric, r CollectionRow) float64 {
	if !r.Matched {
		return math.NaN()
	}
	return m.value(r)
}

// PrepCollection splits a collection into its top positions and the
// best buried items past them. Top rows are colored by percentile rank
// within the top cohort; buried rows are colored relative to the top
// cohort's 30th and 70th percentile thresholds.
func PrepCollection(handle string, rows []CollectionRow) CollectionSection {
	sorted := make([]CollectionRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	top := sorted
	var rest []CollectionRow
	if len(sorted) > TopN {
		top = sorted[:TopN]
		rest = sorted[TopN:]
	}

	var buried []CollectionRow
	if len(rest) > 0 {
		byRevenue := make([]CollectionRow, len(rest))
		copy(byRevenue, rest)
		sort.SliceStable(byRevenue, func(i, j int) bool { return byRevenue[i].Revenue30d > byRevenue[j].Revenue30d })
		if len(byRevenue) > BuriedN {
			byRevenue = byRevenue[:BuriedN]
		}
		buried = byRevenue
	}

	topRows := make([]RenderRow, len(top))
	for i, r := range top {
		topRows[i] = RenderRow{CollectionRow: r}
	}
	for _, m := range metrics {
		values := make([]float64, len(top))
		for i, r := range top {
			values[i] = metricValue(m, r)
		}
		ranks := PercentileRanks(values)
		for i := range topRows {
			*m.color(&topRows[i]) = RankToColor(ranks[i], m.invert)
		}
	}

	buriedRows := make([]RenderRow, len(buried))
	for i, r := range buried {
		buriedRows[i] = RenderRow{CollectionRow: r}
	}
	for _, m := range metrics {
		topValues := make([]float64, 0, len(top))
		for _, r := range top {
			if v := metricValue(m, r); !math.IsNaN(v) {
				topValues = append(topValues, v)
			}
		}
		for i, r := range buried {
			if len(topValues) == 0 {
				*m.color(&buriedRows[i]) = "transparent"
				continue
			}
			p30 := Quantile(topValues, 0.30)
			p70 := Quantile(topValues, 0.70)
			rank := RelativeRank(metricValue(m, r), p30, p70)
			*m.color(&buriedRows[i]) = RankToColor(rank, m.invert)
		}
	}

	matched := 0
	for _, r := range top {
		if r.Matched {
			matched++
		}
	}
	for _, r := range buried {
		if r.Matched {
			matched++
		}
	}

	rate := 0.0
	if len(rows) > 0 {
		rate = float64(matched) / float64(len(rows)) * 100
	}
	return CollectionSection{
		Name:        DisplayName(handle),
		Matched:     matched,
		Total:       len(rows),
		TotalShown:  len(topRows) + len(buriedRows),
		MatchRate:   rate,
		Top:         topRows,
		Buried:      buriedRows,
		BuriedCount: len(rest),
	}
}

// NewReportData assembles the full template payload.
func NewReportData(
	listings []ListingSales,
	collections []CollectionSection,
	now time.Time,
) ReportData {
	breakdown := BuildTypeBreakdown(listings)
	groups := make([]TypeGroup, 0, len(CategoryGroups))
	for _, g := range CategoryGroups {
		if types, ok := breakdown[g]; ok {
			groups = append(groups, TypeGroup{Group: g, Types: types})
		}
	}
	return ReportData{
		ReportDate:      now.Format("2006-01-02"),
		ReportDateTime:  now.Format("2006-01-02 15:04"),
		CategorySummary: BuildCategorySummary(listings),
		TypeBreakdown:   groups,
		MarkdownSummary: BuildMarkdownSummary(listings),
		Collections:     collections,
	}
}

var tmplFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"pct0":  func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"num":   func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"day": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02")
	},
	"css": func(s string) template.CSS { return template.CSS(s) },
}

var reportTmpl = template.Must(template.New("report").Funcs(tmplFuncs).Parse(reportTemplate))

// Render writes the HTML report.
func Render(w io.Writer, data ReportData) error {
	if err := reportTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}
