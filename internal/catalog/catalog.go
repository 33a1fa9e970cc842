// Package catalog builds the master product catalog used to enrich
// order-sheet line items. The catalog joins the master SKU list with an
// ERP variant export to attach external IDs, filters out excluded
// products, and enforces uniqueness on (parent SKU, size abbreviation).
package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/matta-kelly/local-bi/internal/csvx"
)

// Column names in the master SKU file.
const (
	ParentCol     = "SKU (Parent)"
	SizeAbbrCol   = "Size Abbreviation"
	SKUCol        = "SKU"
	UPCCol        = "UPC"
	CollectionCol = "Collection"
	ECPriceCol    = "EC"
)

// Column names in the ERP variant export.
const (
	VariantIDCol  = "ID"
	VariantRefCol = "Internal Reference"
)

// StatusColumns are checked for the EXCLUSIVE marker during filtering.
var StatusColumns = []string{
	"Season",
	"FAHO24 Status",
	"SPSU25 Status",
	"FAHO25 Status",
	"SPSU26 Status",
}

// badSentinels are key values that mean "no value" in rep-maintained
// spreadsheets. Compared after uppercasing.
var badSentinels = map[string]bool{
	"":     true,
	"N/A":  true,
	"#N/A": true,
	"NA":   true,
	"NONE": true,
}

// Row is one master catalog entry: a single sellable variant.
type Row struct {
	Parent     string
	Size       string
	SKU        string
	UPC        string
	ExternalID string
	Collection string
	Statuses   []string // values of StatusColumns, in order
	ECPrice    string   // wholesale EC price, used by reporting
}

// Key identifies a catalog row: the pair the catalog must be unique on.
type Key struct {
	Parent string
	Size   string
}

// DataIntegrityError reports duplicate (parent, size) keys that survived
// filtering and deduplication. This is fatal: silently dropping or
// merging would corrupt the ERP import.
type DataIntegrityError struct {
	Duplicates []Key
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("master catalog not unique after alignment (%d duplicate keys)", len(e.Duplicates))
}

// Catalog is the aligned master catalog, unique on (parent, size).
type Catalog struct {
	Rows  []Row
	byKey map[Key]Row
}

// Lookup returns the catalog row for (parent, size).
func (c *Catalog) Lookup(parent, size string) (Row, bool) {
	r, ok := c.byKey[Key{Parent: parent, Size: size}]
	return r, ok
}

// Sizes returns the set of size abbreviations present in the catalog.
func (c *Catalog) Sizes() map[string]bool {
	sizes := make(map[string]bool)
	for _, r := range c.Rows {
		sizes[r.Size] = true
	}
	return sizes
}

// ParseMaster converts a master SKU table into rows with normalized
// (trimmed, uppercased) key fields.
func ParseMaster(t *csvx.Table) []Row {
	rows := make([]Row, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := Row{
			Parent:     strings.ToUpper(t.Cell(i, ParentCol)),
			Size:       strings.ToUpper(t.Cell(i, SizeAbbrCol)),
			SKU:        strings.ToUpper(t.Cell(i, SKUCol)),
			UPC:        t.Cell(i, UPCCol),
			Collection: strings.ToUpper(t.Cell(i, CollectionCol)),
			ECPrice:    t.Cell(i, ECPriceCol),
		}
		for _, col := range StatusColumns {
			r.Statuses = append(r.Statuses, strings.ToUpper(t.Cell(i, col)))
		}
		rows = append(rows, r)
	}
	return rows
}

// AttachExternalIDs joins master rows against the ERP variant export on
// SKU = internal reference (uppercased, trimmed). Duplicate references in
// the variant file are resolved by preferring rows that carry an ID.
// Unmatched SKUs keep an empty external ID; match statistics are logged.
func AttachExternalIDs(rows []Row, variants *csvx.Table, logger *slog.Logger) []Row {
	type variantRow struct {
		ref   string
		id    string
		hasID bool
	}

	vrows := make([]variantRow, 0, variants.Len())
	for i := 0; i < variants.Len(); i++ {
		vrows = append(vrows, variantRow{
			ref:   strings.ToUpper(variants.Cell(i, VariantRefCol)),
			id:    variants.Cell(i, VariantIDCol),
			hasID: variants.Cell(i, VariantIDCol) != "",
		})
	}

	// ID-bearing rows first; stable so file order breaks remaining ties.
	sort.SliceStable(vrows, func(i, j int) bool {
		return vrows[i].hasID && !vrows[j].hasID
	})

	lookup := make(map[string]string, len(vrows))
	for _, v := range vrows {
		if _, seen := lookup[v.ref]; !seen {
			lookup[v.ref] = v.id
		}
	}

	out := make([]Row, len(rows))
	matched := make(map[string]bool)
	unmatched := make(map[string]bool)
	for i, r := range rows {
		r.ExternalID = lookup[r.SKU]
		out[i] = r
		if _, ok := lookup[r.SKU]; ok {
			matched[r.SKU] = true
		} else if r.SKU != "" {
			unmatched[r.SKU] = true
		}
	}

	total := len(matched) + len(unmatched)
	pct := 0.0
	if total > 0 {
		pct = float64(len(matched)) / float64(total) * 100
	}
	logger.Info("external ID join complete",
		"matched", len(matched),
		"total", total,
		"match_pct", fmt.Sprintf("%.1f", pct),
		"unmatched", len(unmatched),
	)
	if len(unmatched) > 0 && len(unmatched) <= 20 {
		skus := make([]string, 0, len(unmatched))
		for sku := range unmatched {
			skus = append(skus, sku)
		}
		sort.Strings(skus)
		for _, sku := range skus {
			logger.Debug("no external ID for SKU", "sku", sku)
		}
	} else if len(unmatched) > 0 {
		logger.Warn("SKUs without external ID will be empty in output; refresh the variant export to fix",
			"count", len(unmatched))
	}

	return out
}

// Filter drops rows excluded from wholesale ordering:
//   - any status column equal to EXCLUSIVE
//   - collection HAREM PANTS
//   - SKU containing HIC
//   - empty or sentinel (parent, size) keys
func Filter(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
rowLoop:
	for _, r := range rows {
		for _, s := range r.Statuses {
			if s == "EXCLUSIVE" {
				continue rowLoop
			}
		}
		if r.Collection == "HAREM PANTS" {
			continue
		}
		if strings.Contains(r.SKU, "HIC") {
			continue
		}
		if badSentinels[r.Parent] || badSentinels[r.Size] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Dedupe keeps one row per (parent, size): the first after a stable sort
// preferring rows with an external ID, then rows with a UPC.
func Dedupe(rows []Row) []Row {
	ranked := make([]Row, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		return prefRank(ranked[i]) > prefRank(ranked[j])
	})

	seen := make(map[Key]bool, len(ranked))
	out := make([]Row, 0, len(ranked))
	for _, r := range ranked {
		k := Key{Parent: r.Parent, Size: r.Size}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// prefRank orders duplicate rows: external-ID-present beats UPC-present
// beats neither.
func prefRank(r Row) int {
	rank := 0
	if r.ExternalID != "" {
		rank += 2
	}
	if r.UPC != "" {
		rank++
	}
	return rank
}

// DuplicateKeys returns the keys that occur more than once, sorted.
// The dupecheck diagnostic uses this to dump offending groups.
func DuplicateKeys(rows []Row) []Key {
	counts := make(map[Key]int)
	for _, r := range rows {
		counts[Key{Parent: r.Parent, Size: r.Size}]++
	}
	var dups []Key
	for k, n := range counts {
		if n > 1 {
			dups = append(dups, k)
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].Parent != dups[j].Parent {
			return dups[i].Parent < dups[j].Parent
		}
		return dups[i].Size < dups[j].Size
	})
	return dups
}

// DuplicateRows returns every row whose (parent, size) key occurs more
// than once, grouped by key in stable input order. The dupecheck
// diagnostic dumps these for inspection.
func DuplicateRows(rows []Row) []Row {
	counts := make(map[Key]int)
	for _, r := range rows {
		counts[Key{Parent: r.Parent, Size: r.Size}]++
	}
	var dups []Row
	for _, r := range rows {
		if counts[Key{Parent: r.Parent, Size: r.Size}] > 1 {
			dups = append(dups, r)
		}
	}
	sort.SliceStable(dups, func(i, j int) bool {
		if dups[i].Parent != dups[j].Parent {
			return dups[i].Parent < dups[j].Parent
		}
		return dups[i].Size < dups[j].Size
	})
	return dups
}

// Align filters and deduplicates master rows, then verifies uniqueness
// on (parent, size). A residual duplicate is a DataIntegrityError.
func Align(rows []Row) (*Catalog, error) {
	filtered := Filter(rows)
	deduped := Dedupe(filtered)

	if dups := DuplicateKeys(deduped); len(dups) > 0 {
		return nil, &DataIntegrityError{Duplicates: dups}
	}

	byKey := make(map[Key]Row, len(deduped))
	for _, r := range deduped {
		byKey[Key{Parent: r.Parent, Size: r.Size}] = r
	}
	return &Catalog{Rows: deduped, byKey: byKey}, nil
}

// Build loads the master SKU and variant export files and produces the
// aligned catalog.
func Build(masterPath, variantPath string, logger *slog.Logger) (*Catalog, error) {
	masterTable, err := csvx.ReadFile(masterPath)
	if err != nil {
		return nil, fmt.Errorf("loading master SKU file: %w", err)
	}
	variantTable, err := csvx.ReadFile(variantPath)
	if err != nil {
		return nil, fmt.Errorf("loading variant export: %w", err)
	}

	logger.Info("building master catalog with external IDs")
	rows := AttachExternalIDs(ParseMaster(masterTable), variantTable, logger)

	cat, err := Align(rows)
	if err != nil {
		return nil, err
	}
	logger.Info("master catalog aligned", "rows", len(cat.Rows))
	return cat, nil
}
