// Command dupecheck validates the master SKU file: it runs the same
// filtering and deduplication as the order-sheet transform and, when
// duplicate (parent, size) keys remain, dumps every offending source
// row to master_dupes.csv for cleanup.
package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/matta-kelly/local-bi/internal/catalog"
	"github.com/matta-kelly/local-bi/internal/config"
	"github.com/matta-kelly/local-bi/internal/csvx"
	"github.com/matta-kelly/local-bi/internal/logging"
)

func main() {
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	masterTable, err := csvx.ReadFile(cfg.Files.MasterPath)
	if err != nil {
		slog.Error("reading master SKU file", "error", err)
		os.Exit(1)
	}
	variantTable, err := csvx.ReadFile(cfg.Files.VariantPath)
	if err != nil {
		slog.Error("reading variant export", "error", err)
		os.Exit(1)
	}

	rows := catalog.AttachExternalIDs(catalog.ParseMaster(masterTable), variantTable, slog.Default())
	slog.Info("raw master rows", "count", len(rows))

	cat, err := catalog.Align(rows)
	if err == nil {
		slog.Info("no duplicates found, processing is valid", "rows", len(cat.Rows))
		return
	}

	var integrity *catalog.DataIntegrityError
	if !errors.As(err, &integrity) {
		slog.Error("alignment failed", "error", err)
		os.Exit(1)
	}

	// Dump the duplicated keys as they appear in the raw master, before
	// filtering, so the offending source rows are all visible.
	dups := catalog.DuplicateRows(rows)
	records := [][]string{{
		catalog.ParentCol, catalog.SizeAbbrCol, catalog.SKUCol, catalog.UPCCol, "EXT_ID",
	}}
	for _, r := range dups {
		records = append(records, []string{r.Parent, r.Size, r.SKU, r.UPC, r.ExternalID})
	}

	if err := os.MkdirAll(cfg.Files.OutputDir, 0o755); err != nil {
		slog.Error("creating output dir", "error", err)
		os.Exit(1)
	}
	outPath := filepath.Join(cfg.Files.OutputDir, "master_dupes.csv")
	if err := csvx.Write(outPath, records); err != nil {
		slog.Error("writing duplicate dump", "error", err)
		os.Exit(1)
	}

	slog.Error("master catalog not unique",
		"duplicate_keys", len(integrity.Duplicates),
		"rows_dumped", len(dups),
		"path", outPath,
	)
	os.Exit(1)
}
