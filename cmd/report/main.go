// Command report builds the merchandising analysis: sales rolled up
// from the warehouse replica, collection positions from Searchspring,
// and a single HTML report with conditional formatting.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/matta-kelly/local-bi/internal/catalog"
	"github.com/matta-kelly/local-bi/internal/config"
	"github.com/matta-kelly/local-bi/internal/csvx"
	"github.com/matta-kelly/local-bi/internal/logging"
	"github.com/matta-kelly/local-bi/internal/report"
	"github.com/matta-kelly/local-bi/internal/searchspring"
	"github.com/matta-kelly/local-bi/internal/warehouse"
)

const defaultCollections = "best-sellers,new-arrivals,harem-pants,master-healer,holiday-gift-guide-2025"

func main() {
	out := flag.String("out", "", "report output path (default: OUTPUT_DIR/merchandising_report.html)")
	collections := flag.String("collections", defaultCollections, "comma-separated collection handles")
	lowStockWeeks := flag.Float64("low-stock-weeks", report.DefaultLowStockWeeks, "weeks of sale below which a listing is low stock")
	flag.Parse()

	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	now := time.Now()
	since := now.AddDate(0, 0, -report.Windows[0].Days)

	store, err := warehouse.Connect(ctx, cfg.Database, slog.Default())
	if err != nil {
		slog.Error("connecting to warehouse", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	lines, err := store.OrderLines(ctx, since)
	if err != nil {
		slog.Error("fetching order lines", "error", err)
		os.Exit(1)
	}
	variants, err := store.Variants(ctx)
	if err != nil {
		slog.Error("fetching variants", "error", err)
		os.Exit(1)
	}
	listings, err := store.Listings(ctx)
	if err != nil {
		slog.Error("fetching listings", "error", err)
		os.Exit(1)
	}
	stock, err := store.StockDaily(ctx, since)
	if err != nil {
		slog.Error("fetching stock snapshots", "error", err)
		os.Exit(1)
	}
	slog.Info("warehouse snapshot loaded",
		"order_lines", len(lines),
		"variants", len(variants),
		"listings", len(listings),
		"stock_days", len(stock),
	)

	ec, err := loadECPrices(cfg.Files.MasterPath)
	if err != nil {
		slog.Error("loading master SKU prices", "error", err)
		os.Exit(1)
	}

	sales := report.BuildVariantSales(lines, variants, ec, stock, now)
	rollup := report.BuildListingSales(sales, listings)
	slog.Info("sales rolled up", "variants", len(sales), "listings", len(rollup))

	ss, err := searchspring.NewClient(cfg.Searchspring, slog.Default())
	if err != nil {
		slog.Error("creating Searchspring client", "error", err)
		os.Exit(1)
	}

	var sections []report.CollectionSection
	for _, handle := range strings.Split(*collections, ",") {
		handle = strings.TrimSpace(handle)
		if handle == "" {
			continue
		}
		products, err := ss.CollectionProducts(ctx, handle)
		if err != nil {
			slog.Error("fetching collection", "handle", handle, "error", err)
			os.Exit(1)
		}
		rows := report.BuildCollectionAnalysis(products, rollup, *lowStockWeeks, slog.Default().With("collection", handle))
		sections = append(sections, report.PrepCollection(handle, rows))
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(cfg.Files.OutputDir, "merchandising_report.html")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		slog.Error("creating output dir", "error", err)
		os.Exit(1)
	}
	f, err := os.Create(outPath)
	if err != nil {
		slog.Error("creating report file", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := report.Render(f, report.NewReportData(rollup, sections, now)); err != nil {
		slog.Error("rendering report", "error", err)
		os.Exit(1)
	}
	slog.Info("report written", "path", outPath)
}

// loadECPrices maps SKU to its EC wholesale price from the master file.
func loadECPrices(path string) (map[string]float64, error) {
	table, err := csvx.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ec := make(map[string]float64)
	for _, r := range catalog.ParseMaster(table) {
		if r.SKU == "" || r.ECPrice == "" {
			continue
		}
		raw := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(r.ECPrice), "$"), ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			ec[r.SKU] = v
		}
	}
	return ec, nil
}
