// Command extract snapshots the warehouse replica and Klaviyo segment
// membership to CSV files for offline analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/matta-kelly/local-bi/internal/config"
	"github.com/matta-kelly/local-bi/internal/csvx"
	"github.com/matta-kelly/local-bi/internal/klaviyo"
	"github.com/matta-kelly/local-bi/internal/logging"
	"github.com/matta-kelly/local-bi/internal/warehouse"
)

func main() {
	sinceFlag := flag.String("since", "", "only extract rows created/updated on or after this date (YYYY-MM-DD)")
	outDir := flag.String("out", "", "extract output directory (default: OUTPUT_DIR/extracts)")
	shopifyOnly := flag.Bool("shopify-only", false, "skip the Klaviyo extract")
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

	var since time.Time
	if *sinceFlag != "" {
		since, err = time.Parse("2006-01-02", *sinceFlag)
		if err != nil {
			slog.Error("invalid -since date", "value", *sinceFlag, "error", err)
			os.Exit(1)
		}
	}

	dir := *outDir
	if dir == "" {
		dir = filepath.Join(cfg.Files.OutputDir, "extracts")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("creating output dir", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := extractWarehouse(ctx, cfg, dir, since); err != nil {
		slog.Error("warehouse extract failed", "error", err)
		os.Exit(1)
	}

	if !*shopifyOnly {
		if err := extractKlaviyo(ctx, cfg, dir, since); err != nil {
			slog.Error("Klaviyo extract failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("all extracts complete", "dir", dir)
}

func extractWarehouse(ctx context.Context, cfg *config.Config, dir string, since time.Time) error {
	store, err := warehouse.Connect(ctx, cfg.Database, slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	customers, err := store.Customers(ctx, since)
	if err != nil {
		return fmt.Errorf("fetching customers: %w", err)
	}
	records := [][]string{{"customer_id", "email", "created_at", "updated_at"}}
	for _, c := range customers {
		records = append(records, []string{c.CustomerID, c.Email, ts(c.CreatedAt), ts(c.UpdatedAt)})
	}
	if err := writeExtract(dir, "shopify_customers.csv", records); err != nil {
		return err
	}

	orders, err := store.Orders(ctx, since)
	if err != nil {
		return fmt.Errorf("fetching orders: %w", err)
	}
	records = [][]string{{"order_id", "customer_id", "created_at", "total_price"}}
	for _, o := range orders {
		records = append(records, []string{o.OrderID, o.CustomerID, ts(o.CreatedAt), money(o.TotalPrice)})
	}
	if err := writeExtract(dir, "shopify_orders.csv", records); err != nil {
		return err
	}

	lines, err := store.OrderLines(ctx, since)
	if err != nil {
		return fmt.Errorf("fetching order lines: %w", err)
	}
	records = [][]string{{"order_id", "variant_id", "quantity", "variant_price", "created_at"}}
	for _, l := range lines {
		records = append(records, []string{
			l.OrderID, l.VariantID, strconv.Itoa(l.Quantity), money(l.VariantPrice), ts(l.CreatedAt),
		})
	}
	if err := writeExtract(dir, "shopify_order_lines.csv", records); err != nil {
		return err
	}

	variants, err := store.Variants(ctx)
	if err != nil {
		return fmt.Errorf("fetching variants: %w", err)
	}
	records = [][]string{{"variant_id", "product_id", "sku", "price", "compare_at_price", "current_qty"}}
	for _, v := range variants {
		records = append(records, []string{
			v.VariantID, v.ProductID, v.SKU, money(v.Price), money(v.CompareAtPrice), strconv.Itoa(v.CurrentQty),
		})
	}
	if err := writeExtract(dir, "shopify_variants.csv", records); err != nil {
		return err
	}

	listings, err := store.Listings(ctx)
	if err != nil {
		return fmt.Errorf("fetching listings: %w", err)
	}
	records = [][]string{{"product_id", "handle", "title", "product_type", "status", "badge", "published_at"}}
	for _, l := range listings {
		records = append(records, []string{
			l.ProductID, l.Handle, l.Title, l.ProductType, l.Status, l.Badge, ts(l.PublishedAt),
		})
	}
	return writeExtract(dir, "shopify_listings.csv", records)
}

func extractKlaviyo(ctx context.Context, cfg *config.Config, dir string, since time.Time) error {
	client, err := klaviyo.NewClient(cfg.Klaviyo, slog.Default())
	if err != nil {
		return err
	}

	segments, err := client.Segments(ctx, klaviyo.SegmentFilter{UpdatedAfter: since})
	if err != nil {
		return err
	}
	records := [][]string{{"segment_id", "segment_name"}}
	segmentIDs := make([]string, 0, len(segments))
	for _, s := range segments {
		records = append(records, []string{s.ID, s.Name})
		segmentIDs = append(segmentIDs, s.ID)
	}
	if err := writeExtract(dir, "klaviyo_segments.csv", records); err != nil {
		return err
	}

	profiles, membership, err := client.SegmentProfiles(ctx, segmentIDs, since)
	if err != nil {
		return err
	}
	records = [][]string{{"profile_id", "email"}}
	for _, p := range profiles {
		records = append(records, []string{p.ProfileID, p.Email})
	}
	if err := writeExtract(dir, "klaviyo_profiles.csv", records); err != nil {
		return err
	}

	records = [][]string{{"profile_id", "segment_id"}}
	for _, m := range membership {
		records = append(records, []string{m.ProfileID, m.SegmentID})
	}
	return writeExtract(dir, "klaviyo_segment_membership.csv", records)
}

func writeExtract(dir, name string, records [][]string) error {
	path := filepath.Join(dir, name)
	if err := csvx.Write(path, records); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	slog.Info("extract written", "file", name, "rows", len(records)-1)
	return nil
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
