// Command stalecheck finds ACTIVE listings still carrying the "New"
// tag or badge past the staleness threshold and removes them. Runs dry
// by default; pass -apply to execute the mutations.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/matta-kelly/local-bi/internal/config"
	"github.com/matta-kelly/local-bi/internal/logging"
	"github.com/matta-kelly/local-bi/internal/shopify"
	"github.com/matta-kelly/local-bi/internal/warehouse"
)

func main() {
	apply := flag.Bool("apply", false, "execute tag and badge mutations (default: dry run)")
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

	store, err := warehouse.Connect(ctx, cfg.Database, slog.Default())
	if err != nil {
		slog.Error("connecting to warehouse", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	listings, err := store.Listings(ctx)
	if err != nil {
		slog.Error("fetching listings", "error", err)
		os.Exit(1)
	}
	listingTags, err := store.ListingTags(ctx)
	if err != nil {
		slog.Error("fetching listing tags", "error", err)
		os.Exit(1)
	}

	taggedNew := make(map[string]bool)
	for _, lt := range listingTags {
		if lt.Tag == shopify.NewTag {
			taggedNew[lt.ProductID] = true
		}
	}

	infos := make([]shopify.ListingInfo, 0, len(listings))
	for _, l := range listings {
		infos = append(infos, shopify.ListingInfo{
			ProductID:   l.ProductID,
			Handle:      l.Handle,
			Title:       l.Title,
			Status:      l.Status,
			Badge:       l.Badge,
			PublishedAt: l.PublishedAt,
		})
	}

	tags, badges := shopify.FindStaleNew(infos, taggedNew, cfg.Batch.StaleThresholdDays, time.Now())
	slog.Info("stale check complete",
		"threshold_days", cfg.Batch.StaleThresholdDays,
		"stale_tags", len(tags),
		"stale_badges", len(badges),
	)
	for _, s := range tags {
		slog.Info("stale New tag", "product", s.Handle, "days", s.DaysSincePublished)
	}
	for _, s := range badges {
		slog.Info("stale New badge", "product", s.Handle, "days", s.DaysSincePublished)
	}

	if len(tags) == 0 && len(badges) == 0 {
		return
	}

	client, err := shopify.NewClient(cfg.Shopify, slog.Default())
	if err != nil {
		slog.Error("creating Shopify client", "error", err)
		os.Exit(1)
	}

	tagResult, badgeResult := client.RemoveStaleNew(ctx, tags, badges, !*apply)
	if len(tagResult.Failed) > 0 || len(badgeResult.Failed) > 0 {
		slog.Error("some removals failed",
			"tag_failures", len(tagResult.Failed),
			"badge_failures", len(badgeResult.Failed),
		)
		os.Exit(1)
	}
}
