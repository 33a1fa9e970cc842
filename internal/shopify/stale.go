package shopify

import (
	"context"
	"sort"
	"time"
)

// NewTag is the tag and badge value this maintenance pass retires.
const NewTag = "New"

// ListingInfo is the slice of a product listing the stale check needs.
type ListingInfo struct {
	ProductID   string
	Handle      string
	Title       string
	Status      string
	Badge       string
	PublishedAt time.Time // zero when never published
}

// StaleListing is a listing whose "New" marker has outlived the
// threshold.
type StaleListing struct {
	ListingInfo
	DaysSincePublished int
}

// FindStaleNew selects ACTIVE listings published more than
// thresholdDays ago that still carry the "New" tag or badge. The two
// lists are independent: a product with both appears on both. Each is
// sorted oldest first (days since published, descending).
func FindStaleNew(listings []ListingInfo, taggedNew map[string]bool, thresholdDays int, now time.Time) (tags, badges []StaleListing) {
	cutoff := now.AddDate(0, 0, -thresholdDays)

	for _, l := range listings {
		if l.Status != "ACTIVE" || l.PublishedAt.IsZero() || !l.PublishedAt.Before(cutoff) {
			continue
		}
		stale := StaleListing{
			ListingInfo:        l,
			DaysSincePublished: int(now.Sub(l.PublishedAt).Hours() / 24),
		}
		if taggedNew[l.ProductID] {
			tags = append(tags, stale)
		}
		if l.Badge == NewTag {
			badges = append(badges, stale)
		}
	}

	byAge := func(s []StaleListing) func(i, j int) bool {
		return func(i, j int) bool { return s[i].DaysSincePublished > s[j].DaysSincePublished }
	}
	sort.SliceStable(tags, byAge(tags))
	sort.SliceStable(badges, byAge(badges))
	return tags, badges
}

// RemoveStaleNew removes the "New" tag from the first list and clears
// the badge metafield from the second. Per-product failures are
// collected in the results, not returned as an error.
func (c *Client) RemoveStaleNew(ctx context.Context, tags, badges []StaleListing, dryRun bool) (tagResult, badgeResult Result) {
	c.logger.Info("stale new removal",
		"stale_tags", len(tags), "stale_badges", len(badges), "dry_run", dryRun)

	if len(tags) > 0 {
		tagResult = c.RemoveTags(ctx, productIDs(tags), []string{NewTag}, dryRun)
	}
	if len(badges) > 0 {
		badgeResult = c.ClearBadge(ctx, productIDs(badges), dryRun)
	}
	return tagResult, badgeResult
}

func productIDs(listings []StaleListing) []string {
	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = l.ProductID
	}
	return ids
}
