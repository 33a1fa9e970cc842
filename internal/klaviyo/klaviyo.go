// Package klaviyo fetches segments and segment membership from the
// Klaviyo API. Responses are JSON:API pages chained by links.next
// cursors.
package klaviyo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matta-kelly/local-bi/internal/config"
)

const timeLayout = "2006-01-02T15:04:05Z"

// Client queries the Klaviyo API for one account.
type Client struct {
	apiKey   string
	revision string
	httpc    *http.Client
	logger   *slog.Logger

	// baseURL overrides the API host in tests.
	baseURL string
}

// NewClient builds a client from config. The API key is required.
func NewClient(cfg config.KlaviyoConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("klaviyo: KLAVIYO_API_KEY must be set")
	}
	return &Client{
		apiKey:   cfg.APIKey,
		revision: cfg.Revision,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		baseURL:  "https://a.klaviyo.com",
	}, nil
}

// Segment is one Klaviyo segment.
type Segment struct {
	ID   string
	Name string
}

// Profile is one Klaviyo profile, deduplicated across segments.
type Profile struct {
	ProfileID string
	Email     string
}

// Membership is one (profile, segment) pair.
type Membership struct {
	ProfileID string
	SegmentID string
}

// SegmentFilter narrows a segment listing by date. Zero fields are
// omitted.
type SegmentFilter struct {
	CreatedAfter  time.Time
	CreatedBefore time.Time
	UpdatedAfter  time.Time
}

func (f SegmentFilter) encode() string {
	var parts []string
	if !f.CreatedAfter.IsZero() {
		parts = append(parts, fmt.Sprintf("greater-than(created,%s)", f.CreatedAfter.UTC().Format(timeLayout)))
	}
	if !f.CreatedBefore.IsZero() {
		parts = append(parts, fmt.Sprintf("less-than(created,%s)", f.CreatedBefore.UTC().Format(timeLayout)))
	}
	if !f.UpdatedAfter.IsZero() {
		parts = append(parts, fmt.Sprintf("greater-than(updated,%s)", f.UpdatedAfter.UTC().Format(timeLayout)))
	}
	return strings.Join(parts, ",")
}

type apiPage struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"attributes"`
	} `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// Segments lists segments matching the filter, following cursor pages
// to the end.
func (c *Client) Segments(ctx context.Context, filter SegmentFilter) ([]Segment, error) {
	u := c.baseURL + "/api/segments/"
	params := url.Values{}
	if f := filter.encode(); f != "" {
		params.Set("filter", f)
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var segments []Segment
	for u != "" {
		page, err := c.getPage(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("klaviyo: listing segments: %w", err)
		}
		for _, d := range page.Data {
			segments = append(segments, Segment{ID: d.ID, Name: d.Attributes.Name})
		}
		u = page.Links.Next
	}

	c.logger.Info("fetched segments", "count", len(segments))
	return segments, nil
}

// SegmentProfiles fetches membership for the given segments. Profiles
// appearing in several segments are returned once, in first-seen order;
// membership carries every (profile, segment) pair.
func (c *Client) SegmentProfiles(ctx context.Context, segmentIDs []string, joinedAfter time.Time) ([]Profile, []Membership, error) {
	var (
		profiles   []Profile
		membership []Membership
		seen       = make(map[string]bool)
	)

	for _, segID := range segmentIDs {
		u := c.baseURL + "/api/segments/" + segID + "/profiles/"
		if !joinedAfter.IsZero() {
			params := url.Values{}
			params.Set("filter", fmt.Sprintf("greater-than(joined_group_at,%s)", joinedAfter.UTC().Format(timeLayout)))
			u += "?" + params.Encode()
		}

		for u != "" {
			page, err := c.getPage(ctx, u)
			if err != nil {
				return nil, nil, fmt.Errorf("klaviyo: fetching profiles for segment %s: %w", segID, err)
			}
			for _, d := range page.Data {
				if !seen[d.ID] {
					seen[d.ID] = true
					profiles = append(profiles, Profile{ProfileID: d.ID, Email: d.Attributes.Email})
				}
				membership = append(membership, Membership{ProfileID: d.ID, SegmentID: segID})
			}
			u = page.Links.Next
		}
	}

	c.logger.Info("fetched segment profiles",
		"segments", len(segmentIDs), "profiles", len(profiles), "membership", len(membership))
	return profiles, membership, nil
}

func (c *Client) getPage(ctx context.Context, u string) (*apiPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.revision != "" {
		req.Header.Set("revision", c.revision)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var page apiPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decoding page: %w", err)
	}
	return &page, nil
}
