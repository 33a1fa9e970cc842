// Package searchspring fetches collection product listings from the
// Searchspring search API. Collection position drives the merchandising
// report: what a shopper sees first matters more than what exists.
package searchspring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/matta-kelly/local-bi/internal/config"
)

// Product is one entry of a collection page, in display order.
type Product struct {
	Position       int
	Name           string
	Price          float64
	CompareAtPrice float64
	Available      bool
}

// Client queries one Searchspring site.
type Client struct {
	siteID        string
	bgFilterField string
	perPage       int
	httpc         *http.Client
	logger        *slog.Logger

	// baseURL overrides the site-derived URL in tests.
	baseURL string
}

// NewClient builds a client from config. The site ID is required.
func NewClient(cfg config.SearchspringConfig, logger *slog.Logger) (*Client, error) {
	if cfg.SiteID == "" {
		return nil, errors.New("searchspring: SEARCHSPRING_SITE_ID must be set")
	}
	perPage := cfg.ResultsPerPage
	if perPage <= 0 {
		perPage = 100
	}
	return &Client{
		siteID:        cfg.SiteID,
		bgFilterField: cfg.BgFilterField,
		perPage:       perPage,
		httpc:         &http.Client{},
		logger:        logger,
	}, nil
}

type searchResponse struct {
	Results []struct {
		Name        string    `json:"name"`
		Price       flexFloat `json:"price"`
		MSRP        flexFloat `json:"msrp"`
		SSAvailable string    `json:"ss_available"`
	} `json:"results"`
	Pagination struct {
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

// flexFloat decodes a JSON number or a quoted number. The feed is not
// consistent about which it sends for prices.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// CollectionProducts fetches every product in a collection, walking
// pages until totalPages. Position numbering starts at 1 and runs
// across pages.
func (c *Client) CollectionProducts(ctx context.Context, collectionHandle string) ([]Product, error) {
	u := c.baseURL
	if u == "" {
		u = fmt.Sprintf("https://%s.a.searchspring.io/api/search/search.json", c.siteID)
	}

	var products []Product
	for page := 1; ; page++ {
		params := url.Values{
			"siteId":         {c.siteID},
			"resultsPerPage": {strconv.Itoa(c.perPage)},
			"page":           {strconv.Itoa(page)},
			"resultsFormat":  {"native"},
		}
		params.Set("bgfilter."+c.bgFilterField, collectionHandle)

		resp, err := c.get(ctx, u+"?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("searchspring: fetching %s page %d: %w", collectionHandle, page, err)
		}

		for _, r := range resp.Results {
			products = append(products, Product{
				Position:       len(products) + 1,
				Name:           r.Name,
				Price:          float64(r.Price),
				CompareAtPrice: float64(r.MSRP),
				Available:      r.SSAvailable == "1",
			})
		}

		totalPages := resp.Pagination.TotalPages
		if totalPages < 1 {
			totalPages = 1
		}
		c.logger.Debug("fetched collection page",
			"collection", collectionHandle, "page", page,
			"total_pages", totalPages, "products", len(resp.Results))

		if page >= totalPages {
			break
		}
	}

	c.logger.Info("fetched collection", "collection", collectionHandle, "products", len(products))
	return products, nil
}

func (c *Client) get(ctx context.Context, u string) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
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
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
