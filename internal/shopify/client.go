// Package shopify is a thin client for the Shopify Admin API: paginated
// REST fetches, GraphQL mutations with dry-run support, and the tag and
// badge maintenance operations built on them.
package shopify

import (
	"bytes"
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
	"time"

	"github.com/matta-kelly/local-bi/internal/config"
)

const (
	maxAttempts = 3
	retryWait   = 2 * time.Second
)

// Client talks to the Shopify Admin API for one shop.
type Client struct {
	shopURL    string
	token      string
	apiVersion string
	httpc      *http.Client
	logger     *slog.Logger

	// baseURL overrides the shop-derived URL in tests.
	baseURL string

	// sleep is replaced in tests to avoid real rate-limit delays.
	sleep func(time.Duration)
}

// GraphQLError is a non-empty top-level errors array in a GraphQL
// response.
type GraphQLError struct {
	Errors json.RawMessage
}

func (e *GraphQLError) Error() string {
	return "graphql error: " + string(e.Errors)
}

// NewClient builds a client from config. The shop URL and token are
// required; there is no anonymous access to the Admin API.
func NewClient(cfg config.ShopifyConfig, logger *slog.Logger) (*Client, error) {
	if cfg.ShopURL == "" || cfg.Token == "" {
		return nil, errors.New("shopify: SHOP_URL and SHOP_TOKEN must be set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		shopURL:    cfg.ShopURL,
		token:      cfg.Token,
		apiVersion: cfg.APIVersion,
		httpc:      &http.Client{Timeout: timeout},
		logger:     logger,
		sleep:      time.Sleep,
	}, nil
}

func (c *Client) endpoint(path string) string {
	if c.baseURL != "" {
		return c.baseURL + "/" + path
	}
	return fmt.Sprintf("https://%s/admin/api/%s/%s", c.shopURL, c.apiVersion, path)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)
}

// Fetch GETs a REST endpoint ("products", "orders/count", ...) and
// returns the raw JSON body. Transient failures are retried a fixed
// number of times; crossing 80% of the call limit inserts a delay
// before returning.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	u := c.endpoint(endpoint + ".json")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Info("retrying REST fetch", "endpoint", endpoint, "attempt", attempt)
			c.sleep(retryWait)
		}

		body, header, err := c.do(ctx, http.MethodGet, u, nil)
		if err != nil {
			lastErr = err
			continue
		}

		c.checkCallLimit(header)
		return body, nil
	}
	return nil, fmt.Errorf("shopify: fetching %s: %w", endpoint, lastErr)
}

// checkCallLimit parses X-Shopify-Shop-Api-Call-Limit ("32/40") and
// delays when usage crosses 80%.
func (c *Client) checkCallLimit(header http.Header) {
	made, max, ok := parseCallLimit(header.Get("X-Shopify-Shop-Api-Call-Limit"))
	if !ok {
		return
	}
	if float64(made) > float64(max)*0.8 {
		c.logger.Warn("approaching REST rate limit", "made", made, "max", max)
		c.sleep(retryWait)
	}
}

func parseCallLimit(v string) (made, max int, ok bool) {
	part, rest, found := strings.Cut(v, "/")
	if !found {
		return 0, 0, false
	}
	made, err1 := strconv.Atoi(part)
	max, err2 := strconv.Atoi(rest)
	if err1 != nil || err2 != nil || max == 0 {
		return 0, 0, false
	}
	return made, max, true
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Execute runs a GraphQL query or mutation and returns the data
// payload. Top-level errors become a GraphQLError.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("shopify: encoding graphql request: %w", err)
	}

	body, _, err := c.do(ctx, http.MethodPost, c.endpoint("graphql.json"), payload)
	if err != nil {
		return nil, fmt.Errorf("shopify: executing graphql: %w", err)
	}

	var resp graphqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("shopify: decoding graphql response: %w", err)
	}
	if len(resp.Errors) > 0 && string(resp.Errors) != "null" {
		return nil, &GraphQLError{Errors: resp.Errors}
	}
	return resp.Data, nil
}

// Mutate runs a GraphQL mutation. In dry-run mode it logs what would
// happen and returns nil data without touching the API.
func (c *Client) Mutate(ctx context.Context, mutation string, variables map[string]any, dryRun bool) (json.RawMessage, error) {
	if dryRun {
		c.logger.Info("[dry run] would execute mutation", "variables", variables)
		return nil, nil
	}
	return c.Execute(ctx, mutation, variables)
}

func (c *Client) do(ctx context.Context, method, u string, payload []byte) (json.RawMessage, http.Header, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, resp.Header, nil
}
