package shopify

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matta-kelly/local-bi/internal/config"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(config.ShopifyConfig{
		ShopURL:    "test.myshopify.com",
		Token:      "tok",
		APIVersion: "2025-01",
		Timeout:    5 * time.Second,
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	c.baseURL = baseURL
	c.sleep = func(time.Duration) {}
	return c
}

// ----------------------------------------------------------------------------
// Client Tests
// ----------------------------------------------------------------------------

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.ShopifyConfig{ShopURL: "x.myshopify.com"}, slog.New(slog.DiscardHandler))
	if err == nil {
		t.Fatal("NewClient() without token succeeded")
	}
}

func TestParseCallLimit(t *testing.T) {
	tests := []struct {
		in     string
		made   int
		max    int
		wantOK bool
	}{
		{in: "32/40", made: 32, max: 40, wantOK: true},
		{in: "0/40", made: 0, max: 40, wantOK: true},
		{in: "", wantOK: false},
		{in: "garbage", wantOK: false},
		{in: "1/0", wantOK: false},
	}
	for _, tt := range tests {
		made, max, ok := parseCallLimit(tt.in)
		if ok != tt.wantOK || made != tt.made || max != tt.max {
			t.Errorf("parseCallLimit(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.in, made, max, ok, tt.made, tt.max, tt.wantOK)
		}
	}
}

func TestFetchSendsToken(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		w.Header().Set("X-Shopify-Shop-Api-Call-Limit", "1/40")
		w.Write([]byte(`{"products":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	body, err := c.Fetch(context.Background(), "products", nil)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if gotToken != "tok" {
		t.Errorf("token header = %q", gotToken)
	}
	if string(body) != `{"products":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestExecuteSurfacesGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"boom"}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Execute(context.Background(), "query { shop { id } }", nil)
	if err == nil {
		t.Fatal("Execute() with errors succeeded")
	}
}

func TestMutateDryRunSkipsAPI(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	data, err := c.Mutate(context.Background(), tagsAddMutation, map[string]any{"id": "x"}, true)
	if err != nil || data != nil {
		t.Errorf("Mutate(dry run) = (%v, %v)", data, err)
	}
	if called {
		t.Error("dry run hit the API")
	}
}

// ----------------------------------------------------------------------------
// Tag / Badge Tests
// ----------------------------------------------------------------------------

func TestNormalizeGID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "123", want: "gid://shopify/Product/123"},
		{in: " 123 ", want: "gid://shopify/Product/123"},
		{in: "gid://shopify/Product/123", want: "gid://shopify/Product/123"},
	}
	for _, tt := range tests {
		if got := NormalizeGID(tt.in); got != tt.want {
			t.Errorf("NormalizeGID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRemoveTagsCollectsUserErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"tagsRemove":{"node":null,"userErrors":[{"field":["id"],"message":"not found"}]}}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	r := c.RemoveTags(context.Background(), []string{"123"}, []string{"New"}, false)

	if len(r.Success) != 0 || len(r.Failed) != 1 {
		t.Fatalf("Result = %+v", r)
	}
	if r.Errors[0].Message != "not found" {
		t.Errorf("error message = %q", r.Errors[0].Message)
	}
}

func TestAddTagsDryRunSucceedsAll(t *testing.T) {
	c := testClient(t, "http://unreachable.invalid")
	r := c.AddTags(context.Background(), []string{"1", "2"}, []string{"New"}, true)

	if len(r.Success) != 2 || len(r.Failed) != 0 {
		t.Errorf("Result = %+v", r)
	}
	if r.Success[0] != "gid://shopify/Product/1" {
		t.Errorf("Success[0] = %q", r.Success[0])
	}
}

// ----------------------------------------------------------------------------
// Stale New Tests
// ----------------------------------------------------------------------------

func TestFindStaleNew(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -90)
	older := now.AddDate(0, 0, -120)
	recent := now.AddDate(0, 0, -10)

	listings := []ListingInfo{
		{ProductID: "1", Status: "ACTIVE", PublishedAt: old, Badge: "New"},
		{ProductID: "2", Status: "ACTIVE", PublishedAt: older},
		{ProductID: "3", Status: "ACTIVE", PublishedAt: recent, Badge: "New"},
		{ProductID: "4", Status: "DRAFT", PublishedAt: older, Badge: "New"},
		{ProductID: "5", Status: "ACTIVE"}, // never published
	}
	tagged := map[string]bool{"1": true, "2": true, "3": true}

	tags, badges := FindStaleNew(listings, tagged, 60, now)

	// Oldest first.
	if len(tags) != 2 || tags[0].ProductID != "2" || tags[1].ProductID != "1" {
		t.Errorf("tags = %+v", tags)
	}
	if tags[0].DaysSincePublished != 120 {
		t.Errorf("DaysSincePublished = %d, want 120", tags[0].DaysSincePublished)
	}
	// Product 1 has both tag and badge: on both lists.
	if len(badges) != 1 || badges[0].ProductID != "1" {
		t.Errorf("badges = %+v", badges)
	}
}

func TestFindStaleNewEmptyWhenFresh(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	listings := []ListingInfo{
		{ProductID: "1", Status: "ACTIVE", PublishedAt: now.AddDate(0, 0, -30), Badge: "New"},
	}

	tags, badges := FindStaleNew(listings, map[string]bool{"1": true}, 60, now)
	if len(tags) != 0 || len(badges) != 0 {
		t.Errorf("FindStaleNew() = (%v, %v), want empty", tags, badges)
	}
}
