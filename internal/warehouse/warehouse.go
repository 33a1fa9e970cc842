// Package warehouse reads tabular snapshots from the analytics replica:
// raw Shopify orders, order lines, customers, variants, and listings,
// plus the daily stock table. The replica is read-only; every query is
// a full or since-filtered snapshot, never an incremental sync.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matta-kelly/local-bi/internal/config"
)

// Store wraps the replica connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pool against the replica and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("warehouse: DATABASE_URL must be set")
	}

	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("warehouse: parsing database url: %w", err)
	}
	pc.MaxConns = int32(cfg.MaxConns)
	pc.MinConns = int32(cfg.MinConns)
	pc.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("warehouse: opening pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("warehouse: pinging replica: %w", err)
	}

	logger.Info("connected to warehouse replica", "max_conns", cfg.MaxConns)
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Order is one row of raw_shopify_orders.
type Order struct {
	OrderID    string
	CustomerID string
	CreatedAt  time.Time
	TotalPrice float64
}

// OrderLine is one row of raw_shopify_order_lines.
type OrderLine struct {
	OrderID      string
	VariantID    string
	Quantity     int
	VariantPrice float64
	CreatedAt    time.Time
}

// Customer is one row of raw_shopify_customers.
type Customer struct {
	CustomerID string
	Email      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Variant is one row of raw_shopify_variants.
type Variant struct {
	VariantID      string
	ProductID      string
	SKU            string
	Price          float64
	CompareAtPrice float64 // 0 when unset
	CurrentQty     int
}

// Listing is one row of raw_shopify_products.
type Listing struct {
	ProductID   string
	Handle      string
	Title       string
	ProductType string
	Status      string
	Badge       string
	PublishedAt time.Time // zero when never published
}

// ListingTag is one (product, tag) pair from shopify_product_tags.
type ListingTag struct {
	ProductID string
	Tag       string
}

// StockDay is one row of stock_daily.
type StockDay struct {
	SnapshotDate time.Time
	VariantID    string
	Quantity     int
}

// Orders returns the order snapshot, optionally limited to orders
// created at or after since.
func (s *Store) Orders(ctx context.Context, since time.Time) ([]Order, error) {
	query := `SELECT order_id, customer_id, created_at, total_price FROM raw_shopify_orders`
	rows, err := s.query(ctx, query, "created_at", since)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var customerID *string
		if err := rows.Scan(&o.OrderID, &customerID, &o.CreatedAt, &o.TotalPrice); err != nil {
			return nil, fmt.Errorf("warehouse: scanning order: %w", err)
		}
		o.CustomerID = deref(customerID)
		out = append(out, o)
	}
	return out, rows.Err()
}

// OrderLines returns the order-line snapshot, optionally limited to
// lines created at or after since.
func (s *Store) OrderLines(ctx context.Context, since time.Time) ([]OrderLine, error) {
	query := `SELECT order_id, variant_id, quantity, variant_price, created_at FROM raw_shopify_order_lines`
	rows, err := s.query(ctx, query, "created_at", since)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying order lines: %w", err)
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var l OrderLine
		var price *float64
		if err := rows.Scan(&l.OrderID, &l.VariantID, &l.Quantity, &price, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("warehouse: scanning order line: %w", err)
		}
		if price != nil {
			l.VariantPrice = *price
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Customers returns the customer snapshot, optionally limited to
// customers updated at or after since.
func (s *Store) Customers(ctx context.Context, since time.Time) ([]Customer, error) {
	query := `SELECT customer_id, email, created_at, updated_at FROM raw_shopify_customers`
	rows, err := s.query(ctx, query, "updated_at", since)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		var email *string
		if err := rows.Scan(&c.CustomerID, &email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("warehouse: scanning customer: %w", err)
		}
		c.Email = deref(email)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Variants returns the variant snapshot.
func (s *Store) Variants(ctx context.Context) ([]Variant, error) {
	query := `SELECT variant_id, product_id, sku, price, compare_at_price, current_qty FROM raw_shopify_variants`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying variants: %w", err)
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		var sku *string
		var compareAt *float64
		if err := rows.Scan(&v.VariantID, &v.ProductID, &sku, &v.Price, &compareAt, &v.CurrentQty); err != nil {
			return nil, fmt.Errorf("warehouse: scanning variant: %w", err)
		}
		v.SKU = deref(sku)
		if compareAt != nil {
			v.CompareAtPrice = *compareAt
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Listings returns the product listing snapshot.
func (s *Store) Listings(ctx context.Context) ([]Listing, error) {
	query := `SELECT product_id, handle, title, product_type, status, badge, published_at FROM raw_shopify_products`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying listings: %w", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var l Listing
		var productType, badge *string
		var publishedAt *time.Time
		if err := rows.Scan(&l.ProductID, &l.Handle, &l.Title, &productType, &l.Status, &badge, &publishedAt); err != nil {
			return nil, fmt.Errorf("warehouse: scanning listing: %w", err)
		}
		l.ProductType = deref(productType)
		l.Badge = deref(badge)
		if publishedAt != nil {
			l.PublishedAt = *publishedAt
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListingTags returns every (product, tag) pair.
func (s *Store) ListingTags(ctx context.Context) ([]ListingTag, error) {
	rows, err := s.pool.Query(ctx, `SELECT product_id, tag FROM shopify_product_tags`)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying listing tags: %w", err)
	}
	defer rows.Close()

	var out []ListingTag
	for rows.Next() {
		var t ListingTag
		if err := rows.Scan(&t.ProductID, &t.Tag); err != nil {
			return nil, fmt.Errorf("warehouse: scanning listing tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// StockDaily returns daily stock snapshots, optionally limited to
// snapshots taken at or after since.
func (s *Store) StockDaily(ctx context.Context, since time.Time) ([]StockDay, error) {
	query := `SELECT snapshot_date, variant_id, qty FROM stock_daily`
	rows, err := s.query(ctx, query, "snapshot_date", since)
	if err != nil {
		return nil, fmt.Errorf("warehouse: querying stock daily: %w", err)
	}
	defer rows.Close()

	var out []StockDay
	for rows.Next() {
		var d StockDay
		if err := rows.Scan(&d.SnapshotDate, &d.VariantID, &d.Quantity); err != nil {
			return nil, fmt.Errorf("warehouse: scanning stock day: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// query appends a since filter when since is set. The filter column is
// fixed per call site, never user input.
func (s *Store) query(ctx context.Context, base, sinceCol string, since time.Time) (pgx.Rows, error) {
	if since.IsZero() {
		return s.pool.Query(ctx, base)
	}
	return s.pool.Query(ctx, base+` WHERE `+sinceCol+` >= $1`, since)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
