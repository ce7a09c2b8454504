package crawler

import (
	"context"
	"io"
	"time"

	"sjsage522/goldpriceworker/internal/gold"
)

// Scraper produces one snapshot of every vendor's prices for a weight class
type Scraper interface {
	// Scrape fetches and parses the source page. Fetch and parse failures are
	// reported inside the snapshot; an error means the attempt itself broke.
	Scrape(ctx context.Context, weight gold.WeightClass) (*gold.Snapshot, error)
}

// Parser locates vendor price sections in a page
type Parser interface {
	// LocateVendorSections returns the sections whose title names a known vendor
	LocateVendorSections(body io.Reader) ([]Section, error)
}

// Section is one vendor's price table
type Section struct {
	Vendor gold.Vendor
	Rows   []Row
}

// Row holds the raw trimmed cell text of one price table row
type Row struct {
	Weight  string
	Sell    string
	Buyback string
}

// Selectors contains CSS selectors for the price page
type Selectors struct {
	Container string // one vendor block
	Header    string // vendor title inside a block
	DataRow   string // table row inside a block
	HeaderRow string // marker of the column header row
	Cell      string // cells of a row: weight, sell, buyback
}

// DefaultSelectors match the galeri24.co.id price page
var DefaultSelectors = Selectors{
	Container: "div.grid.divide-neutral-200.border-neutral-200",
	Header:    "div.bg-primary-100",
	DataRow:   "div.grid.grid-cols-5.divide-x",
	HeaderRow: "div.bg-neutral-50",
	Cell:      "div",
}

// FetchFunc fetches url within timeout and returns a UTF-8 body
type FetchFunc func(ctx context.Context, url string, timeout time.Duration) (io.Reader, error)

// ScraperConfig contains configuration for the page scraper
type ScraperConfig struct {
	URL               string
	Timeouts          []time.Duration
	ConnectRetryDelay time.Duration
	CacheKey          string
	BlockTime         time.Duration
	Selectors         Selectors
}
