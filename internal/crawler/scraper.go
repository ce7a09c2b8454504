package crawler

import (
	"context"
	"fmt"
	"strings"

	"sjsage522/goldpriceworker/internal/gold"
	"sjsage522/goldpriceworker/logger"
	"sjsage522/goldpriceworker/services/cache"
)

// PageScraper scrapes the three vendor sections of the price page
type PageScraper struct {
	BaseCrawler
	parser Parser
}

// NewPageScraper creates a scraper using an HTMLParser built from cfg.Selectors
func NewPageScraper(cfg ScraperConfig, cacheSvc cache.CacheService) *PageScraper {
	return &PageScraper{
		BaseCrawler: newBaseCrawler(cfg, cacheSvc),
		parser:      NewHTMLParser(cfg.Selectors),
	}
}

// Scrape implements Scraper. It never returns an error: fetch and parse
// failures yield an all-absent snapshot carrying the cause on every vendor.
func (c *PageScraper) Scrape(ctx context.Context, weight gold.WeightClass) (*gold.Snapshot, error) {
	log := logger.ForScraper(string(weight))
	log.Info().Str("url", c.URL).Msg("Scraping gold prices")

	body, err := c.fetchWithCache(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("Fetching source page failed")
		return gold.FailedSnapshot(weight, "Error scraping: "+err.Error()), nil
	}

	sections, err := c.parser.LocateVendorSections(body)
	if err != nil {
		log.Error().Err(err).Msg("Parsing source page failed")
		return gold.FailedSnapshot(weight, "Error scraping: "+err.Error()), nil
	}

	snap := gold.NewSnapshot(weight)
	for _, section := range sections {
		log.Debug().
			Str("vendor", section.Vendor.Name()).
			Int("rows", len(section.Rows)).
			Msg("Processing vendor section")
		fillQuote(section, weight, snap.Quote(section.Vendor))
	}
	annotateMissing(snap)

	for _, q := range snap.Quotes {
		log.Info().
			Str("vendor", q.Vendor.Name()).
			Interface("sell", q.Sell).
			Interface("buyback", q.Buyback).
			Msg("Scrape result")
	}
	return snap, nil
}

// fillQuote sets the quote's prices from the first matching rows. Exact weight
// matches are tried first; the fuzzy pass only runs while sell is still absent.
func fillQuote(section Section, weight gold.WeightClass, q *gold.PriceQuote) {
	id := string(weight)
	for _, row := range section.Rows {
		if row.Weight == id {
			applyRow(row, q)
		}
	}

	if q.Sell != nil {
		return
	}

	variants := fuzzyVariants(weight)
	for _, row := range section.Rows {
		for _, v := range variants {
			if strings.Contains(row.Weight, v) {
				logger.Debug("Fuzzy match for %sg in %s: %q", id, section.Vendor, row.Weight)
				applyRow(row, q)
				break
			}
		}
	}
}

// applyRow fills fields that are still absent; set fields are never overwritten
func applyRow(row Row, q *gold.PriceQuote) {
	if sell, ok := ExtractPrice(row.Sell); ok && q.Sell == nil {
		q.Sell = gold.Price(sell)
	}
	if buyback, ok := ExtractPrice(row.Buyback); ok && q.Buyback == nil {
		q.Buyback = gold.Price(buyback)
	}
}

func fuzzyVariants(weight gold.WeightClass) []string {
	id := string(weight)
	return []string{id, id + " ", id + "g", id + " g", id + " gram"}
}

// annotateMissing names the missing fields of every incomplete quote
func annotateMissing(snap *gold.Snapshot) {
	for i := range snap.Quotes {
		q := &snap.Quotes[i]
		var missing []string
		if q.Sell == nil {
			missing = append(missing, fmt.Sprintf("sell %sg", snap.Weight))
		}
		if q.Buyback == nil {
			missing = append(missing, fmt.Sprintf("buyback %sg", snap.Weight))
		}
		if len(missing) > 0 {
			q.Error = fmt.Sprintf("Data %s %s not found", strings.Join(missing, ", "), q.Vendor.Name())
		} else {
			q.Error = ""
		}
	}
}
