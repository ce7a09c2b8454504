package crawler

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/goldpriceworker/internal/gold"
	"sjsage522/goldpriceworker/logger"
	perrors "sjsage522/goldpriceworker/pkg/errors"
)

// HTMLParser locates vendor sections with CSS selectors
type HTMLParser struct {
	Selectors Selectors
}

// NewHTMLParser creates a parser, falling back to DefaultSelectors for empty fields
func NewHTMLParser(selectors Selectors) *HTMLParser {
	if selectors.Container == "" {
		selectors.Container = DefaultSelectors.Container
	}
	if selectors.Header == "" {
		selectors.Header = DefaultSelectors.Header
	}
	if selectors.DataRow == "" {
		selectors.DataRow = DefaultSelectors.DataRow
	}
	if selectors.HeaderRow == "" {
		selectors.HeaderRow = DefaultSelectors.HeaderRow
	}
	if selectors.Cell == "" {
		selectors.Cell = DefaultSelectors.Cell
	}
	return &HTMLParser{Selectors: selectors}
}

// LocateVendorSections implements Parser
func (p *HTMLParser) LocateVendorSections(body io.Reader) ([]Section, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, perrors.NewParsing("", "HTML parsing failed", err)
	}

	containers := doc.Find(p.Selectors.Container)
	logger.Debug("Found %d price containers", containers.Length())

	var sections []Section
	containers.Each(func(_ int, container *goquery.Selection) {
		header := container.Find(p.Selectors.Header).First()
		if header.Length() == 0 {
			return
		}

		vendor, ok := gold.VendorBySectionTitle(normalizeText(header.Text()))
		if !ok {
			return
		}

		sections = append(sections, Section{
			Vendor: vendor,
			Rows:   p.rows(container),
		})
	})

	return sections, nil
}

// rows extracts the data rows of one vendor block, skipping the column header row
func (p *HTMLParser) rows(container *goquery.Selection) []Row {
	var rows []Row
	container.Find(p.Selectors.DataRow).Each(func(_ int, s *goquery.Selection) {
		if s.Find(p.Selectors.HeaderRow).Length() > 0 {
			return
		}

		cells := s.Find(p.Selectors.Cell)
		if cells.Length() < 3 {
			return
		}

		rows = append(rows, Row{
			Weight:  strings.TrimSpace(cells.Eq(0).Text()),
			Sell:    strings.TrimSpace(cells.Eq(1).Text()),
			Buyback: strings.TrimSpace(cells.Eq(2).Text()),
		})
	})
	return rows
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
