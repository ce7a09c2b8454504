package crawler

import (
	"strconv"
	"strings"
	"unicode"

	"sjsage522/goldpriceworker/logger"
)

// Plausible price bounds in rupiah, both exclusive
const (
	MinPrice int64 = 100_000
	MaxPrice int64 = 1_000_000_000
)

// ExtractPrice parses an Indonesian formatted price such as "Rp 1.234.567".
// "." is the thousands separator; there is no decimal part.
// It returns false for empty, "-", malformed or out of range text.
func ExtractPrice(text string) (int64, bool) {
	if text == "" || text == "-" {
		return 0, false
	}

	clean := strings.ReplaceAll(text, "Rp", "")
	clean = strings.Map(func(r rune) rune {
		if r == '.' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, clean)

	if clean == "" || strings.IndexFunc(clean, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		logger.Debug("Invalid price format: %q -> %q", text, clean)
		return 0, false
	}

	price, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		logger.Debug("Invalid price %q: %v", text, err)
		return 0, false
	}
	if price <= MinPrice || price >= MaxPrice {
		logger.Debug("Price out of range: %d", price)
		return 0, false
	}
	return price, true
}

// FormatPrice renders price with "." thousands separators, e.g. "Rp 1.234.567"
func FormatPrice(price int64) string {
	digits := strconv.FormatInt(price, 10)
	var b strings.Builder
	b.WriteString("Rp ")
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return b.String()
}
