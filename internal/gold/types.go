package gold

import (
	"fmt"
	"time"
)

// Vendor identifies one of the gold sellers listed on the source page
type Vendor int

const (
	G24 Vendor = iota
	ANTAM
	UBS
)

// Vendors lists every vendor in column order
var Vendors = []Vendor{G24, ANTAM, UBS}

// Name returns the vendor's display name
func (v Vendor) Name() string {
	switch v {
	case G24:
		return "GALERI 24"
	case ANTAM:
		return "ANTAM"
	case UBS:
		return "UBS"
	}
	return fmt.Sprintf("Vendor(%d)", int(v))
}

// SectionTitle returns the header text of the vendor's price section
func (v Vendor) SectionTitle() string {
	return "Harga " + v.Name()
}

// ColumnPrefix returns the prefix used for the vendor's table columns
func (v Vendor) ColumnPrefix() string {
	switch v {
	case G24:
		return "GALERI24"
	case ANTAM:
		return "ANTAM"
	case UBS:
		return "UBS"
	}
	return ""
}

func (v Vendor) String() string {
	return v.Name()
}

// VendorBySectionTitle maps a section header text to its vendor
func VendorBySectionTitle(title string) (Vendor, bool) {
	for _, v := range Vendors {
		if v.SectionTitle() == title {
			return v, true
		}
	}
	return 0, false
}

// WeightClass is a gold product denomination in grams
type WeightClass string

const (
	OneGram WeightClass = "1"
	TwoGram WeightClass = "2"
)

// Weights lists the tracked weight classes
var Weights = []WeightClass{OneGram, TwoGram}

// ParseWeight validates a weight identifier
func ParseWeight(s string) (WeightClass, error) {
	for _, w := range Weights {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("unsupported weight %q", s)
}

func (w WeightClass) String() string {
	return string(w)
}

// PriceQuote is one vendor's prices for a weight class. Nil means not found.
type PriceQuote struct {
	Vendor  Vendor `json:"-"`
	Sell    *int64 `json:"sell"`
	Buyback *int64 `json:"buyback"`
	Error   string `json:"error,omitempty"`
}

// Snapshot is the result of one scrape across all vendors
type Snapshot struct {
	Quotes [3]PriceQuote
	Date   string
	Time   string
	Weight WeightClass
}

// NewSnapshot returns a snapshot whose quotes are all absent
func NewSnapshot(weight WeightClass) *Snapshot {
	s := &Snapshot{Weight: weight}
	for _, v := range Vendors {
		s.Quotes[v].Vendor = v
	}
	return s
}

// FailedSnapshot returns an all-absent snapshot with the same error on every vendor
func FailedSnapshot(weight WeightClass, msg string) *Snapshot {
	s := NewSnapshot(weight)
	for _, v := range Vendors {
		s.Quotes[v].Error = msg
	}
	return s
}

// Quote returns the vendor's quote
func (s *Snapshot) Quote(v Vendor) *PriceQuote {
	return &s.Quotes[v]
}

// Score counts vendors with a sell price
func (s *Snapshot) Score() int {
	score := 0
	for _, q := range s.Quotes {
		if q.Sell != nil {
			score++
		}
	}
	return score
}

// Complete reports whether every vendor has a sell price
func (s *Snapshot) Complete() bool {
	return s.Score() == len(Vendors)
}

// MissingSell lists vendors without a sell price
func (s *Snapshot) MissingSell() []Vendor {
	var missing []Vendor
	for _, v := range Vendors {
		if s.Quotes[v].Sell == nil {
			missing = append(missing, v)
		}
	}
	return missing
}

// Stamp sets the snapshot's date and time from t
func (s *Snapshot) Stamp(t time.Time) {
	s.Date = t.Format(DateLayout)
	s.Time = t.Format(TimeLayout)
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Row is one persisted observation
type Row struct {
	Date    string
	Time    string
	Sell    [3]*int64
	Buyback [3]*int64
}

// Key is the chronological sort key of the row
func (r Row) Key() string {
	return r.Date + " " + r.Time
}

// Prices returns the six price fields in column order (sell, buyback per vendor)
func (r Row) Prices() [6]*int64 {
	var p [6]*int64
	for _, v := range Vendors {
		p[2*int(v)] = r.Sell[v]
		p[2*int(v)+1] = r.Buyback[v]
	}
	return p
}

// Empty reports whether every price is null
func (r Row) Empty() bool {
	for _, p := range r.Prices() {
		if p != nil {
			return false
		}
	}
	return true
}

// SamePrices reports whether both rows hold the same six prices.
// A null only equals another null.
func (r Row) SamePrices(o Row) bool {
	a, b := r.Prices(), o.Prices()
	for i := range a {
		switch {
		case a[i] == nil && b[i] == nil:
		case a[i] == nil || b[i] == nil:
			return false
		case *a[i] != *b[i]:
			return false
		}
	}
	return true
}

// Series is the ordered history of one weight class
type Series []Row

// Location is the timezone prices are stamped in (WIB)
var Location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// Price returns a pointer to n, for building quotes and rows
func Price(n int64) *int64 {
	return &n
}
