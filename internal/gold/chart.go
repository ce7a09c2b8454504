package gold

import (
	"fmt"
	"sort"
	"time"
)

const labelLayout = "02 Jan 15:04"

// Latest summarises the most recent row, with nulls shown as 0
type Latest struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	G24Sell      int64  `json:"g24_sell"`
	G24Buyback   int64  `json:"g24_buyback"`
	AntamSell    int64  `json:"antam_sell"`
	AntamBuyback int64  `json:"antam_buyback"`
	UBSSell      int64  `json:"ubs_sell"`
	UBSBuyback   int64  `json:"ubs_buyback"`
}

// ChartData is the chart-ready projection of a series
type ChartData struct {
	Weight       WeightClass `json:"weight"`
	Dates        []string    `json:"dates"`
	G24Sell      []int64     `json:"g24_sell"`
	AntamSell    []int64     `json:"antam_sell"`
	UBSSell      []int64     `json:"ubs_sell"`
	G24Buyback   []int64     `json:"g24_buyback"`
	AntamBuyback []int64     `json:"antam_buyback"`
	UBSBuyback   []int64     `json:"ubs_buyback"`
	Latest       *Latest     `json:"latest"`
	Error        string      `json:"error,omitempty"`
	IsEmpty      bool        `json:"isEmpty"`
}

// EmptyChart returns the explicit empty-result marker with a diagnostic message
func EmptyChart(weight WeightClass, msg string) ChartData {
	return ChartData{
		Weight:       weight,
		Dates:        []string{},
		G24Sell:      []int64{},
		AntamSell:    []int64{},
		UBSSell:      []int64{},
		G24Buyback:   []int64{},
		AntamBuyback: []int64{},
		UBSBuyback:   []int64{},
		Error:        msg,
		IsEmpty:      true,
	}
}

// Project filters the series down to price changes and builds chart data
func Project(weight WeightClass, series Series) ChartData {
	if len(series) == 0 {
		return EmptyChart(weight, fmt.Sprintf("Data for %s gram is still empty.", weight))
	}

	rows := make(Series, 0, len(series))
	for _, r := range series {
		if !r.Empty() {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return EmptyChart(weight, fmt.Sprintf("Data for %s gram has no valid prices.", weight))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Key() < rows[j].Key()
	})
	kept := FilterChanged(rows)

	chart := ChartData{Weight: weight}
	for _, r := range kept {
		chart.Dates = append(chart.Dates, FormatLabel(r.Date, r.Time))
		chart.G24Sell = append(chart.G24Sell, orZero(r.Sell[G24]))
		chart.AntamSell = append(chart.AntamSell, orZero(r.Sell[ANTAM]))
		chart.UBSSell = append(chart.UBSSell, orZero(r.Sell[UBS]))
		chart.G24Buyback = append(chart.G24Buyback, orZero(r.Buyback[G24]))
		chart.AntamBuyback = append(chart.AntamBuyback, orZero(r.Buyback[ANTAM]))
		chart.UBSBuyback = append(chart.UBSBuyback, orZero(r.Buyback[UBS]))
	}

	last := rows[len(rows)-1]
	chart.Latest = &Latest{
		Date:         last.Date,
		Time:         last.Time,
		G24Sell:      orZero(last.Sell[G24]),
		G24Buyback:   orZero(last.Buyback[G24]),
		AntamSell:    orZero(last.Sell[ANTAM]),
		AntamBuyback: orZero(last.Buyback[ANTAM]),
		UBSSell:      orZero(last.Sell[UBS]),
		UBSBuyback:   orZero(last.Buyback[UBS]),
	}
	return chart
}

// FilterChanged keeps the first row and every row whose prices differ from the
// last kept row. A final row that repeats the last kept prices is dropped, so
// the output never holds two adjacent identical price tuples.
// rows must already be sorted chronologically.
func FilterChanged(rows Series) Series {
	if len(rows) <= 1 {
		return rows
	}

	kept := Series{rows[0]}
	for i := 1; i < len(rows); i++ {
		if !rows[i].SamePrices(kept[len(kept)-1]) {
			kept = append(kept, rows[i])
		}
	}
	return kept
}

// FormatLabel renders a row timestamp for the chart axis
func FormatLabel(date, clock string) string {
	t, err := time.Parse(DateLayout+" "+TimeLayout, date+" "+clock)
	if err != nil {
		return date + " " + clock
	}
	return t.Format(labelLayout)
}

func orZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
