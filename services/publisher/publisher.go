package publisher

import (
	"encoding/json"

	"sjsage522/goldpriceworker/internal/gold"
)

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to the stream of one weight class
	Publish(weight string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// RowEvent is the message published for every row appended to a price table
type RowEvent struct {
	Weight       string `json:"weight"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Forced       bool   `json:"forced"`
	G24Sell      *int64 `json:"g24_sell"`
	G24Buyback   *int64 `json:"g24_buyback"`
	AntamSell    *int64 `json:"antam_sell"`
	AntamBuyback *int64 `json:"antam_buyback"`
	UBSSell      *int64 `json:"ubs_sell"`
	UBSBuyback   *int64 `json:"ubs_buyback"`
}

// NewRowEvent builds the event for row; absent prices stay null
func NewRowEvent(weight gold.WeightClass, row gold.Row, forced bool) RowEvent {
	return RowEvent{
		Weight:       string(weight),
		Date:         row.Date,
		Time:         row.Time,
		Forced:       forced,
		G24Sell:      row.Sell[gold.G24],
		G24Buyback:   row.Buyback[gold.G24],
		AntamSell:    row.Sell[gold.ANTAM],
		AntamBuyback: row.Buyback[gold.ANTAM],
		UBSSell:      row.Sell[gold.UBS],
		UBSBuyback:   row.Buyback[gold.UBS],
	}
}

// Marshal encodes the event as JSON
func (e RowEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
