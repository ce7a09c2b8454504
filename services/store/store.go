package store

import (
	"errors"

	"sjsage522/goldpriceworker/internal/gold"
)

// ErrTableNotFound is returned by ReadAll when no table exists yet for a weight
var ErrTableNotFound = errors.New("price table not found")

// Store persists one append-only price table per weight class
type Store interface {
	// ReadAll returns every row of the weight's table in stored order
	ReadAll(weight gold.WeightClass) (gold.Series, error)

	// WriteAll replaces the weight's table with series
	WriteAll(weight gold.WeightClass, series gold.Series) error

	// EnsureStructure creates or repairs the tables of every weight class
	EnsureStructure() error
}
