package types

import "time"

// ConversionRates are the fiat prices of one whole unit of Symbol, keyed by
// currency code, as of Timestamp.
type ConversionRates struct {
	Symbol    string             `json:"symbol"`
	Timestamp time.Time          `json:"timestamp"`
	Rates     map[string]float64 `json:"rates"`
}
