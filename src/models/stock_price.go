package models

import "time"

// MStockPrice is one cleaned point of a chart series.
type MStockPrice struct {
	Symbol              string    `json:"symbol"`
	Open                float64   `json:"open"`
	High                float64   `json:"high"`
	Low                 float64   `json:"low"`
	Price               float64   `json:"price"`
	PricePercentChange  float64   `json:"price_percent_change"`
	Volume              float64   `json:"volume"`
	VolumePercentChange float64   `json:"volume_percent_change"`
	Timestamp           int64     `json:"timestamp"`
	CreatedAt           time.Time `json:"created_at"`
}
