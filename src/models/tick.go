package models

import "time"

// MTick is one normalized price/size event from the gateway feed.
// Price is NaN when the feed delivered no usable price for this event.
type MTick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}
