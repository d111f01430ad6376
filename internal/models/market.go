package models

import "time"

// Stock is a cached quote for a symbol. It is the read path used to pre-fill
// trade prices and to mark positions to market; trades never consult it.
type Stock struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	CurrentPrice  float64   `json:"current_price"`
	PreviousClose float64   `json:"previous_close"`
	MarketCap     float64   `json:"market_cap,omitempty"`
	Volume        float64   `json:"volume,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Change returns CurrentPrice - PreviousClose.
func (s Stock) Change() float64 {
	return s.CurrentPrice - s.PreviousClose
}

// ChangePct returns the day change as a percentage of PreviousClose.
func (s Stock) ChangePct() float64 {
	if s.PreviousClose == 0 {
		return 0
	}
	return s.Change() / s.PreviousClose * 100
}

// WatchlistItem is a symbol a user follows.
type WatchlistItem struct {
	UserID  string    `json:"user_id"`
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// WatchedStock joins a watchlist item with its quote.
type WatchedStock struct {
	Stock
	AddedAt time.Time `json:"added_at"`
}
