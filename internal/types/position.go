package types

import "time"

// Position represents one open holding acquired by a buy order.
// At most one position per symbol exists at a time; a position is replaced
// wholesale on re-entry, never partially mutated.
type Position struct {
	// Symbol is the instrument identifier, e.g. "BTCUSDT".
	Symbol string `json:"symbol" yaml:"symbol"`
	// EntryPrice is the fill price per unit reported by the order gateway.
	EntryPrice float64 `json:"entry_price" yaml:"entry_price"`
	// Quantity is the number of units held.
	Quantity float64 `json:"quantity" yaml:"quantity"`
	// OpenedAt is the acquisition timestamp.
	OpenedAt time.Time `json:"opened_at" yaml:"opened_at"`
}

// EntryNotional returns the quote amount spent to open the position.
func (p *Position) EntryNotional() float64 {
	return p.EntryPrice * p.Quantity
}

// ChangePercent returns the relative move from the entry price, in percent.
func (p *Position) ChangePercent(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}

	return (currentPrice - p.EntryPrice) / p.EntryPrice * 100
}
