package types

// Ticker is one entry of a 24-hour market snapshot, carried with the raw
// string fields the exchange reports. Numeric parsing happens at ranking
// time so a single malformed entry can be skipped without aborting a scan.
type Ticker struct {
	Symbol string `json:"symbol"`
	// ChangePercent is the signed 24-hour relative price movement.
	ChangePercent string `json:"change_percent"`
	// LastPrice is the most recent trade price.
	LastPrice string `json:"last_price"`
}

// Candidate is a ranked scan result eligible for a new position this cycle.
// Candidates are ephemeral and recomputed on every scan.
type Candidate struct {
	Symbol        string  `json:"symbol"`
	ChangePercent float64 `json:"change_percent"`
	Price         float64 `json:"price"`
}

// Fill is the actual execution reported by the order gateway. It may differ
// from the quoted price at scan time, and it is what gets recorded in the
// position ledger.
type Fill struct {
	// Price is the executed price per unit.
	Price float64 `json:"price"`
	// Quantity is the executed base quantity.
	Quantity float64 `json:"quantity"`
	// QuoteAmount is the quote currency moved by the fill: the notional
	// spent for a buy, the proceeds received for a sell.
	QuoteAmount float64 `json:"quote_amount"`
}
