// Package gateway provides the order execution capability: market buys by
// quote notional and market sells by base quantity. A Binance-backed
// implementation submits real orders; a simulated implementation fills at
// the current quote so both modes share identical decision logic upstream.
package gateway

import (
	"context"

	"github.com/sagecry/sagebot/internal/types"
)

// Gateway is the abstract order execution collaborator.
type Gateway interface {
	// BuyMarket spends notional quote currency on symbol at market price
	// and reports the actual fill. Fails with ErrCodeRejectedOrder,
	// ErrCodeInsufficientExchangeFunds, or ErrCodeTransientFetch.
	BuyMarket(ctx context.Context, symbol string, notional float64) (types.Fill, error)
	// SellMarket sells quantity of symbol at market price and reports the
	// actual fill, with QuoteAmount holding the proceeds. Same failure
	// modes as BuyMarket.
	SellMarket(ctx context.Context, symbol string, quantity float64) (types.Fill, error)
}
