// Package market provides the market snapshot capability the trading core
// consumes: a 24-hour ticker snapshot of all tradable instruments and spot
// prices for single instruments.
package market

import (
	"context"

	"github.com/sagecry/sagebot/internal/types"
)

// Provider is the abstract market snapshot collaborator. Transport concerns
// (authentication, rate limiting) live behind this interface.
type Provider interface {
	// GetAllTickers returns the current 24-hour ticker snapshot for all
	// instruments. Fails with ErrCodeTransientFetch.
	GetAllTickers(ctx context.Context) ([]types.Ticker, error)
	// GetPrice returns the current price for one symbol. Fails with
	// ErrCodeTransientFetch or ErrCodeUnknownSymbol.
	GetPrice(ctx context.Context, symbol string) (float64, error)
	// CheckConnection verifies the provider can reach the exchange.
	// Fails with ErrCodeClientUnavailable.
	CheckConnection(ctx context.Context) error
}
