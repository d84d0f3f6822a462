package gateway

import (
	"context"

	"github.com/sagecry/sagebot/internal/market"
	"github.com/sagecry/sagebot/internal/types"
	"github.com/sagecry/sagebot/pkg/errors"
)

// SimulatedGateway implements Gateway without touching the exchange. Orders
// fill instantly at the current quote, so the decision logic above it runs
// unchanged against real or simulated execution. Wallet accounting is not
// done here; the ledger owns the simulated balance.
type SimulatedGateway struct {
	market market.Provider
}

// NewSimulatedGateway creates a gateway that fills orders at the price the
// given market provider reports.
func NewSimulatedGateway(provider market.Provider) *SimulatedGateway {
	return &SimulatedGateway{market: provider}
}

// BuyMarket implements Gateway. The simulated fill sizes quantity as
// notional divided by the current price.
func (g *SimulatedGateway) BuyMarket(ctx context.Context, symbol string, notional float64) (types.Fill, error) {
	if notional <= 0 {
		return types.Fill{}, errors.New(errors.ErrCodeInvalidParameter, "buy notional must be greater than zero")
	}

	price, err := g.market.GetPrice(ctx, symbol)
	if err != nil {
		return types.Fill{}, err
	}

	if price <= 0 {
		return types.Fill{}, errors.Newf(errors.ErrCodeRejectedOrder, "non-positive quote for %s", symbol)
	}

	return types.Fill{
		Price:       price,
		Quantity:    notional / price,
		QuoteAmount: notional,
	}, nil
}

// SellMarket implements Gateway. Proceeds are quantity times the current
// price.
func (g *SimulatedGateway) SellMarket(ctx context.Context, symbol string, quantity float64) (types.Fill, error) {
	if quantity <= 0 {
		return types.Fill{}, errors.New(errors.ErrCodeInvalidParameter, "sell quantity must be greater than zero")
	}

	price, err := g.market.GetPrice(ctx, symbol)
	if err != nil {
		return types.Fill{}, err
	}

	return types.Fill{
		Price:       price,
		Quantity:    quantity,
		QuoteAmount: quantity * price,
	}, nil
}

// Ensure SimulatedGateway implements Gateway.
var _ Gateway = (*SimulatedGateway)(nil)
