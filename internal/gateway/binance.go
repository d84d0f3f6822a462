package gateway

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/sagecry/sagebot/internal/types"
	"github.com/sagecry/sagebot/pkg/errors"
)

const (
	// binanceDecimalPrecision is the decimal precision used when formatting
	// order quantities. 8 decimals allows satoshi-level precision for
	// BTC-like assets.
	binanceDecimalPrecision = 8

	// binanceInsufficientBalanceCode is the Binance API error code reported
	// when the account balance cannot cover the requested order.
	binanceInsufficientBalanceCode = -2010
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	QuoteOrderQty(quoteOrderQty string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) QuoteOrderQty(quoteOrderQty string) CreateOrderService {
	s.service = s.service.QuoteOrderQty(quoteOrderQty)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

// BinanceGateway implements Gateway by submitting real market orders.
type BinanceGateway struct {
	client BinanceClient
}

// NewBinanceGateway creates a gateway that places live orders on Binance.
// If useTestnet is true, orders go to the Binance testnet.
func NewBinanceGateway(apiKey, secretKey string, useTestnet bool) *BinanceGateway {
	if useTestnet {
		binance.UseTestnet = true
	}

	return &BinanceGateway{
		client: &realBinanceClient{client: binance.NewClient(apiKey, secretKey)},
	}
}

// newBinanceGatewayWithClient creates a gateway with a custom client.
// This is used for testing with mock clients.
func newBinanceGatewayWithClient(client BinanceClient) *BinanceGateway {
	return &BinanceGateway{client: client}
}

// BuyMarket implements Gateway using a quote-notional market order, so the
// exchange sizes the base quantity at the actual execution price.
func (g *BinanceGateway) BuyMarket(ctx context.Context, symbol string, notional float64) (types.Fill, error) {
	if notional <= 0 {
		return types.Fill{}, errors.New(errors.ErrCodeInvalidParameter, "buy notional must be greater than zero")
	}

	res, err := g.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(strconv.FormatFloat(notional, 'f', binanceDecimalPrecision, 64)).
		Do(ctx)
	if err != nil {
		return types.Fill{}, mapOrderError(symbol, err)
	}

	return fillFromResponse(symbol, res)
}

// SellMarket implements Gateway.
func (g *BinanceGateway) SellMarket(ctx context.Context, symbol string, quantity float64) (types.Fill, error) {
	if quantity <= 0 {
		return types.Fill{}, errors.New(errors.ErrCodeInvalidParameter, "sell quantity must be greater than zero")
	}

	res, err := g.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', binanceDecimalPrecision, 64)).
		Do(ctx)
	if err != nil {
		return types.Fill{}, mapOrderError(symbol, err)
	}

	return fillFromResponse(symbol, res)
}

// fillFromResponse extracts the executed price, quantity, and quote amount
// from an order response. The first fill's price is used when present,
// matching what gets recorded in the ledger; otherwise the volume-weighted
// price is derived from the cumulative quote amount.
func fillFromResponse(symbol string, res *binance.CreateOrderResponse) (types.Fill, error) {
	quantity, err := strconv.ParseFloat(res.ExecutedQuantity, 64)
	if err != nil {
		return types.Fill{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "unparseable executed quantity for %s", symbol)
	}

	quoteAmount, err := strconv.ParseFloat(res.CummulativeQuoteQuantity, 64)
	if err != nil {
		return types.Fill{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "unparseable quote amount for %s", symbol)
	}

	var price float64

	if len(res.Fills) > 0 {
		price, err = strconv.ParseFloat(res.Fills[0].Price, 64)
		if err != nil {
			return types.Fill{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "unparseable fill price for %s", symbol)
		}
	} else if quantity > 0 {
		price = quoteAmount / quantity
	}

	if quantity <= 0 || price <= 0 {
		return types.Fill{}, errors.Newf(errors.ErrCodeOrderFailed, "order for %s reported no executed fill", symbol)
	}

	return types.Fill{
		Price:       price,
		Quantity:    quantity,
		QuoteAmount: quoteAmount,
	}, nil
}

// mapOrderError translates a Binance API error into the core taxonomy.
func mapOrderError(symbol string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == binanceInsufficientBalanceCode {
			return errors.Wrapf(errors.ErrCodeInsufficientExchangeFunds, err, "insufficient exchange balance for %s", symbol)
		}

		return errors.Wrapf(errors.ErrCodeRejectedOrder, err, "order for %s rejected by exchange", symbol)
	}

	return errors.Wrapf(errors.ErrCodeTransientFetch, err, "order for %s failed to reach exchange", symbol)
}

// Ensure BinanceGateway implements Gateway.
var _ Gateway = (*BinanceGateway)(nil)
