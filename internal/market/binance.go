package market

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"

	"github.com/sagecry/sagebot/internal/types"
	"github.com/sagecry/sagebot/pkg/errors"
)

// Service interfaces for mocking the Binance API

// ListPriceChangeStatsService interface for fetching 24hr ticker statistics.
type ListPriceChangeStatsService interface {
	Do(ctx context.Context) ([]*binance.PriceChangeStats, error)
}

// ListPricesService interface for fetching current prices.
type ListPricesService interface {
	Symbol(symbol string) ListPricesService
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// PingService interface for connectivity checks.
type PingService interface {
	Do(ctx context.Context) error
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewListPriceChangeStatsService() ListPriceChangeStatsService
	NewListPricesService() ListPricesService
	NewPingService() PingService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewListPriceChangeStatsService() ListPriceChangeStatsService {
	return &realListPriceChangeStatsService{service: r.client.NewListPriceChangeStatsService()}
}

func (r *realBinanceClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

func (r *realBinanceClient) NewPingService() PingService {
	return &realPingService{service: r.client.NewPingService()}
}

// Real service wrappers

type realListPriceChangeStatsService struct {
	service *binance.ListPriceChangeStatsService
}

func (s *realListPriceChangeStatsService) Do(ctx context.Context) ([]*binance.PriceChangeStats, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Symbol(symbol string) ListPricesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realPingService struct {
	service *binance.PingService
}

func (s *realPingService) Do(ctx context.Context) error {
	return s.service.Do(ctx)
}

// BinanceProvider implements Provider using the Binance REST API. It is
// stateless - all data is fetched directly from the exchange.
type BinanceProvider struct {
	client BinanceClient
}

// NewBinanceProvider creates a new Binance market data provider.
// If useTestnet is true, connects to the Binance testnet.
func NewBinanceProvider(apiKey, secretKey string, useTestnet bool) *BinanceProvider {
	if useTestnet {
		binance.UseTestnet = true
	}

	return &BinanceProvider{
		client: &realBinanceClient{client: binance.NewClient(apiKey, secretKey)},
	}
}

// newBinanceProviderWithClient creates a provider with a custom client.
// This is used for testing with mock clients.
func newBinanceProviderWithClient(client BinanceClient) *BinanceProvider {
	return &BinanceProvider{client: client}
}

// GetAllTickers implements Provider. The numeric fields are passed through
// as the raw strings Binance reports; the ranker parses them so one
// malformed entry never aborts a scan.
func (p *BinanceProvider) GetAllTickers(ctx context.Context) ([]types.Ticker, error) {
	stats, err := p.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransientFetch, "failed to fetch 24hr ticker statistics", err)
	}

	tickers := make([]types.Ticker, 0, len(stats))

	for _, stat := range stats {
		tickers = append(tickers, types.Ticker{
			Symbol:        stat.Symbol,
			ChangePercent: stat.PriceChangePercent,
			LastPrice:     stat.LastPrice,
		})
	}

	return tickers, nil
}

// GetPrice implements Provider.
func (p *BinanceProvider) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeTransientFetch, err, "failed to fetch price for %s", symbol)
	}

	if len(prices) == 0 {
		return 0, errors.Newf(errors.ErrCodeUnknownSymbol, "no price reported for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeTransientFetch, err, "unparseable price for %s", symbol)
	}

	return price, nil
}

// CheckConnection implements Provider using the exchange ping endpoint.
func (p *BinanceProvider) CheckConnection(ctx context.Context) error {
	if err := p.client.NewPingService().Do(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeClientUnavailable, "failed to reach Binance API", err)
	}

	return nil
}

// Ensure BinanceProvider implements Provider.
var _ Provider = (*BinanceProvider)(nil)
