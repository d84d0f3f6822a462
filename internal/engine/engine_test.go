package engine

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/sagecry/sagebot/internal/config"
	"github.com/sagecry/sagebot/internal/events"
	"github.com/sagecry/sagebot/internal/gateway"
	"github.com/sagecry/sagebot/internal/ledger"
	"github.com/sagecry/sagebot/internal/logger"
	"github.com/sagecry/sagebot/internal/scan"
	"github.com/sagecry/sagebot/internal/types"
	apperrors "github.com/sagecry/sagebot/pkg/errors"
)

// fakeMarket implements market.Provider with scripted responses.
type fakeMarket struct {
	tickers    []types.Ticker
	tickersErr error
	prices     map[string]float64
	priceErrs  map[string]error
	checkErr   error
}

func (f *fakeMarket) GetAllTickers(_ context.Context) ([]types.Ticker, error) {
	return f.tickers, f.tickersErr
}

func (f *fakeMarket) GetPrice(_ context.Context, symbol string) (float64, error) {
	if err, ok := f.priceErrs[symbol]; ok {
		return 0, err
	}

	price, ok := f.prices[symbol]
	if !ok {
		return 0, apperrors.Newf(apperrors.ErrCodeUnknownSymbol, "no price reported for %s", symbol)
	}

	return price, nil
}

func (f *fakeMarket) CheckConnection(_ context.Context) error {
	return f.checkErr
}

// fakeGateway implements gateway.Gateway with scripted fills and failures.
type fakeGateway struct {
	buyErrs  map[string]error
	buyFills map[string]types.Fill
	sellErrs map[string]error
	sellFill func(symbol string, quantity float64) types.Fill

	buyAttempts  []string
	sellAttempts []string
}

func (f *fakeGateway) BuyMarket(_ context.Context, symbol string, notional float64) (types.Fill, error) {
	f.buyAttempts = append(f.buyAttempts, symbol)

	if err, ok := f.buyErrs[symbol]; ok {
		return types.Fill{}, err
	}

	if fill, ok := f.buyFills[symbol]; ok {
		return fill, nil
	}

	return types.Fill{Price: 1.0, Quantity: notional, QuoteAmount: notional}, nil
}

func (f *fakeGateway) SellMarket(_ context.Context, symbol string, quantity float64) (types.Fill, error) {
	f.sellAttempts = append(f.sellAttempts, symbol)

	if err, ok := f.sellErrs[symbol]; ok {
		return types.Fill{}, err
	}

	if f.sellFill != nil {
		return f.sellFill(symbol, quantity), nil
	}

	return types.Fill{Price: 1.0, Quantity: quantity, QuoteAmount: quantity}, nil
}

type EngineTestSuite struct {
	suite.Suite

	cfg  config.Config
	ring *events.RingSink
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.cfg = config.Config{
		Mode:                 config.ModeSimulated,
		BuyTrigger:           6.0,
		SellProfitTrigger:    3.0,
		SellLossTrigger:      -3.0,
		TradeNotional:        10.0,
		InitialWallet:        200.0,
		MaxOpenPositions:     5,
		CycleIntervalSeconds: 300,
		QuoteSuffix:          "USDT",
	}
	suite.ring = events.NewRingSink(100)
}

func (suite *EngineTestSuite) newEngine(m *fakeMarket, g gateway.Gateway, book *ledger.Ledger) *Engine {
	return NewEngine(
		suite.cfg,
		m,
		g,
		book,
		scan.NewRanker(suite.cfg.QuoteSuffix, suite.ring),
		suite.ring,
		logger.NewNopLogger(),
	)
}

func (suite *EngineTestSuite) categories() []events.Category {
	snap := suite.ring.Snapshot()

	out := make([]events.Category, 0, len(snap))
	for _, event := range snap {
		out = append(out, event.Category)
	}

	return out
}

// Scenario A: a qualifying gainer is bought at the fill price and the
// simulated wallet is debited the trade notional.
func (suite *EngineTestSuite) TestOpensPositionForTopGainer() {
	m := &fakeMarket{
		tickers: []types.Ticker{
			{Symbol: "XYZUSDT", ChangePercent: "7.5", LastPrice: "10.0"},
		},
		prices: map[string]float64{"XYZUSDT": 10.0},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(suite.cfg.InitialWallet))
	eng := suite.newEngine(m, gateway.NewSimulatedGateway(m), book)

	eng.RunCycle(context.Background())

	suite.Require().True(book.Has("XYZUSDT"))

	snap := book.Snapshot()
	suite.Require().Len(snap, 1)
	suite.InDelta(10.0, snap[0].EntryPrice, 1e-9)
	suite.InDelta(1.0, snap[0].Quantity, 1e-9)
	suite.InDelta(190.0, book.Wallet(), 1e-9)
	suite.Contains(suite.categories(), events.CategoryBuySuccess)
}

// Scenario B: a position past the profit trigger closes with the expected
// proceeds and profit.
func (suite *EngineTestSuite) TestClosesPositionOnProfitTrigger() {
	m := &fakeMarket{
		tickers: []types.Ticker{},
		prices:  map[string]float64{"XYZUSDT": 10.31},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))
	suite.Require().NoError(book.Open(types.Position{
		Symbol:     "XYZUSDT",
		EntryPrice: 10.0,
		Quantity:   1.0,
		OpenedAt:   time.Now(),
	}, 10.0))

	eng := suite.newEngine(m, gateway.NewSimulatedGateway(m), book)

	eng.RunCycle(context.Background())

	suite.False(book.Has("XYZUSDT"))
	// 190 after the open debit, credited 10.31 proceeds
	suite.InDelta(200.31, book.Wallet(), 1e-9)
	suite.Contains(suite.categories(), events.CategorySellSuccess)
}

// Scenario C: a position past the loss trigger closes as a loss exit.
func (suite *EngineTestSuite) TestClosesPositionOnLossTrigger() {
	m := &fakeMarket{
		tickers: []types.Ticker{},
		prices:  map[string]float64{"XYZUSDT": 9.69},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))
	suite.Require().NoError(book.Open(types.Position{
		Symbol:     "XYZUSDT",
		EntryPrice: 10.0,
		Quantity:   1.0,
		OpenedAt:   time.Now(),
	}, 10.0))

	eng := suite.newEngine(m, gateway.NewSimulatedGateway(m), book)

	eng.RunCycle(context.Background())

	suite.False(book.Has("XYZUSDT"))
	suite.InDelta(199.69, book.Wallet(), 1e-9)
}

// A position inside both triggers stays held.
func (suite *EngineTestSuite) TestHoldsPositionWithinTriggers() {
	m := &fakeMarket{
		tickers: []types.Ticker{},
		prices:  map[string]float64{"XYZUSDT": 10.2},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))
	suite.Require().NoError(book.Open(types.Position{
		Symbol: "XYZUSDT", EntryPrice: 10.0, Quantity: 1.0, OpenedAt: time.Now(),
	}, 10.0))

	eng := suite.newEngine(m, gateway.NewSimulatedGateway(m), book)

	eng.RunCycle(context.Background())

	suite.True(book.Has("XYZUSDT"))
	suite.NotContains(suite.categories(), events.CategorySellAttempt)
}

// A re-price failure leaves the position held this cycle; no forced exit
// on missing data.
func (suite *EngineTestSuite) TestPriceFetchFailureLeavesPositionHeld() {
	m := &fakeMarket{
		tickers: []types.Ticker{},
		priceErrs: map[string]error{
			"XYZUSDT": apperrors.New(apperrors.ErrCodeTransientFetch, "timeout"),
		},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))
	suite.Require().NoError(book.Open(types.Position{
		Symbol: "XYZUSDT", EntryPrice: 10.0, Quantity: 1.0, OpenedAt: time.Now(),
	}, 10.0))

	g := &fakeGateway{}
	eng := suite.newEngine(m, g, book)

	eng.RunCycle(context.Background())

	suite.True(book.Has("XYZUSDT"))
	suite.Empty(g.sellAttempts)
}

// A failed sell keeps the position for retry next cycle; no partial state.
func (suite *EngineTestSuite) TestSellFailureKeepsPosition() {
	m := &fakeMarket{
		tickers: []types.Ticker{},
		prices:  map[string]float64{"XYZUSDT": 10.31},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))
	suite.Require().NoError(book.Open(types.Position{
		Symbol: "XYZUSDT", EntryPrice: 10.0, Quantity: 1.0, OpenedAt: time.Now(),
	}, 10.0))

	g := &fakeGateway{
		sellErrs: map[string]error{
			"XYZUSDT": apperrors.New(apperrors.ErrCodeRejectedOrder, "rejected"),
		},
	}
	eng := suite.newEngine(m, g, book)

	eng.RunCycle(context.Background())

	suite.True(book.Has("XYZUSDT"))
	suite.InDelta(190.0, book.Wallet(), 1e-9)
	suite.Contains(suite.categories(), events.CategorySellFailure)
}

// Scenario D: a full ledger attempts zero buys regardless of the candidate
// list length.
func (suite *EngineTestSuite) TestFullLedgerAttemptsNoBuys() {
	m := &fakeMarket{
		tickers: []types.Ticker{
			{Symbol: "AAAUSDT", ChangePercent: "20.0", LastPrice: "1.0"},
			{Symbol: "BBBUSDT", ChangePercent: "15.0", LastPrice: "1.0"},
		},
		prices: map[string]float64{
			"P1USDT": 1.0, "P2USDT": 1.0, "P3USDT": 1.0, "P4USDT": 1.0, "P5USDT": 1.0,
		},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))

	for _, symbol := range []string{"P1USDT", "P2USDT", "P3USDT", "P4USDT", "P5USDT"} {
		suite.Require().NoError(book.Open(types.Position{
			Symbol: symbol, EntryPrice: 1.0, Quantity: 1.0, OpenedAt: time.Now(),
		}, 1.0))
	}

	g := &fakeGateway{}
	eng := suite.newEngine(m, g, book)

	eng.RunCycle(context.Background())

	suite.Empty(g.buyAttempts)
	suite.Equal(5, book.Count())
}

// Scenario E: a rejected buy for the top candidate does not stop the
// engine from evaluating the next candidate in the same cycle.
func (suite *EngineTestSuite) TestRejectedBuyProceedsToNextCandidate() {
	m := &fakeMarket{
		tickers: []types.Ticker{
			{Symbol: "AAAUSDT", ChangePercent: "9.0", LastPrice: "2.0"},
			{Symbol: "BBBUSDT", ChangePercent: "8.0", LastPrice: "4.0"},
		},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))

	g := &fakeGateway{
		buyErrs: map[string]error{
			"AAAUSDT": apperrors.New(apperrors.ErrCodeRejectedOrder, "min notional"),
		},
		buyFills: map[string]types.Fill{
			"BBBUSDT": {Price: 4.0, Quantity: 2.5, QuoteAmount: 10.0},
		},
	}
	eng := suite.newEngine(m, g, book)

	eng.RunCycle(context.Background())

	suite.Equal([]string{"AAAUSDT", "BBBUSDT"}, g.buyAttempts)
	suite.False(book.Has("AAAUSDT"))
	suite.True(book.Has("BBBUSDT"))
	suite.Contains(suite.categories(), events.CategoryBuyFailure)
	suite.Contains(suite.categories(), events.CategoryBuySuccess)
}

// Held symbols are skipped in the entry pass.
func (suite *EngineTestSuite) TestHeldCandidateSkipped() {
	m := &fakeMarket{
		tickers: []types.Ticker{
			{Symbol: "AAAUSDT", ChangePercent: "9.0", LastPrice: "2.0"},
		},
		prices: map[string]float64{"AAAUSDT": 2.0},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))
	suite.Require().NoError(book.Open(types.Position{
		Symbol: "AAAUSDT", EntryPrice: 2.0, Quantity: 5.0, OpenedAt: time.Now(),
	}, 10.0))

	g := &fakeGateway{}
	eng := suite.newEngine(m, g, book)

	eng.RunCycle(context.Background())

	suite.Empty(g.buyAttempts)
}

// An empty wallet refuses the buy before the gateway is touched.
func (suite *EngineTestSuite) TestInsufficientWalletRefusesBuy() {
	m := &fakeMarket{
		tickers: []types.Ticker{
			{Symbol: "AAAUSDT", ChangePercent: "9.0", LastPrice: "2.0"},
		},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(5.0))

	g := &fakeGateway{}
	eng := suite.newEngine(m, g, book)

	eng.RunCycle(context.Background())

	suite.Empty(g.buyAttempts)
	suite.Equal(0, book.Count())
	suite.InDelta(5.0, book.Wallet(), 1e-9)
	suite.Contains(suite.categories(), events.CategoryBuyFailure)
}

// A snapshot fetch failure yields zero buys and a scan error event; the
// cycle still completes with its summary.
func (suite *EngineTestSuite) TestSnapshotFailureIsNonFatal() {
	m := &fakeMarket{
		tickersErr: apperrors.New(apperrors.ErrCodeTransientFetch, "snapshot down"),
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.Some(200.0))

	g := &fakeGateway{}
	eng := suite.newEngine(m, g, book)

	eng.RunCycle(context.Background())

	suite.Empty(g.buyAttempts)

	cats := suite.categories()
	suite.Contains(cats, events.CategoryScanError)
	suite.Contains(cats, events.CategoryCycleSummary)
}

// Capacity freed by an exit is visible to the entry pass of the same cycle.
func (suite *EngineTestSuite) TestExitFreesCapacityForSameCycleEntry() {
	suite.cfg.MaxOpenPositions = 1

	m := &fakeMarket{
		tickers: []types.Ticker{
			{Symbol: "NEWUSDT", ChangePercent: "9.0", LastPrice: "5.0"},
		},
		prices: map[string]float64{"OLDUSDT": 10.31, "NEWUSDT": 5.0},
	}
	book := ledger.New(1, optional.Some(200.0))
	suite.Require().NoError(book.Open(types.Position{
		Symbol: "OLDUSDT", EntryPrice: 10.0, Quantity: 1.0, OpenedAt: time.Now(),
	}, 10.0))

	eng := suite.newEngine(m, gateway.NewSimulatedGateway(m), book)

	eng.RunCycle(context.Background())

	suite.False(book.Has("OLDUSDT"))
	suite.True(book.Has("NEWUSDT"))
	suite.Equal(1, book.Count())
}

// Real mode: no wallet accounting, positions still tracked.
func (suite *EngineTestSuite) TestRealModeSkipsWalletAccounting() {
	suite.cfg.Mode = config.ModeReal

	m := &fakeMarket{
		tickers: []types.Ticker{
			{Symbol: "AAAUSDT", ChangePercent: "9.0", LastPrice: "2.0"},
		},
	}
	book := ledger.New(suite.cfg.MaxOpenPositions, optional.None[float64]())

	g := &fakeGateway{
		buyFills: map[string]types.Fill{
			"AAAUSDT": {Price: 2.01, Quantity: 4.97, QuoteAmount: 10.0},
		},
	}
	eng := suite.newEngine(m, g, book)

	eng.RunCycle(context.Background())

	suite.True(book.Has("AAAUSDT"))

	snap := book.Snapshot()
	suite.Require().Len(snap, 1)
	// Recorded at the gateway fill price, not the scan quote
	suite.InDelta(2.01, snap[0].EntryPrice, 1e-9)
	suite.NotContains(suite.categories(), events.CategoryWallet)
}
