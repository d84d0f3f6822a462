// Package engine contains the trading decision engine and the scheduler
// that drives it. The engine applies the buy and sell rules against the
// position ledger; the scheduler owns the run/stop state machine and the
// cycle timing.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sagecry/sagebot/internal/config"
	"github.com/sagecry/sagebot/internal/events"
	"github.com/sagecry/sagebot/internal/gateway"
	"github.com/sagecry/sagebot/internal/ledger"
	"github.com/sagecry/sagebot/internal/logger"
	"github.com/sagecry/sagebot/internal/market"
	"github.com/sagecry/sagebot/internal/metrics"
	"github.com/sagecry/sagebot/internal/scan"
	"github.com/sagecry/sagebot/internal/types"
)

// Engine applies the per-cycle trading rules: re-price and exit open
// positions first, then enter new ones while capacity allows. All ledger
// mutation happens on the calling goroutine; the engine is driven by one
// scheduler at a time.
type Engine struct {
	cfg    config.Config
	market market.Provider
	orders gateway.Gateway
	ledger *ledger.Ledger
	ranker *scan.Ranker
	sink   events.Sink
	log    *logger.Logger
}

// NewEngine wires a decision engine from its collaborators.
func NewEngine(
	cfg config.Config,
	marketProvider market.Provider,
	orders gateway.Gateway,
	book *ledger.Ledger,
	ranker *scan.Ranker,
	sink events.Sink,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cfg:    cfg,
		market: marketProvider,
		orders: orders,
		ledger: book,
		ranker: ranker,
		sink:   sink,
		log:    log,
	}
}

// RunCycle executes one full pass: exits before entries, so capacity freed
// by an exit is visible to the entry pass in the same cycle. A summary
// event closes the cycle.
func (e *Engine) RunCycle(ctx context.Context) {
	e.runExitPass(ctx)

	if e.ledger.Count() < e.cfg.MaxOpenPositions {
		e.runEntryPass(ctx)
	}

	e.emitSummary()
}

// runExitPass re-prices every open position and sells the ones crossing a
// profit or loss trigger. Errors are handled at per-symbol granularity: a
// failed fetch or a failed sell leaves that position held until the next
// cycle and never aborts the pass.
func (e *Engine) runExitPass(ctx context.Context) {
	for _, pos := range e.ledger.Snapshot() {
		price, err := e.market.GetPrice(ctx, pos.Symbol)
		if err != nil {
			e.sink.Emit(events.New(events.CategoryPositionStatus,
				"%s - price check failed, holding: %v", pos.Symbol, err))

			continue
		}

		changePct := pos.ChangePercent(price)

		e.sink.Emit(events.New(events.CategoryPositionStatus,
			"%s - entry: %.4f, current: %.4f, change: %.2f%%",
			pos.Symbol, pos.EntryPrice, price, changePct))

		if changePct >= e.cfg.SellProfitTrigger || changePct <= e.cfg.SellLossTrigger {
			e.sell(ctx, pos, changePct)
		}
	}
}

func (e *Engine) sell(ctx context.Context, pos types.Position, changePct float64) {
	e.sink.Emit(events.New(events.CategorySellAttempt,
		"sell triggered for %s (change %.2f%%), selling %.6f units", pos.Symbol, changePct, pos.Quantity))

	fill, err := e.orders.SellMarket(ctx, pos.Symbol, pos.Quantity)
	if err != nil {
		metrics.OrderFailuresTotal.WithLabelValues("sell").Inc()
		e.sink.Emit(events.New(events.CategorySellFailure, "sell of %s failed: %v", pos.Symbol, err))

		return
	}

	closed, err := e.ledger.Close(pos.Symbol)
	if err != nil {
		// Invariant guard: the position vanished between snapshot and close.
		// Log and skip rather than crash.
		e.log.Warn("sell filled but position missing from ledger",
			zap.String("symbol", pos.Symbol),
			zap.Error(err),
		)
		e.sink.Emit(events.New(events.CategorySellFailure, "sell of %s not recorded: %v", pos.Symbol, err))

		return
	}

	e.ledger.Credit(fill.QuoteAmount)

	pnl := fill.QuoteAmount - closed.EntryNotional()

	outcome := "profit"
	if pnl < 0 {
		outcome = "loss"
	}

	metrics.SellsTotal.WithLabelValues(pos.Symbol, outcome).Inc()
	e.sink.Emit(events.New(events.CategorySellSuccess,
		"sold %.6f %s at %.4f, p/l: %.2f", fill.Quantity, pos.Symbol, fill.Price, pnl))
}

// runEntryPass scans for candidates and buys the strongest unheld ones
// until capacity is reached or candidates are exhausted. One failed buy
// skips to the next candidate.
func (e *Engine) runEntryPass(ctx context.Context) {
	tickers, err := e.market.GetAllTickers(ctx)
	if err != nil {
		metrics.ScanErrorsTotal.Inc()
		e.sink.Emit(events.New(events.CategoryScanError, "ticker snapshot failed: %v", err))

		return
	}

	for _, candidate := range e.ranker.Rank(tickers, e.cfg.BuyTrigger) {
		if e.ledger.Count() >= e.cfg.MaxOpenPositions {
			break
		}

		if e.ledger.Has(candidate.Symbol) {
			continue
		}

		e.buy(ctx, candidate)
	}
}

func (e *Engine) buy(ctx context.Context, candidate types.Candidate) {
	// Refuse before touching the gateway when the simulated wallet cannot
	// cover the notional.
	if e.ledger.WalletEnabled() && e.ledger.Wallet() < e.cfg.TradeNotional {
		metrics.OrderFailuresTotal.WithLabelValues("buy").Inc()
		e.sink.Emit(events.New(events.CategoryBuyFailure,
			"insufficient wallet balance (%.2f) to buy %.2f of %s",
			e.ledger.Wallet(), e.cfg.TradeNotional, candidate.Symbol))

		return
	}

	e.sink.Emit(events.New(events.CategoryBuyAttempt,
		"buying %.2f of %s at ~%.4f", e.cfg.TradeNotional, candidate.Symbol, candidate.Price))

	fill, err := e.orders.BuyMarket(ctx, candidate.Symbol, e.cfg.TradeNotional)
	if err != nil {
		metrics.OrderFailuresTotal.WithLabelValues("buy").Inc()
		e.sink.Emit(events.New(events.CategoryBuyFailure, "buy of %s failed: %v", candidate.Symbol, err))

		return
	}

	// Record the gateway's actual fill, not the scan-time quote.
	pos := types.Position{
		Symbol:     candidate.Symbol,
		EntryPrice: fill.Price,
		Quantity:   fill.Quantity,
		OpenedAt:   time.Now(),
	}

	if err := e.ledger.Open(pos, fill.QuoteAmount); err != nil {
		metrics.OrderFailuresTotal.WithLabelValues("buy").Inc()
		e.sink.Emit(events.New(events.CategoryBuyFailure, "buy of %s refused: %v", candidate.Symbol, err))

		return
	}

	metrics.BuysTotal.WithLabelValues(candidate.Symbol).Inc()
	e.sink.Emit(events.New(events.CategoryBuySuccess,
		"bought %.6f %s at %.4f", fill.Quantity, candidate.Symbol, fill.Price))
}

func (e *Engine) emitSummary() {
	positions := e.ledger.Snapshot()

	if e.ledger.WalletEnabled() {
		metrics.WalletBalance.Set(e.ledger.Wallet())
		e.sink.Emit(events.New(events.CategoryWallet,
			"current wallet: %.2f %s", e.ledger.Wallet(), e.cfg.QuoteSuffix))
	}

	metrics.OpenPositions.Set(float64(len(positions)))

	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		symbols = append(symbols, fmt.Sprintf("%s (entry: %.4f)", pos.Symbol, pos.EntryPrice))
	}

	held := "none"
	if len(symbols) > 0 {
		held = strings.Join(symbols, ", ")
	}

	e.sink.Emit(events.New(events.CategoryCycleSummary,
		"open positions (%d): %s", len(positions), held))
}
