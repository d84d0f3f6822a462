// Package ledger owns the set of open positions and, in simulated mode, the
// wallet balance. All mutation happens on the scheduler's goroutine; any
// other goroutine reads through Snapshot, never through a live reference.
package ledger

import (
	"sort"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/sagecry/sagebot/internal/types"
	"github.com/sagecry/sagebot/pkg/errors"
)

// Ledger is the process-held aggregate trading state. Invariants: at most
// one position per symbol, at most maxOpen positions, and the wallet (when
// enabled) never goes negative — a buy is refused, not partially executed.
type Ledger struct {
	mu        sync.Mutex
	maxOpen   int
	positions map[string]types.Position

	walletEnabled bool
	wallet        decimal.Decimal
}

// New creates a ledger capped at maxOpen positions. initialWallet seeds the
// simulated wallet; pass None in real mode, where the balance is owned by
// the exchange and Debit/Credit become no-ops.
func New(maxOpen int, initialWallet optional.Option[float64]) *Ledger {
	l := &Ledger{
		maxOpen:   maxOpen,
		positions: make(map[string]types.Position),
	}

	if initialWallet.IsSome() {
		l.walletEnabled = true
		l.wallet = decimal.NewFromFloat(initialWallet.TakeOr(0))
	}

	return l
}

// Open inserts a position, debiting the wallet by cost when the wallet is
// enabled. The insert and the debit commit atomically: a duplicate symbol,
// a full ledger, or an insufficient wallet leaves the ledger unchanged.
func (l *Ledger) Open(pos types.Position, cost float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.positions[pos.Symbol]; held {
		return errors.Newf(errors.ErrCodeDuplicatePosition, "position for %s already open", pos.Symbol)
	}

	if len(l.positions) >= l.maxOpen {
		return errors.Newf(errors.ErrCodePositionLimit, "ledger already holds %d positions", l.maxOpen)
	}

	if l.walletEnabled {
		debit := decimal.NewFromFloat(cost)
		if debit.GreaterThan(l.wallet) {
			return errors.Newf(errors.ErrCodeInsufficientFunds,
				"wallet balance %s cannot cover %s", l.wallet.String(), debit.String())
		}

		l.wallet = l.wallet.Sub(debit)
	}

	l.positions[pos.Symbol] = pos

	return nil
}

// Close removes and returns the position for symbol so the caller can do
// profit/loss accounting. Sale proceeds are credited separately via Credit.
func (l *Ledger) Close(symbol string) (types.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, held := l.positions[symbol]
	if !held {
		return types.Position{}, errors.Newf(errors.ErrCodeNoSuchPosition, "no open position for %s", symbol)
	}

	delete(l.positions, symbol)

	return pos, nil
}

// Debit subtracts amount from the simulated wallet. Refused, leaving the
// wallet unchanged, if the balance cannot cover it. No-op in real mode.
func (l *Ledger) Debit(amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.walletEnabled {
		return nil
	}

	debit := decimal.NewFromFloat(amount)
	if debit.GreaterThan(l.wallet) {
		return errors.Newf(errors.ErrCodeInsufficientFunds,
			"wallet balance %s cannot cover %s", l.wallet.String(), debit.String())
	}

	l.wallet = l.wallet.Sub(debit)

	return nil
}

// Credit adds amount to the simulated wallet. No-op in real mode.
func (l *Ledger) Credit(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.walletEnabled {
		return
	}

	l.wallet = l.wallet.Add(decimal.NewFromFloat(amount))
}

// Count returns the number of open positions.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.positions)
}

// Has reports whether a position for symbol is open.
func (l *Ledger) Has(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, held := l.positions[symbol]

	return held
}

// WalletEnabled reports whether the ledger tracks a simulated wallet.
func (l *Ledger) WalletEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.walletEnabled
}

// Wallet returns the current simulated balance, or 0 in real mode.
func (l *Ledger) Wallet() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.wallet.InexactFloat64()
}

// Snapshot returns a point-in-time copy of all positions, sorted by symbol.
// Safe to call concurrently with scheduler mutation.
func (l *Ledger) Snapshot() []types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	return out
}
