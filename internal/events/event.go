// Package events defines the structured event stream the trading core emits.
// The core has no dependency on any display or persistence technology; a
// collaborator subscribes through the Sink interface and renders or persists
// the entries.
package events

import (
	"fmt"
	"time"
)

// Category tags an event with the decision it describes.
type Category string

const (
	CategoryCore           Category = "core"
	CategoryScanResult     Category = "scan_result"
	CategoryScanError      Category = "scan_error"
	CategoryBuyAttempt     Category = "buy_attempt"
	CategoryBuySuccess     Category = "buy_success"
	CategoryBuyFailure     Category = "buy_failure"
	CategorySellAttempt    Category = "sell_attempt"
	CategorySellSuccess    Category = "sell_success"
	CategorySellFailure    Category = "sell_failure"
	CategoryPositionStatus Category = "position_status"
	CategoryCycleSummary   Category = "cycle_summary"
	CategoryWallet         Category = "wallet"
	CategoryFatalError     Category = "fatal_error"
)

// Event is a single structured log entry.
type Event struct {
	Category Category  `json:"category"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// New builds an event stamped with the current time.
func New(category Category, format string, args ...any) Event {
	return Event{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Time:     time.Now(),
	}
}

// Sink receives emitted events.
type Sink interface {
	// Emit delivers a single event. Implementations must be safe for
	// concurrent use; the scheduler and a foreground surface may emit
	// or read at the same time.
	Emit(event Event)
}
