// Package scan ranks a market snapshot into buy candidates.
package scan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sagecry/sagebot/internal/events"
	"github.com/sagecry/sagebot/internal/types"
)

// TopCandidates bounds how many buys one cycle can attempt. It does not
// bound how many positions the ledger can hold.
const TopCandidates = 5

// Ranker filters and orders ticker snapshots into buy candidates.
type Ranker struct {
	quoteSuffix string
	sink        events.Sink
}

// NewRanker creates a ranker that keeps only instruments quoted in
// quoteSuffix and reports scan results to sink.
func NewRanker(quoteSuffix string, sink events.Sink) *Ranker {
	return &Ranker{
		quoteSuffix: quoteSuffix,
		sink:        sink,
	}
}

// Rank returns the top candidates whose 24h change is at least buyTrigger,
// ordered by descending change. Ties keep the original snapshot order since
// no secondary signal exists. Malformed ticker entries are skipped
// individually and never abort the scan.
func (r *Ranker) Rank(tickers []types.Ticker, buyTrigger float64) []types.Candidate {
	candidates := make([]types.Candidate, 0)

	for _, ticker := range tickers {
		if !strings.HasSuffix(ticker.Symbol, r.quoteSuffix) {
			continue
		}

		changePct, err := strconv.ParseFloat(ticker.ChangePercent, 64)
		if err != nil {
			continue
		}

		if changePct < buyTrigger {
			continue
		}

		price, err := strconv.ParseFloat(ticker.LastPrice, 64)
		if err != nil {
			continue
		}

		candidates = append(candidates, types.Candidate{
			Symbol:        ticker.Symbol,
			ChangePercent: changePct,
			Price:         price,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ChangePercent > candidates[j].ChangePercent
	})

	if len(candidates) > TopCandidates {
		candidates = candidates[:TopCandidates]
	}

	r.sink.Emit(events.New(events.CategoryScanResult, "top gainers: %s", summarize(candidates)))

	return candidates
}

func summarize(candidates []types.Candidate) string {
	if len(candidates) == 0 {
		return "none"
	}

	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s (%.2f%%)", c.Symbol, c.ChangePercent))
	}

	return strings.Join(parts, ", ")
}
