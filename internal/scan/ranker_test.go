package scan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sagecry/sagebot/internal/events"
	"github.com/sagecry/sagebot/internal/types"
)

type RankerTestSuite struct {
	suite.Suite

	ring   *events.RingSink
	ranker *Ranker
}

func TestRankerSuite(t *testing.T) {
	suite.Run(t, new(RankerTestSuite))
}

func (suite *RankerTestSuite) SetupTest() {
	suite.ring = events.NewRingSink(10)
	suite.ranker = NewRanker("USDT", suite.ring)
}

func (suite *RankerTestSuite) TestFiltersByQuoteSuffixAndTrigger() {
	tickers := []types.Ticker{
		{Symbol: "AAAUSDT", ChangePercent: "7.5", LastPrice: "10.0"},
		{Symbol: "BBBBTC", ChangePercent: "20.0", LastPrice: "1.0"},
		{Symbol: "CCCUSDT", ChangePercent: "5.9", LastPrice: "2.0"},
		{Symbol: "DDDUSDT", ChangePercent: "6.0", LastPrice: "3.0"},
	}

	candidates := suite.ranker.Rank(tickers, 6.0)
	suite.Require().Len(candidates, 2)

	for _, c := range candidates {
		suite.True(strings.HasSuffix(c.Symbol, "USDT"))
		suite.GreaterOrEqual(c.ChangePercent, 6.0)
	}
}

func (suite *RankerTestSuite) TestOrderedDescendingByChange() {
	tickers := []types.Ticker{
		{Symbol: "AAAUSDT", ChangePercent: "7.0", LastPrice: "1.0"},
		{Symbol: "BBBUSDT", ChangePercent: "12.0", LastPrice: "1.0"},
		{Symbol: "CCCUSDT", ChangePercent: "9.5", LastPrice: "1.0"},
	}

	candidates := suite.ranker.Rank(tickers, 6.0)
	suite.Require().Len(candidates, 3)
	suite.Equal("BBBUSDT", candidates[0].Symbol)
	suite.Equal("CCCUSDT", candidates[1].Symbol)
	suite.Equal("AAAUSDT", candidates[2].Symbol)
}

func (suite *RankerTestSuite) TestTiesKeepSnapshotOrder() {
	tickers := []types.Ticker{
		{Symbol: "AAAUSDT", ChangePercent: "8.0", LastPrice: "1.0"},
		{Symbol: "BBBUSDT", ChangePercent: "8.0", LastPrice: "1.0"},
		{Symbol: "CCCUSDT", ChangePercent: "8.0", LastPrice: "1.0"},
	}

	candidates := suite.ranker.Rank(tickers, 6.0)
	suite.Require().Len(candidates, 3)
	suite.Equal("AAAUSDT", candidates[0].Symbol)
	suite.Equal("BBBUSDT", candidates[1].Symbol)
	suite.Equal("CCCUSDT", candidates[2].Symbol)
}

func (suite *RankerTestSuite) TestTruncatesToTopFive() {
	tickers := make([]types.Ticker, 0, 8)
	for _, t := range []struct {
		symbol string
		change string
	}{
		{"AAAUSDT", "7.0"}, {"BBBUSDT", "8.0"}, {"CCCUSDT", "9.0"},
		{"DDDUSDT", "10.0"}, {"EEEUSDT", "11.0"}, {"FFFUSDT", "12.0"},
		{"GGGUSDT", "13.0"}, {"HHHUSDT", "14.0"},
	} {
		tickers = append(tickers, types.Ticker{Symbol: t.symbol, ChangePercent: t.change, LastPrice: "1.0"})
	}

	candidates := suite.ranker.Rank(tickers, 6.0)
	suite.Len(candidates, TopCandidates)
	suite.Equal("HHHUSDT", candidates[0].Symbol)
	suite.Equal("DDDUSDT", candidates[4].Symbol)
}

func (suite *RankerTestSuite) TestMalformedEntriesSkipped() {
	tickers := []types.Ticker{
		{Symbol: "AAAUSDT", ChangePercent: "garbage", LastPrice: "1.0"},
		{Symbol: "BBBUSDT", ChangePercent: "8.0", LastPrice: "garbage"},
		{Symbol: "CCCUSDT", ChangePercent: "8.0", LastPrice: "2.0"},
	}

	candidates := suite.ranker.Rank(tickers, 6.0)
	suite.Require().Len(candidates, 1)
	suite.Equal("CCCUSDT", candidates[0].Symbol)
}

func (suite *RankerTestSuite) TestEmitsScanResultEvent() {
	tickers := []types.Ticker{
		{Symbol: "AAAUSDT", ChangePercent: "7.5", LastPrice: "10.0"},
	}

	suite.ranker.Rank(tickers, 6.0)

	snap := suite.ring.Snapshot()
	suite.Require().Len(snap, 1)
	suite.Equal(events.CategoryScanResult, snap[0].Category)
	suite.Contains(snap[0].Message, "AAAUSDT (7.50%)")
}

func (suite *RankerTestSuite) TestEmptySnapshotYieldsNoCandidates() {
	candidates := suite.ranker.Rank(nil, 6.0)
	suite.Empty(candidates)

	snap := suite.ring.Snapshot()
	suite.Require().Len(snap, 1)
	suite.Contains(snap[0].Message, "none")
}
