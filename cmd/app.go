// Package cmd implements the CLI application driving the paper-trading
// engine.
package cmd

import (
	"flag"

	"github.com/google/subcommands"

	"github.com/etnz/papertrade"
	"github.com/etnz/papertrade/feed"
	"github.com/etnz/papertrade/sqlstore"
)

// Commands lists the subcommands a main package registers.
var Commands = []subcommands.Command{
	&initCmd{},
	&runCmd{},
	&statusCmd{},
	&historyCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dbFile = flag.String("db", "papertrade.db", "Path to the ledger database file")
var portfolioName = flag.String("portfolio", "paper", "Name of the portfolio to operate on")
var initialCash = flag.Float64("initial-cash", 100_000, "Starting cash for a portfolio created on first use")
var currency = flag.String("currency", "USD", "Portfolio currency code")

var stopLoss = flag.Float64("stop-loss", -15, "Unrealized loss (%) that forces a full exit")
var tier2Gain = flag.Float64("tier2-gain", 15, "Unrealized gain (%) that triggers the first pyramid add")
var tier3Gain = flag.Float64("tier3-gain", 30, "Unrealized gain (%) that triggers the second pyramid add")
var pyramidFraction = flag.Float64("pyramid-fraction", 0.5, "Pyramid add size as a fraction of the original cost basis")
var positionSize = flag.Float64("position-size", 0.15, "New entry size as a fraction of total portfolio value")
var minScore = flag.Float64("min-score", 0, "Minimum qualifying candidate score")
var topK = flag.Int("top-k", 5, "Number of top candidates forming the target set")
var feePerTrade = flag.Float64("fee", 0, "Flat simulated fee charged on every trade")

var quoteURL = flag.String("quote-url", "", "Quote endpoint with a %s placeholder for the ticker; empty means no live prices")
var pricePath = flag.String("price-path", "$.price", "JSONPath of the price inside the quote response")
var rankURL = flag.String("rank-url", "", "Ranking endpoint returning scored candidates")
var itemsPath = flag.String("items-path", "$.items", "JSONPath of the candidate list inside the ranking response")
var tickerField = flag.String("ticker-field", "ticker", "Field holding the ticker in a candidate item")
var scoreField = flag.String("score-field", "score", "Field holding the score in a candidate item")

// engineConfig assembles and validates the engine configuration from flags.
func engineConfig() (papertrade.Config, error) {
	cfg := papertrade.DefaultConfig()
	cfg.PortfolioName = *portfolioName
	cfg.InitialCash = *initialCash
	cfg.Currency = *currency
	cfg.StopLossPct = papertrade.Percent(*stopLoss)
	cfg.PyramidTier1Pct = papertrade.Percent(*tier2Gain)
	cfg.PyramidTier2Pct = papertrade.Percent(*tier3Gain)
	cfg.PyramidFraction = *pyramidFraction
	cfg.PositionSizeFraction = *positionSize
	cfg.MinScore = *minScore
	cfg.TopK = *topK
	cfg.FeePerTrade = *feePerTrade
	return cfg, cfg.Validate()
}

// openLedger opens the database and resolves the portfolio named on the
// command line, creating it with the configured starting cash on first use.
func openLedger(cfg papertrade.Config) (*sqlstore.Store, papertrade.Portfolio, error) {
	store, err := sqlstore.Open(*dbFile)
	if err != nil {
		return nil, papertrade.Portfolio{}, err
	}
	p, err := store.GetOrCreatePortfolio(cfg.PortfolioName, papertrade.M(cfg.InitialCash, cfg.Currency))
	if err != nil {
		store.Close()
		return nil, papertrade.Portfolio{}, err
	}
	return store, p, nil
}

// priceFeed returns the configured quote client. With no -quote-url every
// lookup reports market data unavailable, so positions are valued at cost.
func priceFeed() papertrade.PriceFeed {
	if *quoteURL == "" {
		return feed.Static(nil)
	}
	return feed.NewClient(*quoteURL, *pricePath, *currency)
}
