// Package feed provides HTTP clients for the engine's external
// collaborators: the market data feed and the candidate ranker. Both speak
// plain JSON over GET; response fields are located with jsonpath so the
// clients adapt to a provider's shape through configuration, not code.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/etnz/papertrade"
)

// jwget performs an HTTP GET request and unmarshals the JSON response into
// the provided data structure.
func jwget(ctx context.Context, client *http.Client, addr string, data interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

// jfloat coerces a jsonpath result into a float64. Wildcard paths come back
// as a list of one answer; numbers sometimes come back as strings.
func jfloat(jval any) (float64, bool) {
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return 0, false
		}
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Client is a PriceFeed over a JSON HTTP quote endpoint.
type Client struct {
	client *http.Client
	// QuoteURL is the endpoint with a %s placeholder for the ticker, e.g.
	// "https://quotes.example.com/last?symbol=%s".
	QuoteURL string
	// PricePath locates the price in the response, e.g. "$.quote.last".
	PricePath string
	// Currency labels the returned prices.
	Currency string
}

// NewClient creates a price feed client against the given quote endpoint.
func NewClient(quoteURL, pricePath, currency string) *Client {
	return &Client{
		client:    new(http.Client),
		QuoteURL:  quoteURL,
		PricePath: pricePath,
		Currency:  currency,
	}
}

// Price fetches the current price for a ticker. Transport failures, missing
// fields and non-positive quotes all come back as ErrMarketDataUnavailable:
// the caller skips that ticker for the cycle, never aborts.
func (c *Client) Price(ctx context.Context, ticker string) (papertrade.Money, error) {
	addr := fmt.Sprintf(c.QuoteURL, ticker)
	var jobj any
	if err := jwget(ctx, c.client, addr, &jobj); err != nil {
		log.Printf("price fetch %s: %v", ticker, err)
		return papertrade.Money{}, fmt.Errorf("price for %q: %w", ticker, papertrade.ErrMarketDataUnavailable)
	}
	jval, err := jsonpath.Get(c.PricePath, jobj)
	if err != nil {
		return papertrade.Money{}, fmt.Errorf("price for %q: path %q: %w", ticker, c.PricePath, papertrade.ErrMarketDataUnavailable)
	}
	val, ok := jfloat(jval)
	if !ok || val <= 0 {
		return papertrade.Money{}, fmt.Errorf("price for %q: no usable quote: %w", ticker, papertrade.ErrMarketDataUnavailable)
	}
	return papertrade.M(val, c.Currency), nil
}

// RankerClient fetches the ordered candidate list from a JSON HTTP endpoint.
type RankerClient struct {
	client *http.Client
	// RankURL is the endpoint serving the ranked candidates.
	RankURL string
	// ItemsPath locates the candidate array, e.g. "$.candidates".
	ItemsPath string
	// TickerField and ScoreField name the fields of each candidate object.
	TickerField string
	ScoreField  string
}

// NewRankerClient creates a ranker client against the given endpoint.
func NewRankerClient(rankURL, itemsPath, tickerField, scoreField string) *RankerClient {
	return &RankerClient{
		client:      new(http.Client),
		RankURL:     rankURL,
		ItemsPath:   itemsPath,
		TickerField: tickerField,
		ScoreField:  scoreField,
	}
}

// Rank fetches the candidate list, preserving the provider's order. Entries
// without a usable ticker or score are dropped with a log line.
func (c *RankerClient) Rank(ctx context.Context) ([]papertrade.Candidate, error) {
	var jobj any
	if err := jwget(ctx, c.client, c.RankURL, &jobj); err != nil {
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}
	jval, err := jsonpath.Get(c.ItemsPath, jobj)
	if err != nil {
		return nil, fmt.Errorf("locating candidates at %q: %w", c.ItemsPath, err)
	}
	items, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("candidates at %q: not a list", c.ItemsPath)
	}

	candidates := make([]papertrade.Candidate, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			log.Printf("candidate %d: not an object, dropped", i)
			continue
		}
		ticker, _ := obj[c.TickerField].(string)
		score, okScore := jfloat(obj[c.ScoreField])
		if ticker == "" || !okScore {
			log.Printf("candidate %d: missing %q or %q, dropped", i, c.TickerField, c.ScoreField)
			continue
		}
		candidates = append(candidates, papertrade.Candidate{Ticker: ticker, Score: score})
	}
	return candidates, nil
}

// Static is a fixed in-memory PriceFeed, for tests and offline runs.
type Static map[string]float64

func (s Static) Price(_ context.Context, ticker string) (papertrade.Money, error) {
	v, ok := s[ticker]
	if !ok || v <= 0 {
		return papertrade.Money{}, fmt.Errorf("price for %q: %w", ticker, papertrade.ErrMarketDataUnavailable)
	}
	return papertrade.M(v, "USD"), nil
}

// StaticRanker is a fixed ordered candidate list, for tests and offline runs.
type StaticRanker []papertrade.Candidate

func (r StaticRanker) Rank(context.Context) ([]papertrade.Candidate, error) { return r, nil }
