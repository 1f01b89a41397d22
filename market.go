package papertrade

import "context"

// Candidate is one entry of the ranked buy-candidate list. Higher scores are
// more desirable; ties keep the ranker's input order.
type Candidate struct {
	Ticker string  `json:"ticker"`
	Score  float64 `json:"score"`
}

// Ranker produces the ordered candidate list. Its scoring algorithm is an
// external concern; only the ordering contract matters here.
type Ranker interface {
	Rank(ctx context.Context) ([]Candidate, error)
}

// PriceFeed supplies the current price for a ticker. A missing price is
// reported as ErrMarketDataUnavailable and makes the engine skip that
// ticker's action for the cycle, never abort the cycle.
type PriceFeed interface {
	Price(ctx context.Context, ticker string) (Money, error)
}

// TopCandidates filters candidates to those meeting the minimum qualifying
// score and keeps the first k, preserving rank order.
func TopCandidates(candidates []Candidate, minScore float64, k int) []Candidate {
	out := make([]Candidate, 0, k)
	for _, c := range candidates {
		if c.Score < minScore {
			continue
		}
		out = append(out, c)
		if len(out) == k {
			break
		}
	}
	return out
}
