package papertrade

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrPortfolioNotFound is returned for operations on an unknown portfolio id.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// PositionDelta carries the absolute post-trade state of the one position a
// trade touches. A zero Quantity means the position row is deleted.
type PositionDelta struct {
	Ticker   string
	Quantity Quantity
	AvgCost  Money
	OpenedAt time.Time
}

// Store is the durable ledger contract. CommitTrade is the only mutating
// operation and must be atomic: the trade append, the position mutation and
// the cash mutation either all persist or none do. Implementations serialize
// concurrent commits; reads may observe a consistent but not necessarily
// latest snapshot.
type Store interface {
	// GetOrCreatePortfolio is idempotent: a second call with the same name
	// returns the same portfolio and does not reset its cash.
	GetOrCreatePortfolio(name string, initialCash Money) (Portfolio, error)
	Portfolio(id string) (Portfolio, error)
	// Positions returns all open positions sorted by ticker.
	Positions(portfolioID string) ([]Position, error)
	Position(portfolioID, ticker string) (Position, bool, error)
	CashBalance(portfolioID string) (Money, error)
	// Trades returns the trade log, newest first. limit <= 0 returns all.
	Trades(portfolioID string, limit int) ([]Trade, error)
	CommitTrade(portfolioID string, t Trade, delta PositionDelta, cashDelta Money) error

	// Lock serializes a read-modify-write sequence ending in CommitTrade.
	// The Executor wraps every trade in it so concurrent callers can never
	// interleave between reading a position and committing its mutation.
	// Read-only callers (the Reporter) do not take it.
	Lock()
	Unlock()
}

// MemoryStore is a map-backed Store. It serializes commits with a mutex and
// is the store used by tests and by dry-run cycles.
type MemoryStore struct {
	txmu       sync.Mutex // serializes read-modify-write sequences, see Store.Lock
	mu         sync.RWMutex
	byName     map[string]string // portfolio name -> id
	portfolios map[string]Portfolio
	positions  map[string]map[string]Position // portfolioID -> ticker -> position
	trades     map[string][]Trade             // portfolioID -> append-only log
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byName:     make(map[string]string),
		portfolios: make(map[string]Portfolio),
		positions:  make(map[string]map[string]Position),
		trades:     make(map[string][]Trade),
	}
}

func (s *MemoryStore) Lock()   { s.txmu.Lock() }
func (s *MemoryStore) Unlock() { s.txmu.Unlock() }

func (s *MemoryStore) GetOrCreatePortfolio(name string, initialCash Money) (Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byName[name]; ok {
		return s.portfolios[id], nil
	}
	p := Portfolio{
		ID:          uuid.NewString(),
		Name:        name,
		InitialCash: initialCash,
		CashBalance: initialCash,
	}
	s.byName[name] = p.ID
	s.portfolios[p.ID] = p
	s.positions[p.ID] = make(map[string]Position)
	return p, nil
}

func (s *MemoryStore) Portfolio(id string) (Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[id]
	if !ok {
		return Portfolio{}, ErrPortfolioNotFound
	}
	return p, nil
}

func (s *MemoryStore) Positions(portfolioID string) ([]Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.positions[portfolioID]
	if !ok {
		return nil, ErrPortfolioNotFound
	}
	out := make([]Position, 0, len(rows))
	for _, pos := range rows {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (s *MemoryStore) Position(portfolioID, ticker string) (Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.positions[portfolioID]
	if !ok {
		return Position{}, false, ErrPortfolioNotFound
	}
	pos, ok := rows[ticker]
	return pos, ok, nil
}

func (s *MemoryStore) CashBalance(portfolioID string) (Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[portfolioID]
	if !ok {
		return Money{}, ErrPortfolioNotFound
	}
	return p.CashBalance, nil
}

func (s *MemoryStore) Trades(portfolioID string, limit int) ([]Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.portfolios[portfolioID]; !ok {
		return nil, ErrPortfolioNotFound
	}
	log := s.trades[portfolioID]
	out := make([]Trade, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		out = append(out, log[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CommitTrade(portfolioID string, t Trade, delta PositionDelta, cashDelta Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.portfolios[portfolioID]
	if !ok {
		return NewStoreError("commit-trade", ErrPortfolioNotFound)
	}
	newCash := p.CashBalance.Add(cashDelta)
	if newCash.IsNegative() {
		// the executor checks before committing; a negative balance here is
		// a lost-update and must not persist.
		return NewStoreError("commit-trade", ErrInsufficientCash)
	}
	if delta.Quantity.IsNegative() {
		return NewStoreError("commit-trade", errors.New("negative position quantity"))
	}
	if delta.Quantity.IsZero() {
		delete(s.positions[portfolioID], delta.Ticker)
	} else {
		s.positions[portfolioID][delta.Ticker] = Position{
			PortfolioID: portfolioID,
			Ticker:      delta.Ticker,
			Quantity:    delta.Quantity,
			AvgCost:     delta.AvgCost,
			OpenedAt:    delta.OpenedAt,
		}
	}
	p.CashBalance = newCash
	s.portfolios[portfolioID] = p
	s.trades[portfolioID] = append(s.trades[portfolioID], t)
	return nil
}

// SnapshotStore clones one portfolio's state from src into a fresh
// MemoryStore. A dry-run cycle runs against the clone, so it computes and
// reports trades without committing them anywhere durable.
func SnapshotStore(src Store, portfolioID string) (*MemoryStore, error) {
	p, err := src.Portfolio(portfolioID)
	if err != nil {
		return nil, err
	}
	positions, err := src.Positions(portfolioID)
	if err != nil {
		return nil, err
	}
	trades, err := src.Trades(portfolioID, 0)
	if err != nil {
		return nil, err
	}

	clone := NewMemoryStore()
	clone.byName[p.Name] = p.ID
	clone.portfolios[p.ID] = p
	rows := make(map[string]Position, len(positions))
	for _, pos := range positions {
		rows[pos.Ticker] = pos
	}
	clone.positions[p.ID] = rows
	// Trades() is newest first, the internal log is oldest first.
	log := make([]Trade, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		log = append(log, trades[i])
	}
	clone.trades[p.ID] = log
	return clone, nil
}
