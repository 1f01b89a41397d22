// Package sqlstore is a SQLite-backed implementation of the papertrade
// Store contract. Every CommitTrade runs in one transaction so the trade
// row, the position row and the cash balance move together or not at all.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/etnz/papertrade"
)

const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	currency     TEXT NOT NULL,
	initial_cash TEXT NOT NULL,
	cash_balance TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS positions (
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
	ticker       TEXT NOT NULL,
	quantity     TEXT NOT NULL,
	avg_cost     TEXT NOT NULL,
	opened_at    TEXT NOT NULL,
	PRIMARY KEY (portfolio_id, ticker)
);
CREATE TABLE IF NOT EXISTS trades (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
	ticker       TEXT NOT NULL,
	side         TEXT NOT NULL,
	quantity     TEXT NOT NULL,
	price        TEXT NOT NULL,
	fees         TEXT NOT NULL,
	pnl          TEXT,
	currency     TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	executed_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_portfolio ON trades(portfolio_id, seq);
`

// Store persists the ledger in a single SQLite file. Amounts are stored as
// decimal strings in TEXT columns, never as REAL, so values round-trip
// exactly.
type Store struct {
	db   *sql.DB
	txmu sync.Mutex
}

// Open opens (creating if needed) the ledger database at path and
// bootstraps the schema.
func Open(path string) (*Store, error) {
	// _txlock=immediate makes every transaction BEGIN IMMEDIATE, taking the
	// write lock up front instead of failing on upgrade mid-commit.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_fk=1&_txlock=immediate")
	if err != nil {
		return nil, papertrade.NewStoreError("open", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, papertrade.NewStoreError("migrate", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Lock()   { s.txmu.Lock() }
func (s *Store) Unlock() { s.txmu.Unlock() }

func (s *Store) GetOrCreatePortfolio(name string, initialCash papertrade.Money) (papertrade.Portfolio, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return papertrade.Portfolio{}, papertrade.NewStoreError("get-or-create", err)
	}
	defer tx.Rollback()

	p, err := scanPortfolio(tx.QueryRow(
		`SELECT id, name, currency, initial_cash, cash_balance FROM portfolios WHERE name = ?`, name))
	if err == nil {
		return p, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return papertrade.Portfolio{}, papertrade.NewStoreError("get-or-create", err)
	}

	p = papertrade.Portfolio{
		ID:          uuid.NewString(),
		Name:        name,
		InitialCash: initialCash,
		CashBalance: initialCash,
	}
	_, err = tx.Exec(
		`INSERT INTO portfolios (id, name, currency, initial_cash, cash_balance) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, initialCash.Currency(), initialCash.Amount().String(), initialCash.Amount().String())
	if err != nil {
		return papertrade.Portfolio{}, papertrade.NewStoreError("get-or-create", err)
	}
	return p, tx.Commit()
}

func (s *Store) Portfolio(id string) (papertrade.Portfolio, error) {
	p, err := scanPortfolio(s.db.QueryRow(
		`SELECT id, name, currency, initial_cash, cash_balance FROM portfolios WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return papertrade.Portfolio{}, papertrade.ErrPortfolioNotFound
	}
	if err != nil {
		return papertrade.Portfolio{}, papertrade.NewStoreError("portfolio", err)
	}
	return p, nil
}

func (s *Store) Positions(portfolioID string) ([]papertrade.Position, error) {
	if _, err := s.Portfolio(portfolioID); err != nil {
		return nil, err
	}
	cur, err := s.portfolioCurrency(portfolioID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT ticker, quantity, avg_cost, opened_at FROM positions WHERE portfolio_id = ? ORDER BY ticker`,
		portfolioID)
	if err != nil {
		return nil, papertrade.NewStoreError("positions", err)
	}
	defer rows.Close()

	var out []papertrade.Position
	for rows.Next() {
		pos, err := scanPosition(rows, portfolioID, cur)
		if err != nil {
			return nil, papertrade.NewStoreError("positions", err)
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, papertrade.NewStoreError("positions", err)
	}
	return out, nil
}

func (s *Store) Position(portfolioID, ticker string) (papertrade.Position, bool, error) {
	if _, err := s.Portfolio(portfolioID); err != nil {
		return papertrade.Position{}, false, err
	}
	cur, err := s.portfolioCurrency(portfolioID)
	if err != nil {
		return papertrade.Position{}, false, err
	}
	row := s.db.QueryRow(
		`SELECT ticker, quantity, avg_cost, opened_at FROM positions WHERE portfolio_id = ? AND ticker = ?`,
		portfolioID, ticker)
	pos, err := scanPosition(row, portfolioID, cur)
	if errors.Is(err, sql.ErrNoRows) {
		return papertrade.Position{}, false, nil
	}
	if err != nil {
		return papertrade.Position{}, false, papertrade.NewStoreError("position", err)
	}
	return pos, true, nil
}

func (s *Store) CashBalance(portfolioID string) (papertrade.Money, error) {
	p, err := s.Portfolio(portfolioID)
	if err != nil {
		return papertrade.Money{}, err
	}
	return p.CashBalance, nil
}

func (s *Store) Trades(portfolioID string, limit int) ([]papertrade.Trade, error) {
	if _, err := s.Portfolio(portfolioID); err != nil {
		return nil, err
	}
	q := `SELECT id, ticker, side, quantity, price, fees, pnl, currency, reason, executed_at
		FROM trades WHERE portfolio_id = ? ORDER BY seq DESC`
	args := []any{portfolioID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, papertrade.NewStoreError("trades", err)
	}
	defer rows.Close()

	var out []papertrade.Trade
	for rows.Next() {
		var t papertrade.Trade
		var side, qty, price, fees, cur, ts string
		var pnl sql.NullString
		if err := rows.Scan(&t.ID, &t.Ticker, &side, &qty, &price, &fees, &pnl, &cur, &t.Reason, &ts); err != nil {
			return nil, papertrade.NewStoreError("trades", err)
		}
		t.PortfolioID = portfolioID
		t.Side, err = papertrade.ParseSide(side)
		if err != nil {
			return nil, papertrade.NewStoreError("trades", err)
		}
		t.Quantity, err = parseQuantity(qty)
		if err != nil {
			return nil, papertrade.NewStoreError("trades", err)
		}
		t.Price, err = parseMoney(price, cur)
		if err != nil {
			return nil, papertrade.NewStoreError("trades", err)
		}
		t.Fees, err = parseMoney(fees, cur)
		if err != nil {
			return nil, papertrade.NewStoreError("trades", err)
		}
		if pnl.Valid {
			t.PnL, err = parseMoney(pnl.String, cur)
			if err != nil {
				return nil, papertrade.NewStoreError("trades", err)
			}
		}
		t.Time, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, papertrade.NewStoreError("trades", fmt.Errorf("invalid trade time %q: %w", ts, err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, papertrade.NewStoreError("trades", err)
	}
	return out, nil
}

func (s *Store) CommitTrade(portfolioID string, t papertrade.Trade, delta papertrade.PositionDelta, cashDelta papertrade.Money) error {
	if delta.Quantity.IsNegative() {
		return papertrade.NewStoreError("commit-trade", errors.New("negative position quantity"))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return papertrade.NewStoreError("commit-trade", err)
	}
	defer tx.Rollback()

	p, err := scanPortfolio(tx.QueryRow(
		`SELECT id, name, currency, initial_cash, cash_balance FROM portfolios WHERE id = ?`, portfolioID))
	if errors.Is(err, sql.ErrNoRows) {
		return papertrade.NewStoreError("commit-trade", papertrade.ErrPortfolioNotFound)
	}
	if err != nil {
		return papertrade.NewStoreError("commit-trade", err)
	}
	newCash := p.CashBalance.Add(cashDelta)
	if newCash.IsNegative() {
		return papertrade.NewStoreError("commit-trade", papertrade.ErrInsufficientCash)
	}

	var pnl any // NULL for buys
	if t.Side == papertrade.Sell {
		pnl = t.PnL.Amount().String()
	}
	_, err = tx.Exec(
		`INSERT INTO trades (id, portfolio_id, ticker, side, quantity, price, fees, pnl, currency, reason, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, portfolioID, t.Ticker, string(t.Side),
		t.Quantity.Value().String(), t.Price.Amount().String(), t.Fees.Amount().String(),
		pnl, t.Price.Currency(), t.Reason, t.Time.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return papertrade.NewStoreError("commit-trade", err)
	}

	if delta.Quantity.IsZero() {
		_, err = tx.Exec(`DELETE FROM positions WHERE portfolio_id = ? AND ticker = ?`,
			portfolioID, delta.Ticker)
	} else {
		_, err = tx.Exec(
			`INSERT INTO positions (portfolio_id, ticker, quantity, avg_cost, opened_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(portfolio_id, ticker) DO UPDATE SET quantity = excluded.quantity, avg_cost = excluded.avg_cost`,
			portfolioID, delta.Ticker,
			delta.Quantity.Value().String(), delta.AvgCost.Amount().String(),
			delta.OpenedAt.UTC().Format(time.RFC3339Nano))
	}
	if err != nil {
		return papertrade.NewStoreError("commit-trade", err)
	}

	_, err = tx.Exec(`UPDATE portfolios SET cash_balance = ? WHERE id = ?`,
		newCash.Amount().String(), portfolioID)
	if err != nil {
		return papertrade.NewStoreError("commit-trade", err)
	}
	if err := tx.Commit(); err != nil {
		return papertrade.NewStoreError("commit-trade", err)
	}
	return nil
}

func (s *Store) portfolioCurrency(portfolioID string) (string, error) {
	var cur string
	err := s.db.QueryRow(`SELECT currency FROM portfolios WHERE id = ?`, portfolioID).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return "", papertrade.ErrPortfolioNotFound
	}
	if err != nil {
		return "", papertrade.NewStoreError("portfolio", err)
	}
	return cur, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanPortfolio(row rowScanner) (papertrade.Portfolio, error) {
	var p papertrade.Portfolio
	var cur, initial, balance string
	if err := row.Scan(&p.ID, &p.Name, &cur, &initial, &balance); err != nil {
		return papertrade.Portfolio{}, err
	}
	var err error
	if p.InitialCash, err = parseMoney(initial, cur); err != nil {
		return papertrade.Portfolio{}, err
	}
	if p.CashBalance, err = parseMoney(balance, cur); err != nil {
		return papertrade.Portfolio{}, err
	}
	return p, nil
}

func scanPosition(row rowScanner, portfolioID, cur string) (papertrade.Position, error) {
	var qty, cost, opened string
	pos := papertrade.Position{PortfolioID: portfolioID}
	if err := row.Scan(&pos.Ticker, &qty, &cost, &opened); err != nil {
		return papertrade.Position{}, err
	}
	var err error
	if pos.Quantity, err = parseQuantity(qty); err != nil {
		return papertrade.Position{}, err
	}
	if pos.AvgCost, err = parseMoney(cost, cur); err != nil {
		return papertrade.Position{}, err
	}
	if pos.OpenedAt, err = time.Parse(time.RFC3339Nano, opened); err != nil {
		return papertrade.Position{}, fmt.Errorf("invalid opened_at %q: %w", opened, err)
	}
	return pos, nil
}

func parseMoney(s, cur string) (papertrade.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return papertrade.Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return papertrade.M(d, cur), nil
}

func parseQuantity(s string) (papertrade.Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return papertrade.Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return papertrade.Q(d), nil
}
