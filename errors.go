package papertrade

import (
	"errors"
	"fmt"
)

// Recoverable failures. The rebalancer recovers from these locally: the
// offending action is skipped and recorded in the cycle summary, the rest of
// the cycle continues.
var (
	// ErrNoPosition is returned when selling a ticker that has no open position.
	ErrNoPosition = errors.New("no open position")
	// ErrInsufficientCash is returned when a buy exceeds the available cash balance.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrMarketDataUnavailable is returned when the feed has no price for a ticker.
	ErrMarketDataUnavailable = errors.New("market data unavailable")
)

// StoreError wraps a durable-store failure during a commit. It is fatal for
// the remainder of a cycle: trades committed before the failure remain valid
// and durable, and the cycle aborts without attempting any rollback.
type StoreError struct {
	Op  string // the store operation that failed, e.g. "commit-trade"
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreError, unless it already is one.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// ConfigError reports an invalid configuration value. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config %s: %s", e.Field, e.Reason) }
