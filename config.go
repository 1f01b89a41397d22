package papertrade

// Config holds the thresholds and sizing knobs of the engine. The zero value
// is not usable; start from DefaultConfig and override.
type Config struct {
	PortfolioName string
	InitialCash   float64
	Currency      string

	// StopLossPct is the unrealized loss that forces a full exit, e.g. -15.
	StopLossPct Percent
	// PyramidTier1Pct is the gain that triggers the tier-2 add, e.g. +15.
	PyramidTier1Pct Percent
	// PyramidTier2Pct is the gain that triggers the tier-3 add, e.g. +30.
	PyramidTier2Pct Percent
	// PyramidFraction sizes a pyramid add as a fraction of the original
	// cost basis, e.g. 0.5.
	PyramidFraction float64
	// PositionSizeFraction sizes a new entry as a fraction of total
	// portfolio value, e.g. 0.15.
	PositionSizeFraction float64

	// MinScore is the minimum qualifying candidate score.
	MinScore float64
	// TopK caps how many qualifying candidates form the target set.
	TopK int

	// FeePerTrade is a flat simulated fee charged on every trade.
	FeePerTrade float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		PortfolioName:        "paper",
		InitialCash:          100_000,
		Currency:             "USD",
		StopLossPct:          -15,
		PyramidTier1Pct:      15,
		PyramidTier2Pct:      30,
		PyramidFraction:      0.5,
		PositionSizeFraction: 0.15,
		MinScore:             0,
		TopK:                 5,
		FeePerTrade:          0,
	}
}

// Validate checks the configuration for correctness. It returns a
// *ConfigError describing the first invalid field.
func (c Config) Validate() error {
	if c.PortfolioName == "" {
		return &ConfigError{Field: "PortfolioName", Reason: "must not be empty"}
	}
	if c.InitialCash < 0 {
		return &ConfigError{Field: "InitialCash", Reason: "must not be negative"}
	}
	if c.Currency == "" {
		return &ConfigError{Field: "Currency", Reason: "must not be empty"}
	}
	if c.StopLossPct >= 0 {
		return &ConfigError{Field: "StopLossPct", Reason: "must be negative"}
	}
	if c.PyramidTier1Pct <= 0 {
		return &ConfigError{Field: "PyramidTier1Pct", Reason: "must be positive"}
	}
	if c.PyramidTier2Pct <= c.PyramidTier1Pct {
		return &ConfigError{Field: "PyramidTier2Pct", Reason: "must be greater than PyramidTier1Pct"}
	}
	if c.PyramidFraction <= 0 || c.PyramidFraction > 1 {
		return &ConfigError{Field: "PyramidFraction", Reason: "must be in (0, 1]"}
	}
	if c.PositionSizeFraction <= 0 || c.PositionSizeFraction > 1 {
		return &ConfigError{Field: "PositionSizeFraction", Reason: "must be in (0, 1]"}
	}
	if c.TopK < 1 {
		return &ConfigError{Field: "TopK", Reason: "must be at least 1"}
	}
	if c.FeePerTrade < 0 {
		return &ConfigError{Field: "FeePerTrade", Reason: "must not be negative"}
	}
	return nil
}

// Fee returns the flat per-trade fee as Money in the configured currency.
func (c Config) Fee() Money { return M(c.FeePerTrade, c.Currency) }
