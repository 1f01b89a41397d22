package papertrade

import (
	"errors"
	"testing"
)

func TestConfig_DefaultsAreValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"empty name", func(c *Config) { c.PortfolioName = "" }, "PortfolioName"},
		{"negative initial cash", func(c *Config) { c.InitialCash = -1 }, "InitialCash"},
		{"empty currency", func(c *Config) { c.Currency = "" }, "Currency"},
		{"zero stop-loss", func(c *Config) { c.StopLossPct = 0 }, "StopLossPct"},
		{"positive stop-loss", func(c *Config) { c.StopLossPct = 10 }, "StopLossPct"},
		{"zero tier-1", func(c *Config) { c.PyramidTier1Pct = 0 }, "PyramidTier1Pct"},
		{"tier-2 below tier-1", func(c *Config) { c.PyramidTier2Pct = 10 }, "PyramidTier2Pct"},
		{"tier-2 equals tier-1", func(c *Config) { c.PyramidTier2Pct = c.PyramidTier1Pct }, "PyramidTier2Pct"},
		{"zero pyramid fraction", func(c *Config) { c.PyramidFraction = 0 }, "PyramidFraction"},
		{"pyramid fraction above one", func(c *Config) { c.PyramidFraction = 1.5 }, "PyramidFraction"},
		{"zero position size", func(c *Config) { c.PositionSizeFraction = 0 }, "PositionSizeFraction"},
		{"position size above one", func(c *Config) { c.PositionSizeFraction = 2 }, "PositionSizeFraction"},
		{"zero top-k", func(c *Config) { c.TopK = 0 }, "TopK"},
		{"negative fee", func(c *Config) { c.FeePerTrade = -1 }, "FeePerTrade"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("want a config error, got nil")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %T, want *ConfigError", err)
			}
			if ce.Field != tc.wantField {
				t.Errorf("field = %q, want %q", ce.Field, tc.wantField)
			}
		})
	}
}
