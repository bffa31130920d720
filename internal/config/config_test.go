package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Arbitrage.MaxExtensions != 4 {
		t.Errorf("expected max_extensions 4, got %d", cfg.Arbitrage.MaxExtensions)
	}
	if cfg.Arbitrage.MaxSearchIterations != 1000 {
		t.Errorf("expected max_search_iterations 1000, got %d", cfg.Arbitrage.MaxSearchIterations)
	}
	if cfg.Arbitrage.PollInterval != 5*time.Second {
		t.Errorf("expected poll_interval 5s, got %v", cfg.Arbitrage.PollInterval)
	}
	if len(cfg.Exchanges) != 1 {
		t.Fatalf("expected one default exchange, got %d", len(cfg.Exchanges))
	}

	sim := cfg.Exchanges[0]
	if sim.Kind != KindSimulated || !sim.Active {
		t.Errorf("unexpected default exchange: %+v", sim)
	}
	if len(sim.Simulated.Books) != 3 {
		t.Errorf("expected 3 simulated books, got %d", len(sim.Simulated.Books))
	}
	if got := sim.BalancesDecimal()["USD"]; got.IntPart() != 1000 {
		t.Errorf("expected USD balance 1000, got %s", got)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
arbitrage:
  max_extensions: 2
  poll_interval: 2s
exchanges:
  - name: binance
    kind: binance
    active: true
    fee_rate: 0.001
    binance:
      assets: [BTC, ETH, USDT]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Arbitrage.MaxExtensions != 2 {
		t.Errorf("expected max_extensions 2, got %d", cfg.Arbitrage.MaxExtensions)
	}
	ex, ok := cfg.Exchange("binance")
	if !ok {
		t.Fatal("binance exchange not found")
	}
	if ex.Binance.BaseURL != "https://api.binance.com" {
		t.Errorf("expected default base url, got %q", ex.Binance.BaseURL)
	}
	if ex.Binance.DepthLimit != 20 {
		t.Errorf("expected default depth limit 20, got %d", ex.Binance.DepthLimit)
	}
	if len(ex.Binance.Assets) != 3 {
		t.Errorf("expected 3 assets, got %v", ex.Binance.Assets)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Arbitrage: ArbitrageConfig{MaxSearchIterations: 10, PollInterval: time.Second},
			Exchanges: []ExchangeConfig{{Name: "a", Kind: KindBinance}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no exchanges", func(c *Config) { c.Exchanges = nil }, true},
		{"duplicate exchange", func(c *Config) { c.Exchanges = append(c.Exchanges, c.Exchanges[0]) }, true},
		{"fee rate too high", func(c *Config) { c.Exchanges[0].FeeRate = 1 }, true},
		{"safety out of range", func(c *Config) { c.Arbitrage.SafetyPercent = 100 }, true},
		{"simulated without books", func(c *Config) { c.Exchanges[0].Kind = KindSimulated }, true},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true }, true},
		{"postgres without dsn", func(c *Config) { c.Postgres.Enabled = true }, true},
		{"unknown kind is allowed", func(c *Config) { c.Exchanges[0].Kind = "kraken" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
