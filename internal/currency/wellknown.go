package currency

// Well-known codes
const (
	BTC  Code = "BTC"
	ETH  Code = "ETH"
	LTC  Code = "LTC"
	BNB  Code = "BNB"
	USDT Code = "USDT"
	USDC Code = "USDC"
	USD  Code = "USD"
	EUR  Code = "EUR"
)

// DefaultRegistry returns a registry pre-populated with common currencies.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Crypto
	r.Register(Currency{Code: BTC, Name: "Bitcoin", Decimals: 8})
	r.Register(Currency{Code: ETH, Name: "Ethereum", Decimals: 8})
	r.Register(Currency{Code: LTC, Name: "Litecoin", Decimals: 8})
	r.Register(Currency{Code: BNB, Name: "BNB", Decimals: 8})

	// Stablecoins
	r.Register(Currency{Code: USDT, Name: "Tether USD", Decimals: 4})
	r.Register(Currency{Code: USDC, Name: "USD Coin", Decimals: 4})

	// Fiat
	r.Register(Currency{Code: USD, Name: "US Dollar", Decimals: 2})
	r.Register(Currency{Code: EUR, Name: "Euro", Decimals: 2})

	return r
}
