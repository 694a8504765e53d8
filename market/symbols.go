package market

// SymbolMeta describes a tradable symbol.
type SymbolMeta struct {
	Name           string
	BaseAsset      string
	PricePrecision int32
}

var Symbols = map[string]SymbolMeta{
	"BTCUSDT": {
		Name:           "BTCUSDT",
		BaseAsset:      "BTC",
		PricePrecision: 2,
	},
}

// Lookup returns the metadata for name. Unknown symbols get a two-decimal
// default so message formatting never fails.
func Lookup(name string) (SymbolMeta, bool) {
	m, ok := Symbols[name]
	if !ok {
		return SymbolMeta{Name: name, BaseAsset: name, PricePrecision: 2}, false
	}
	return m, true
}
