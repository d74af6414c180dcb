package catalog

// Package is a purchasable token bundle. Prices are stored in minor
// units (paise) to keep amount comparisons exact.
type Package struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Tokens     int64  `json:"tokens"`
	PriceMinor int64  `json:"price_minor"`
	Currency   string `json:"currency"`
}

var packages = []Package{
	{ID: "basic", Name: "Basic", Tokens: 10_000, PriceMinor: 49_900, Currency: "INR"},
	{ID: "pro", Name: "Pro", Tokens: 30_000, PriceMinor: 129_900, Currency: "INR"},
	{ID: "elite", Name: "Elite", Tokens: 100_000, PriceMinor: 349_900, Currency: "INR"},
}

// Get returns the package with the given id.
func Get(id string) (Package, bool) {
	for _, p := range packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

// All returns every purchasable package in display order.
func All() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}
