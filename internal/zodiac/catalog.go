// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zodiac

// CatalogEntry maps a canonical body key to the identifier the ephemeris
// provider knows it by.
type CatalogEntry struct {
	Key        string
	ProviderID string
}

// CatalogSize is the number of bodies every chart reports.
const CatalogSize = 10

// Catalog is the ordered body table. Its order is the order of every
// ResultSet and every report built from one.
type Catalog [CatalogSize]CatalogEntry

var defaultCatalog = Catalog{
	{Key: "sun", ProviderID: "sun"},
	{Key: "moon", ProviderID: "moon"},
	{Key: "mercury", ProviderID: "mercury barycenter"},
	{Key: "venus", ProviderID: "venus barycenter"},
	{Key: "mars", ProviderID: "mars barycenter"},
	{Key: "jupiter", ProviderID: "jupiter barycenter"},
	{Key: "saturn", ProviderID: "saturn barycenter"},
	{Key: "uranus", ProviderID: "uranus barycenter"},
	{Key: "neptune", ProviderID: "neptune barycenter"},
	{Key: "pluto", ProviderID: "pluto barycenter"},
}

// DefaultCatalog returns a copy of the standard ten-body catalog.
func DefaultCatalog() Catalog { return defaultCatalog }

// Keys returns the body keys in catalog order.
func (c Catalog) Keys() []string {
	keys := make([]string, len(c))
	for i, e := range c {
		keys[i] = e.Key
	}
	return keys
}

// Resolve returns the provider identifier for key.
func (c Catalog) Resolve(key string) (string, bool) {
	for _, e := range c {
		if e.Key == key {
			return e.ProviderID, true
		}
	}
	return "", false
}
