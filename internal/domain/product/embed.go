package product

import _ "embed"

//go:embed catalog.json
var embeddedCatalog []byte

// DefaultCatalog returns the catalog bundled with the binary. It is used when
// no catalog path is configured.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(embeddedCatalog)
	if err != nil {
		// The embedded file ships with the binary; failing to parse it is a
		// build defect, not a runtime condition.
		panic(err)
	}
	return c
}
