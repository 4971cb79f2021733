package localstore

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"tvcompare/pkg/models"
)

//go:embed seed_catalog.yaml
var seedCatalog []byte

// Seed returns a fresh copy of the built-in catalog.
func Seed() models.Catalog {
	var c models.Catalog
	if err := yaml.Unmarshal(seedCatalog, &c); err != nil {
		panic(fmt.Sprintf("decode seed catalog: %v", err))
	}
	return c
}
