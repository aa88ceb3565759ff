package testing

import (
	"slices"

	"github.com/imamik/gsprov/internal/config"
)

// ProductBuilder provides a fluent interface for constructing test products.
// Each method returns a new builder (immutable) for chaining.
type ProductBuilder struct {
	p config.Product
}

// NewProductBuilder starts from the built-in product definition.
func NewProductBuilder() *ProductBuilder {
	p, err := config.DefaultProduct()
	if err != nil {
		panic(err)
	}
	return &ProductBuilder{p: *p}
}

// WithDefaultDir sets the default install directory.
func (b *ProductBuilder) WithDefaultDir(dir string) *ProductBuilder {
	nb := b.clone()
	nb.p.DefaultDir = dir
	return nb
}

// WithPort sets the game port and protocol.
func (b *ProductBuilder) WithPort(port, protocol string) *ProductBuilder {
	nb := b.clone()
	nb.p.Port = port
	nb.p.Protocol = protocol
	return nb
}

// WithPackages replaces the packages of one backend.
func (b *ProductBuilder) WithPackages(backend string, names ...string) *ProductBuilder {
	nb := b.clone()
	nb.p.Packages[backend] = names
	return nb
}

// WithRequirements replaces the management script's python requirements.
func (b *ProductBuilder) WithRequirements(reqs ...string) *ProductBuilder {
	nb := b.clone()
	nb.p.Manager.Requirements = reqs
	return nb
}

// Build returns the product.
func (b *ProductBuilder) Build() *config.Product {
	p := b.clone().p
	return &p
}

func (b *ProductBuilder) clone() *ProductBuilder {
	p := b.p
	p.Packages = make(map[string][]string, len(b.p.Packages))
	for k, v := range b.p.Packages {
		p.Packages[k] = slices.Clone(v)
	}
	p.Branches = slices.Clone(b.p.Branches)
	p.Manager.Requirements = slices.Clone(b.p.Manager.Requirements)
	return &ProductBuilder{p: p}
}
