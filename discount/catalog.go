package discount

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/bizledger/generic"
)

// Catalog is a Lookup over one snapshot of categories, products and a
// party's overrides. Load a fresh one per request; it is never cached.
type Catalog struct {
	categories map[generic.CategoryID]generic.Category
	products   map[generic.ProductID]generic.Product
	overrides  generic.Overrides
}

func NewCatalog(categories []generic.Category, products []generic.Product, overrides generic.Overrides) *Catalog {
	c := &Catalog{
		categories: make(map[generic.CategoryID]generic.Category, len(categories)),
		products:   make(map[generic.ProductID]generic.Product, len(products)),
		overrides:  overrides.Clone(),
	}
	for _, cat := range categories {
		c.categories[cat.ID] = cat
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// LoadCatalog reads the live configuration for partyID. An empty partyID
// loads the catalog without overrides.
func LoadCatalog(ctx context.Context, store generic.CatalogStore, partyID generic.PartyID) (*Catalog, error) {
	var (
		categories []generic.Category
		products   []generic.Product
		overrides  generic.Overrides
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = store.Categories(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = store.Products(gctx)
		return err
	})
	if partyID != "" {
		g.Go(func() (err error) {
			overrides, err = store.PartyOverrides(gctx, partyID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewCatalog(categories, products, overrides), nil
}

// CategoryDiscount returns the party override if one exists, otherwise the
// category's default.
func (c *Catalog) CategoryDiscount(id generic.CategoryID) (decimal.Decimal, bool) {
	if v, ok := c.overrides[id]; ok {
		return Clamp(v), true
	}
	cat, ok := c.categories[id]
	if !ok {
		return decimal.Zero, false
	}
	return Clamp(cat.DefaultDiscount), true
}

func (c *Catalog) ProductDiscount(id generic.ProductID) (decimal.Decimal, bool) {
	p, ok := c.products[id]
	if !ok || p.DefaultDiscount == nil {
		return decimal.Zero, false
	}
	return Clamp(*p.DefaultDiscount), true
}

func (c *Catalog) Product(id generic.ProductID) (generic.Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

func (c *Catalog) Category(id generic.CategoryID) (generic.Category, bool) {
	cat, ok := c.categories[id]
	return cat, ok
}

var _ Lookup = (*Catalog)(nil)
