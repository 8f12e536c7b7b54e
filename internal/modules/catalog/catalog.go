// README: Shop directory; village shops with locations and priced products, loaded from an embedded seed.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"village/internal/modules/cart"
	"village/internal/modules/geo"
	"village/internal/types"
)

//go:embed seed.json
var seed []byte

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Unit  string `json:"unit"`
}

type Shop struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	Location types.GeoPoint `json:"location"`
	Products []Product      `json:"products"`
}

// NearbyShop is a shop annotated with its distance from the customer.
type NearbyShop struct {
	Shop
	DistanceKm float64 `json:"distanceKm"`
}

type productRef struct {
	shopID  string
	product Product
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	shops    []Shop
	byShop   map[string]int
	products map[string]productRef
}

// Default loads the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Load(seed)
}

// Load parses a catalog document. Product ids must be unique across shops
// and prices non-negative.
func Load(data []byte) (*Catalog, error) {
	var doc struct {
		Shops []Shop `json:"shops"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc.Shops)
}

func New(shops []Shop) (*Catalog, error) {
	c := &Catalog{
		shops:    shops,
		byShop:   make(map[string]int, len(shops)),
		products: map[string]productRef{},
	}
	for i, s := range shops {
		if s.ID == "" {
			return nil, fmt.Errorf("catalog: shop %d has no id", i)
		}
		if _, dup := c.byShop[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate shop %q", s.ID)
		}
		if !s.Location.Valid() {
			return nil, fmt.Errorf("catalog: shop %q has invalid location", s.ID)
		}
		c.byShop[s.ID] = i
		for _, p := range s.Products {
			if p.Price < 0 {
				return nil, fmt.Errorf("catalog: product %q has negative price", p.ID)
			}
			if _, dup := c.products[p.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate product %q", p.ID)
			}
			c.products[p.ID] = productRef{shopID: s.ID, product: p}
		}
	}
	return c, nil
}

func (c *Catalog) Shops() []Shop {
	out := make([]Shop, len(c.shops))
	copy(out, c.shops)
	return out
}

func (c *Catalog) Shop(id string) (Shop, bool) {
	i, ok := c.byShop[id]
	if !ok {
		return Shop{}, false
	}
	return c.shops[i], true
}

func (c *Catalog) ShopLocation(id string) (types.GeoPoint, bool) {
	s, ok := c.Shop(id)
	return s.Location, ok
}

// Lookup implements cart.ProductLookup.
func (c *Catalog) Lookup(productID string) (cart.Candidate, bool) {
	ref, ok := c.products[productID]
	if !ok {
		return cart.Candidate{}, false
	}
	return cart.Candidate{
		ProductID: ref.product.ID,
		ShopID:    ref.shopID,
		Name:      ref.product.Name,
		UnitPrice: ref.product.Price,
		Unit:      ref.product.Unit,
	}, true
}

// FindByName returns the first product whose name contains term, ignoring
// case. Shops are searched in catalog order.
func (c *Catalog) FindByName(term string) (cart.Candidate, bool) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return cart.Candidate{}, false
	}
	for _, s := range c.shops {
		for _, p := range s.Products {
			if strings.Contains(strings.ToLower(p.Name), term) {
				return c.Lookup(p.ID)
			}
		}
	}
	return cart.Candidate{}, false
}

// ProductNames lists every product name in catalog order.
func (c *Catalog) ProductNames() []string {
	var names []string
	for _, s := range c.shops {
		for _, p := range s.Products {
			names = append(names, p.Name)
		}
	}
	return names
}

// Nearest returns shops ordered by straight-line distance from p. A limit
// of 0 or less returns every shop.
func (c *Catalog) Nearest(p types.GeoPoint, limit int) []NearbyShop {
	out := make([]NearbyShop, len(c.shops))
	for i, s := range c.shops {
		out[i] = NearbyShop{Shop: s, DistanceKm: geo.Distance(p, s.Location)}
	}
	geo.SortByDistance(out, func(n NearbyShop) float64 { return n.DistanceKm })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
