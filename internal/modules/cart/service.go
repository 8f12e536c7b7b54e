// README: Cart service; session-scoped cart mutations persisted through the session store.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

var (
	ErrBadRequest     = errors.New("bad request")
	ErrUnknownProduct = errors.New("unknown product")
	ErrEmptyCart      = fmt.Errorf("%w: cart is empty", ErrBadRequest)
	ErrShopMismatch   = fmt.Errorf("%w: cart holds an order for another shop", ErrBadRequest)
)

// Store persists one cart per session. LoadCart returns an empty cart for a
// session that has never saved one.
type Store interface {
	LoadCart(ctx context.Context, sessionID string) (*Cart, error)
	SaveCart(ctx context.Context, sessionID string, c *Cart) error
}

// ProductLookup resolves a product id to the candidate shown in the catalog.
type ProductLookup interface {
	Lookup(productID string) (Candidate, bool)
}

type Service struct {
	store    Store
	products ProductLookup

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(store Store, products ProductLookup) *Service {
	return &Service{store: store, products: products, locks: map[string]*sessionLock{}}
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	if err := validSession(sessionID); err != nil {
		return nil, err
	}
	return s.store.LoadCart(ctx, sessionID)
}

// AddItem resolves productID through the catalog. A cart orders from one
// shop: the first product selects it and products from any other shop are
// rejected with ErrShopMismatch until the cart is emptied.
func (s *Service) AddItem(ctx context.Context, sessionID, productID string) (*Cart, error) {
	cand, ok := s.products.Lookup(productID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		if c.ShopConflict(cand.ShopID) {
			return fmt.Errorf("%w: %q is sold by %s, cart is for %s", ErrShopMismatch, productID, cand.ShopID, c.ShopID)
		}
		c.SelectShop(cand.ShopID)
		c.AddItem(cand)
		return nil
	})
}

func (s *Service) Increment(ctx context.Context, sessionID, productID string) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.IncrementQuantity(productID)
		return nil
	})
}

func (s *Service) Decrement(ctx context.Context, sessionID, productID string) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.DecrementQuantity(productID)
		return nil
	})
}

func (s *Service) Remove(ctx context.Context, sessionID, productID string) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productID string, n int) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.UpdateQuantity(productID, n)
		return nil
	})
}

// SetCustomOrder stages free text and, when shopID is non-empty, the shop it
// is addressed to. The text replaces any earlier custom order, so only line
// items pin the cart to its current shop.
func (s *Service) SetCustomOrder(ctx context.Context, sessionID, text, shopID string) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		if shopID != "" && !c.IsEmpty() && c.ShopID != shopID {
			return fmt.Errorf("%w: cart items are from %s", ErrShopMismatch, c.ShopID)
		}
		c.SetCustomOrder(strings.TrimSpace(text))
		if shopID != "" {
			c.SelectShop(shopID)
		}
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, sessionID string) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

// Checkout hands a snapshot of the cart to place while holding the session
// lock. A failed place leaves the cart as it was. Once place succeeds the
// order exists, so a failure to clear the cart is logged and not returned.
func (s *Service) Checkout(ctx context.Context, sessionID string, place func(*Cart) error) error {
	if err := validSession(sessionID); err != nil {
		return err
	}
	unlock := s.lock(sessionID)
	defer unlock()

	c, err := s.store.LoadCart(ctx, sessionID)
	if err != nil {
		return err
	}
	if c.IsEmpty() && c.CustomOrderText == "" {
		return ErrEmptyCart
	}
	if err := place(c.Clone()); err != nil {
		return err
	}
	c.Clear()
	if err := s.store.SaveCart(ctx, sessionID, c); err != nil {
		log.Printf("cart: clear after checkout session=%s: %v", sessionID, err)
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error) {
	if err := validSession(sessionID); err != nil {
		return nil, err
	}
	unlock := s.lock(sessionID)
	defer unlock()

	c, err := s.store.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.store.SaveCart(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// lock serialises mutations for one session within this process.
func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func validSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: missing session", ErrBadRequest)
	}
	return nil
}
