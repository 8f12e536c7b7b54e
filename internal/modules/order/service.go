// README: Order service implements checkout, timeline appends and persistence.
package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"village/internal/modules/cart"
	"village/internal/modules/pricing"
	"village/internal/types"
)

var (
	ErrInvalidState   = errors.New("invalid state transition")
	ErrTimeRegression = errors.New("timeline entry earlier than previous entry")
	ErrNotFound       = errors.New("order not found")
	ErrConflict       = errors.New("order state conflict")
	ErrForbidden      = errors.New("order belongs to another customer")
	ErrBadRequest     = errors.New("bad request")
)

type Pricing interface {
	QuoteRide(ctx context.Context, from, to types.GeoPoint, v pricing.Vehicle) (pricing.Quote, error)
	QuoteDelivery(ctx context.Context, from, to types.GeoPoint) (pricing.Quote, error)
}

type ShopLocator interface {
	ShopLocation(shopID string) (types.GeoPoint, bool)
}

// Carts hands the session cart to place and clears it once place succeeds.
type Carts interface {
	Checkout(ctx context.Context, sessionID string, place func(*cart.Cart) error) error
}

// Notifier tells the customer about a status change.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, ev StatusEvent) error
}

// Publisher forwards status changes to the event stream.
type Publisher interface {
	PublishStatus(ctx context.Context, ev StatusEvent) error
}

type Option func(*Service)

// WithValidator replaces DefaultValidator. Passing nil disables transition
// checks entirely.
func WithValidator(v Validator) Option {
	return func(s *Service) { s.validate = v }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	store     Repository
	pricing   Pricing
	shops     ShopLocator
	carts     Carts
	validate  Validator
	notifier  Notifier
	publisher Publisher
	now       func() time.Time
}

func NewService(store Repository, pricing Pricing, shops ShopLocator, carts Carts, opts ...Option) *Service {
	s := &Service{
		store:    store,
		pricing:  pricing,
		shops:    shops,
		carts:    carts,
		validate: DefaultValidator,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type PlaceShoppingCommand struct {
	SessionID string
	Customer  Customer
	Drop      types.GeoPoint
}

type PlaceTransportCommand struct {
	Customer Customer
	Pickup   types.GeoPoint
	Drop     types.GeoPoint
	Vehicle  pricing.Vehicle
}

type PlaceServiceCommand struct {
	Customer      Customer
	ServiceType   string
	Description   string
	Address       types.GeoPoint
	PreferredTime string
}

type AppendStatusCommand struct {
	OrderID   types.ID
	Status    Status
	Note      string
	ActorType string
	ActorID   string
	// At defaults to the service clock.
	At time.Time
}

type CancelCommand struct {
	OrderID    types.ID
	CustomerID string
	Reason     string
}

// PlaceShopping turns the session cart into a shopping order. The delivery
// charge is priced on the distance from the selected shop to Drop.
func (s *Service) PlaceShopping(ctx context.Context, cmd PlaceShoppingCommand) (*Order, error) {
	if err := validCustomer(cmd.Customer); err != nil {
		return nil, err
	}
	if !cmd.Drop.Valid() {
		return nil, fmt.Errorf("%w: drop location out of range", ErrBadRequest)
	}

	var placed *Order
	err := s.carts.Checkout(ctx, cmd.SessionID, func(c *cart.Cart) error {
		if c.ShopID == "" {
			return fmt.Errorf("%w: no shop selected", ErrBadRequest)
		}
		shop, ok := s.shops.ShopLocation(c.ShopID)
		if !ok {
			return fmt.Errorf("%w: unknown shop %q", ErrBadRequest, c.ShopID)
		}
		quote, err := s.pricing.QuoteDelivery(ctx, shop, cmd.Drop)
		if err != nil {
			return err
		}
		o, err := s.create(ctx, cmd.Customer, ShoppingDetails{
			ShopID:          c.ShopID,
			Items:           c.Items,
			CustomOrderText: c.CustomOrderText,
			ItemsTotal:      c.TotalAmount,
			DeliveryCharge:  quote.Amount.Amount,
			DistanceKm:      quote.DistanceKm,
			Drop:            cmd.Drop,
		})
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, boundaryError(err)
	}
	s.announce(ctx, placed, StatusNone)
	return placed, nil
}

func (s *Service) PlaceTransport(ctx context.Context, cmd PlaceTransportCommand) (*Order, error) {
	if err := validCustomer(cmd.Customer); err != nil {
		return nil, err
	}
	quote, err := s.pricing.QuoteRide(ctx, cmd.Pickup, cmd.Drop, cmd.Vehicle)
	if err != nil {
		return nil, boundaryError(err)
	}
	o, err := s.create(ctx, cmd.Customer, TransportDetails{
		Vehicle:    cmd.Vehicle,
		Pickup:     cmd.Pickup,
		Drop:       cmd.Drop,
		DistanceKm: quote.DistanceKm,
		Fare:       quote.Amount.Amount,
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, o, StatusNone)
	return o, nil
}

func (s *Service) PlaceService(ctx context.Context, cmd PlaceServiceCommand) (*Order, error) {
	if err := validCustomer(cmd.Customer); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.ServiceType) == "" {
		return nil, fmt.Errorf("%w: service type is required", ErrBadRequest)
	}
	if !cmd.Address.Valid() {
		return nil, fmt.Errorf("%w: address out of range", ErrBadRequest)
	}
	o, err := s.create(ctx, cmd.Customer, ServiceDetails{
		ServiceType:   strings.TrimSpace(cmd.ServiceType),
		Description:   strings.TrimSpace(cmd.Description),
		Address:       cmd.Address,
		PreferredTime: cmd.PreferredTime,
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, o, StatusNone)
	return o, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// GetForCustomer hides other customers' orders behind ErrForbidden.
func (s *Service) GetForCustomer(ctx context.Context, id types.ID, customerID string) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Customer.UserID != customerID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error) {
	return s.store.ListByCustomer(ctx, customerID, limit)
}

func (s *Service) ListByStatus(ctx context.Context, status Status, limit int) ([]*Order, error) {
	return s.store.ListByStatus(ctx, status, limit)
}

func (s *Service) History(ctx context.Context, id types.ID) ([]Event, error) {
	return s.store.Events(ctx, id)
}

// AppendStatus adds a timeline entry on behalf of the team. Concurrent
// appends to the same order are resolved by status_version; the loser gets
// ErrConflict and should reload.
func (s *Service) AppendStatus(ctx context.Context, cmd AppendStatusCommand) (*Order, error) {
	if cmd.ActorType == "" {
		cmd.ActorType = "team"
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	return s.appendStatus(ctx, o, cmd)
}

// Cancel is the customer-side cancellation. Customers may cancel only while
// the order is pending or confirmed.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	o, err := s.GetForCustomer(ctx, cmd.OrderID, cmd.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customerCancellable[o.Status] {
		return nil, fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidState, o.Status)
	}
	note := strings.TrimSpace(cmd.Reason)
	if note == "" {
		note = "Cancelled by customer"
	}
	return s.appendStatus(ctx, o, AppendStatusCommand{
		OrderID:   o.ID,
		Status:    StatusCancelled,
		Note:      note,
		ActorType: "customer",
		ActorID:   cmd.CustomerID,
	})
}

func (s *Service) appendStatus(ctx context.Context, o *Order, cmd AppendStatusCommand) (*Order, error) {
	at := cmd.At
	if at.IsZero() {
		at = s.now()
	}
	from := o.Status
	next := o.Clone()
	if err := next.Append(TimelineEntry{Status: cmd.Status, Time: at, Note: cmd.Note}, s.validate); err != nil {
		return nil, err
	}
	next.StatusVersion = o.StatusVersion + 1

	ok, err := s.store.Replace(ctx, next, o.StatusVersion, Event{
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   cmd.Status,
		ActorType:  cmd.ActorType,
		ActorID:    cmd.ActorID,
		Note:       cmd.Note,
		CreatedAt:  at,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.announce(ctx, next, from)
	return next, nil
}

func (s *Service) create(ctx context.Context, customer Customer, details Details) (*Order, error) {
	now := s.now()
	o := &Order{
		ID:        types.NewID(),
		Customer:  customer,
		Details:   details,
		CreatedAt: now,
	}
	if err := o.Append(TimelineEntry{Status: StatusPending, Time: now, Note: "Order placed"}, s.validate); err != nil {
		return nil, err
	}
	err := s.store.Create(ctx, o, Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "customer",
		ActorID:    customer.UserID,
		Note:       "Order placed",
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// announce fans a stored status change out to the notifier and publisher.
// Their failures are logged; the change itself is already durable.
func (s *Service) announce(ctx context.Context, o *Order, from Status) {
	last := o.Timeline[len(o.Timeline)-1]
	ev := StatusEvent{
		OrderID:    o.ID,
		OrderType:  o.Type(),
		CustomerID: o.Customer.UserID,
		From:       from,
		To:         o.Status,
		Note:       last.Note,
		At:         last.Time,
	}
	if s.notifier != nil {
		if err := s.notifier.OrderStatusChanged(ctx, ev); err != nil {
			log.Printf("order %s: notify %s: %v", o.ID, ev.To, err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishStatus(ctx, ev); err != nil {
			log.Printf("order %s: publish %s: %v", o.ID, ev.To, err)
		}
	}
}

func validCustomer(c Customer) error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: missing customer", ErrBadRequest)
	}
	return nil
}

// boundaryError folds input errors raised by the cart and pricing packages
// into this package's ErrBadRequest.
func boundaryError(err error) error {
	if errors.Is(err, ErrBadRequest) {
		return err
	}
	if errors.Is(err, cart.ErrBadRequest) || errors.Is(err, pricing.ErrBadRequest) {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return err
}
