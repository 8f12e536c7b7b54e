// README: Order aggregate; type-tagged details, status definitions and the status timeline.
package order

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"village/internal/modules/cart"
	"village/internal/modules/pricing"
	"village/internal/types"
)

type Type string

const (
	TypeShopping  Type = "shopping"
	TypeTransport Type = "transport"
	TypeService   Type = "service"
)

type Status string

const (
	StatusNone      Status = ""
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusAssigned  Status = "assigned"
	StatusPicked    Status = "picked"
	StatusOnway     Status = "onway"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending, StatusConfirmed, StatusAssigned, StatusPicked,
	StatusOnway, StatusDelivered, StatusCompleted, StatusCancelled,
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allStatuses {
		if st == known {
			return st, nil
		}
	}
	return StatusNone, fmt.Errorf("%w: unknown status %q", ErrBadRequest, s)
}

// Terminal reports whether no further timeline entries are accepted.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCompleted || s == StatusCancelled
}

// Customer identifies who placed the order. Values come from the verified
// identity and are stored as given.
type Customer struct {
	UserID  string `json:"userId"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Village string `json:"village,omitempty"`
}

type TimelineEntry struct {
	Status Status    `json:"status"`
	Time   time.Time `json:"time"`
	Note   string    `json:"note,omitempty"`
}

// Details is the type-specific part of an order. Exactly one variant exists
// per Type.
type Details interface {
	Type() Type
	// Total is the amount payable in rupees known at placement time.
	Total() int64
	isDetails()
}

// ShoppingDetails snapshots the cart at checkout.
type ShoppingDetails struct {
	ShopID          string          `json:"shopId"`
	Items           []cart.LineItem `json:"items"`
	CustomOrderText string          `json:"customOrderText,omitempty"`
	ItemsTotal      int64           `json:"itemsTotal"`
	DeliveryCharge  int64           `json:"deliveryCharge"`
	DistanceKm      float64         `json:"distanceKm"`
	Drop            types.GeoPoint  `json:"drop"`
}

func (ShoppingDetails) Type() Type { return TypeShopping }
func (d ShoppingDetails) Total() int64 { return d.ItemsTotal + d.DeliveryCharge }
func (ShoppingDetails) isDetails() {}

type TransportDetails struct {
	Vehicle    pricing.Vehicle `json:"vehicle"`
	Pickup     types.GeoPoint  `json:"pickup"`
	Drop       types.GeoPoint  `json:"drop"`
	DistanceKm float64         `json:"distanceKm"`
	Fare       int64           `json:"fare"`
}

func (TransportDetails) Type() Type { return TypeTransport }
func (d TransportDetails) Total() int64 { return d.Fare }
func (TransportDetails) isDetails() {}

// ServiceDetails describes a local service visit. It is priced on site, so
// its total at placement is 0.
type ServiceDetails struct {
	ServiceType   string         `json:"serviceType"`
	Description   string         `json:"description"`
	Address       types.GeoPoint `json:"address"`
	PreferredTime string         `json:"preferredTime,omitempty"`
}

func (ServiceDetails) Type() Type { return TypeService }
func (ServiceDetails) Total() int64 { return 0 }
func (ServiceDetails) isDetails() {}

type Order struct {
	ID            types.ID
	Customer      Customer
	Details       Details
	Status        Status
	StatusVersion int
	Timeline      []TimelineEntry
	CreatedAt     time.Time
}

func (o *Order) Type() Type {
	if o.Details == nil {
		return ""
	}
	return o.Details.Type()
}

// Append adds e to the timeline. Entries must not go back in time and, when
// validate is non-nil, the move from the current status must be accepted by
// it. On success Status follows the new entry.
func (o *Order) Append(e TimelineEntry, validate Validator) error {
	if n := len(o.Timeline); n > 0 && e.Time.Before(o.Timeline[n-1].Time) {
		return fmt.Errorf("%w: %s is before %s", ErrTimeRegression,
			e.Time.Format(time.RFC3339), o.Timeline[n-1].Time.Format(time.RFC3339))
	}
	if validate != nil {
		if err := validate(o.Status, e.Status); err != nil {
			return err
		}
	}
	o.Timeline = append(o.Timeline, e)
	o.Status = e.Status
	return nil
}

// Clone returns a copy whose timeline can be appended to independently.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Timeline = append([]TimelineEntry(nil), o.Timeline...)
	return &cp
}

type orderJSON struct {
	ID            types.ID        `json:"id"`
	Type          Type            `json:"type"`
	Customer      Customer        `json:"customer"`
	Details       json.RawMessage `json:"details"`
	Status        Status          `json:"status"`
	StatusVersion int             `json:"statusVersion"`
	Timeline      []TimelineEntry `json:"timeline"`
	Total         types.Money     `json:"total"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// MarshalJSON writes the type discriminator next to the details variant.
func (o Order) MarshalJSON() ([]byte, error) {
	if o.Details == nil {
		return nil, fmt.Errorf("order %s has no details", o.ID)
	}
	details, err := json.Marshal(o.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(orderJSON{
		ID:            o.ID,
		Type:          o.Details.Type(),
		Customer:      o.Customer,
		Details:       details,
		Status:        o.Status,
		StatusVersion: o.StatusVersion,
		Timeline:      o.Timeline,
		Total:         types.Rupees(o.Details.Total()),
		CreatedAt:     o.CreatedAt,
	})
}

// UnmarshalJSON rejects documents whose status is not the status of the last
// timeline entry.
func (o *Order) UnmarshalJSON(data []byte) error {
	var raw orderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Timeline) == 0 {
		return fmt.Errorf("order %s has an empty timeline", raw.ID)
	}
	if last := raw.Timeline[len(raw.Timeline)-1].Status; raw.Status != last {
		return fmt.Errorf("order %s status %q disagrees with timeline %q", raw.ID, raw.Status, last)
	}
	var details Details
	switch raw.Type {
	case TypeShopping:
		var d ShoppingDetails
		if err := json.Unmarshal(raw.Details, &d); err != nil {
			return fmt.Errorf("shopping details: %w", err)
		}
		details = d
	case TypeTransport:
		var d TransportDetails
		if err := json.Unmarshal(raw.Details, &d); err != nil {
			return fmt.Errorf("transport details: %w", err)
		}
		details = d
	case TypeService:
		var d ServiceDetails
		if err := json.Unmarshal(raw.Details, &d); err != nil {
			return fmt.Errorf("service details: %w", err)
		}
		details = d
	default:
		return fmt.Errorf("unknown order type %q", raw.Type)
	}
	*o = Order{
		ID:            raw.ID,
		Customer:      raw.Customer,
		Details:       details,
		Status:        raw.Status,
		StatusVersion: raw.StatusVersion,
		Timeline:      raw.Timeline,
		CreatedAt:     raw.CreatedAt,
	}
	return nil
}

// Event is one row of the status audit trail.
type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    string
	Note       string
	CreatedAt  time.Time
}

// StatusEvent is broadcast to notifiers and the event stream after a status
// change has been stored.
type StatusEvent struct {
	OrderID    types.ID  `json:"orderId"`
	OrderType  Type      `json:"orderType"`
	CustomerID string    `json:"customerId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Note       string    `json:"note,omitempty"`
	At         time.Time `json:"at"`
}
