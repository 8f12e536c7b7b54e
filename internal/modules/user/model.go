// README: Customer profile and saved addresses, stored as one Firestore document per user.
package user

import (
	"time"

	"village/internal/types"
)

// Address is a labelled delivery or pickup point ("Home", "Farm").
type Address struct {
	Label string         `json:"label" firestore:"label"`
	Line  string         `json:"line,omitempty" firestore:"line"`
	Point types.GeoPoint `json:"point" firestore:"point"`
}

type Profile struct {
	UserID    string    `json:"userId" firestore:"userId"`
	Name      string    `json:"name,omitempty" firestore:"name"`
	Phone     string    `json:"phone,omitempty" firestore:"phone"`
	Village   string    `json:"village,omitempty" firestore:"village"`
	Addresses []Address `json:"addresses" firestore:"addresses"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Identity is what the verified sign-in token tells us about the caller.
type Identity struct {
	UserID  string
	Name    string
	Phone   string
	Village string
}

// Address returns the saved address with the given label, ignoring case.
func (p *Profile) Address(label string) (Address, bool) {
	for _, a := range p.Addresses {
		if equalLabel(a.Label, label) {
			return a, true
		}
	}
	return Address{}, false
}
