package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("profile not found")
	ErrBadRequest = errors.New("bad request")
)

// maxAddresses keeps the profile document small.
const maxAddresses = 10

type Repository interface {
	Get(ctx context.Context, uid string) (*Profile, error)
	Put(ctx context.Context, p *Profile) error
}

type Service struct {
	store Repository
	now   func() time.Time
}

func NewService(store Repository) *Service {
	return &Service{store: store, now: time.Now}
}

// GetProfile returns the stored profile, or one built from the identity when
// the user has never saved anything. Identity fields fill gaps but never
// overwrite stored values.
func (s *Service) GetProfile(ctx context.Context, id Identity) (*Profile, error) {
	if id.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrBadRequest)
	}
	p, err := s.store.Get(ctx, id.UserID)
	if errors.Is(err, ErrNotFound) {
		p = &Profile{UserID: id.UserID}
	} else if err != nil {
		return nil, err
	}
	fillFromIdentity(p, id)
	if p.Addresses == nil {
		p.Addresses = []Address{}
	}
	return p, nil
}

// SaveAddress adds a new labelled address or replaces the one with the same
// label.
func (s *Service) SaveAddress(ctx context.Context, id Identity, a Address) (*Profile, error) {
	a.Label = strings.TrimSpace(a.Label)
	a.Line = strings.TrimSpace(a.Line)
	if a.Label == "" {
		return nil, fmt.Errorf("%w: address label is required", ErrBadRequest)
	}
	if !a.Point.Valid() {
		return nil, fmt.Errorf("%w: address location out of range", ErrBadRequest)
	}
	if a.Point.Name == "" {
		a.Point.Name = a.Label
	}

	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	replaced := false
	for i := range p.Addresses {
		if equalLabel(p.Addresses[i].Label, a.Label) {
			p.Addresses[i] = a
			replaced = true
			break
		}
	}
	if !replaced {
		if len(p.Addresses) >= maxAddresses {
			return nil, fmt.Errorf("%w: at most %d addresses", ErrBadRequest, maxAddresses)
		}
		p.Addresses = append(p.Addresses, a)
	}
	return s.put(ctx, p)
}

// RemoveAddress is a no-op when the label is not saved.
func (s *Service) RemoveAddress(ctx context.Context, id Identity, label string) (*Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	kept := p.Addresses[:0]
	for _, a := range p.Addresses {
		if !equalLabel(a.Label, label) {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(p.Addresses) {
		return p, nil
	}
	p.Addresses = kept
	return s.put(ctx, p)
}

func (s *Service) put(ctx context.Context, p *Profile) (*Profile, error) {
	p.UpdatedAt = s.now()
	if err := s.store.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func fillFromIdentity(p *Profile, id Identity) {
	if p.Name == "" {
		p.Name = id.Name
	}
	if p.Phone == "" {
		p.Phone = id.Phone
	}
	if p.Village == "" {
		p.Village = id.Village
	}
}

func equalLabel(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
