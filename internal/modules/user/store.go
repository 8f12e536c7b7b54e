package user

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

// Store reads and writes users/{uid} documents whole.
type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, app *firebase.App) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Get(ctx context.Context, uid string) (*Profile, error) {
	snap, err := s.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore get user %s: %w", uid, err)
	}
	var p Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	return &p, nil
}

func (s *Store) Put(ctx context.Context, p *Profile) error {
	if _, err := s.client.Collection(usersCollection).Doc(p.UserID).Set(ctx, p); err != nil {
		return fmt.Errorf("firestore set user %s: %w", p.UserID, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
