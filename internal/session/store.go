// README: Redis-backed session cells (cart-state, auth-state) holding JSON blobs per session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"village/internal/modules/cart"
	"village/internal/types"
)

const (
	cartCell = "cart-state"
	authCell = "auth-state"
)

var ErrNoSession = errors.New("session not found")

// AuthState is the signed-in identity bound to a session.
type AuthState struct {
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName,omitempty"`
	UserPhone   string    `json:"userPhone,omitempty"`
	UserVillage string    `json:"userVillage,omitempty"`
	Role        string    `json:"role"`
	SignedIn    bool      `json:"signedIn"`
	SignedInAt  time.Time `json:"signedInAt"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// NewID returns a fresh opaque session id.
func NewID() string {
	return string(types.NewID())
}

// LoadCart returns an empty cart when the cell is missing. A cell that no
// longer decodes is discarded rather than failing every request of the session.
func (s *Store) LoadCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	data, err := s.client.Get(ctx, cellKey(cartCell, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	c := cart.New()
	if err := json.Unmarshal(data, c); err != nil {
		log.Printf("session %s: dropping unreadable cart: %v", sessionID, err)
		return cart.New(), nil
	}
	c.Normalize()
	return c, nil
}

func (s *Store) SaveCart(ctx context.Context, sessionID string, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, cellKey(cartCell, sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (s *Store) LoadAuth(ctx context.Context, sessionID string) (AuthState, error) {
	data, err := s.client.Get(ctx, cellKey(authCell, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return AuthState{}, ErrNoSession
	}
	if err != nil {
		return AuthState{}, fmt.Errorf("redis get auth: %w", err)
	}
	var st AuthState
	if err := json.Unmarshal(data, &st); err != nil {
		return AuthState{}, fmt.Errorf("unmarshal auth: %w", err)
	}
	return st, nil
}

func (s *Store) SaveAuth(ctx context.Context, sessionID string, st AuthState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal auth: %w", err)
	}
	if err := s.client.Set(ctx, cellKey(authCell, sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set auth: %w", err)
	}
	return nil
}

// Delete signs the session out and drops its cart.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cellKey(cartCell, sessionID), cellKey(authCell, sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func cellKey(cell, sessionID string) string {
	return fmt.Sprintf("%s:%s", cell, sessionID)
}
