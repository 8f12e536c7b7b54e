package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"village/internal/modules/cart"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestLoadCart_Missing(t *testing.T) {
	s, _ := setupStore(t)

	c, err := s.LoadCart(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestCart_RoundTrip(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	c := cart.New()
	c.AddItem(cart.Candidate{ProductID: "p1", Name: "Rice", UnitPrice: 40, Unit: "kg"})
	c.IncrementQuantity("p1")
	c.SetCustomOrder("1 bar soap")
	c.SelectShop("s1")
	require.NoError(t, s.SaveCart(ctx, "sess-1", c))

	assert.True(t, mr.Exists("cart-state:sess-1"))
	assert.Equal(t, time.Hour, mr.TTL("cart-state:sess-1"))

	got, err := s.LoadCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadCart_RederivesTotals(t *testing.T) {
	s, mr := setupStore(t)
	mr.Set("cart-state:sess-1", `{"items":[{"productId":"p1","unitPrice":40,"quantity":3,"total":7}],"totalItems":1,"totalAmount":7}`)

	c, err := s.LoadCart(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(120), c.TotalAmount)
	assert.Equal(t, 3, c.TotalItems)
}

func TestLoadCart_UnreadableCellStartsEmpty(t *testing.T) {
	s, mr := setupStore(t)
	mr.Set("cart-state:sess-1", "not json")

	c, err := s.LoadCart(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestLoadCart_RedisDown(t *testing.T) {
	s, mr := setupStore(t)
	mr.Close()

	_, err := s.LoadCart(context.Background(), "sess-1")
	assert.Error(t, err)
}

func TestAuth_RoundTripAndDelete(t *testing.T) {
	s, mr := setupStore(t)
	ctx := context.Background()

	_, err := s.LoadAuth(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNoSession)

	st := AuthState{
		UserID:     "uid-1",
		UserName:   "Asha",
		UserPhone:  "+919800000000",
		Role:       "customer",
		SignedIn:   true,
		SignedInAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveAuth(ctx, "sess-1", st))
	require.NoError(t, s.SaveCart(ctx, "sess-1", cart.New()))

	got, err := s.LoadAuth(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, st, got)

	require.NoError(t, s.Delete(ctx, "sess-1"))
	assert.False(t, mr.Exists("auth-state:sess-1"))
	assert.False(t, mr.Exists("cart-state:sess-1"))
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
