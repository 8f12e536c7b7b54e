// README: Router tests; checkout flow, admin timeline appends and authorization over a miniredis session store.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httptransport "village/internal/http"
	"village/internal/http/middleware"
	"village/internal/infra"
	"village/internal/modules/cart"
	"village/internal/modules/catalog"
	"village/internal/modules/order"
	"village/internal/modules/pricing"
	"village/internal/modules/user"
	"village/internal/session"
	"village/internal/types"
)

// tokenVerifier maps raw bearer tokens to identities.
type tokenVerifier map[string]*infra.FirebaseToken

func (v tokenVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	t, ok := v[raw]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return t, nil
}

var verifier = tokenVerifier{
	"asha": {UID: "uid-asha", Claims: map[string]interface{}{"name": "Asha", "phone_number": "+919800000001", "village": "Wadgaon"}},
	"ravi": {UID: "uid-ravi", Claims: map[string]interface{}{"name": "Ravi"}},
	"team": {UID: "uid-team", Claims: map[string]interface{}{"role": "team"}},
}

// orderRepo keeps orders as JSON documents, mirroring the Postgres store.
type orderRepo struct {
	mu     sync.Mutex
	docs   map[types.ID][]byte
	order  []types.ID
	events map[types.ID][]order.Event
}

func newOrderRepo() *orderRepo {
	return &orderRepo{docs: map[types.ID][]byte{}, events: map[types.ID][]order.Event{}}
}

func (r *orderRepo) Create(_ context.Context, o *order.Order, ev order.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := json.Marshal(o)
	if err != nil {
		return err
	}
	r.docs[o.ID] = doc
	r.order = append(r.order, o.ID)
	r.events[o.ID] = append(r.events[o.ID], ev)
	return nil
}

func (r *orderRepo) Get(_ context.Context, id types.ID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(id)
}

func (r *orderRepo) load(id types.ID) (*order.Order, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	var o order.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) Replace(_ context.Context, o *order.Order, expected int, ev order.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, err := r.load(o.ID)
	if err != nil {
		return false, err
	}
	if cur.StatusVersion != expected {
		return false, nil
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return false, err
	}
	r.docs[o.ID] = doc
	r.events[o.ID] = append(r.events[o.ID], ev)
	return true, nil
}

func (r *orderRepo) list(keep func(*order.Order) bool) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for i := len(r.order) - 1; i >= 0; i-- {
		o, err := r.load(r.order[i])
		if err != nil {
			return nil, err
		}
		if keep(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *orderRepo) ListByCustomer(_ context.Context, cid string, _ int) ([]*order.Order, error) {
	return r.list(func(o *order.Order) bool { return o.Customer.UserID == cid })
}

func (r *orderRepo) ListByStatus(_ context.Context, st order.Status, _ int) ([]*order.Order, error) {
	return r.list(func(o *order.Order) bool { return st == order.StatusNone || o.Status == st })
}

func (r *orderRepo) Events(_ context.Context, id types.ID) ([]order.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id], nil
}

type profileRepo struct {
	mu   sync.Mutex
	docs map[string]user.Profile
}

func (p *profileRepo) Get(_ context.Context, uid string) (*user.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, ok := p.docs[uid]
	if !ok {
		return nil, user.ErrNotFound
	}
	doc.Addresses = append([]user.Address(nil), doc.Addresses...)
	return &doc, nil
}

func (p *profileRepo) Put(_ context.Context, prof *user.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[prof.UserID] = *prof
	return nil
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	sessions := session.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	cat, err := catalog.Default()
	require.NoError(t, err)
	prices := pricing.NewService(nil)
	carts := cart.NewService(sessions, cat)

	return httptransport.NewServer(httptransport.ServerDeps{
		Order:    order.NewService(newOrderRepo(), prices, cat, carts),
		Cart:     carts,
		Pricing:  prices,
		Catalog:  cat,
		Sessions: sessions,
		Users:    user.NewService(&profileRepo{docs: map[string]user.Profile{}}),
		Verifier: verifier,
	}).Routes()
}

type call struct {
	method, path string
	body         any
	token, sid   string
}

func do(t *testing.T, r http.Handler, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.sid != "" {
		req.Header.Set(middleware.SessionHeader, c.sid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func signIn(t *testing.T, r http.Handler, token string) string {
	t.Helper()
	w, body := do(t, r, call{method: http.MethodPost, path: "/api/session", token: token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sid, _ := body["sessionId"].(string)
	require.NotEmpty(t, sid)
	return sid
}

func TestHealth(t *testing.T) {
	r := newTestServer(t)
	w, body := do(t, r, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRideQuote(t *testing.T) {
	r := newTestServer(t)
	tests := []struct {
		query  string
		code   int
		amount float64
	}{
		{query: "from_lat=0&from_lng=0&to_lat=0.05&to_lng=0&vehicle=bike", code: http.StatusOK, amount: 60},
		{query: "from_lat=0&from_lng=0&to_lat=0.05&to_lng=0&vehicle=auto", code: http.StatusOK, amount: 88},
		{query: "from_lat=0&from_lng=0&to_lat=0&to_lng=0&vehicle=bike", code: http.StatusOK, amount: 20},
		{query: "from_lat=0&from_lng=0&to_lat=0.05&to_lng=0&vehicle=truck", code: http.StatusBadRequest},
		{query: "from_lat=91&from_lng=0&to_lat=0&to_lng=0&vehicle=bike", code: http.StatusBadRequest},
		{query: "vehicle=bike", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		w, body := do(t, r, call{method: http.MethodGet, path: "/api/quotes/ride?" + tt.query})
		require.Equal(t, tt.code, w.Code, tt.query)
		if tt.code == http.StatusOK {
			amount := body["amount"].(map[string]any)
			assert.Equal(t, tt.amount, amount["amount"], tt.query)
			assert.Equal(t, "INR", amount["currency"])
		}
	}
}

func TestDeliveryQuote(t *testing.T) {
	r := newTestServer(t)
	w, body := do(t, r, call{method: http.MethodGet, path: "/api/quotes/delivery?shop_id=kirana-main&to_lat=18.5404&to_lng=73.8567"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.2, body["distance_km"])
	assert.Equal(t, float64(30), body["amount"].(map[string]any)["amount"])

	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/quotes/delivery?shop_id=nope&to_lat=18.5&to_lng=73.8"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShopsAndPlaces(t *testing.T) {
	r := newTestServer(t)
	w, body := do(t, r, call{method: http.MethodGet, path: "/api/shops?lat=18.5301&lng=73.8472&limit=1"})
	require.Equal(t, http.StatusOK, w.Code)
	shops := body["shops"].([]any)
	require.Len(t, shops, 1)
	assert.Equal(t, "dairy-gokul", shops[0].(map[string]any)["id"])

	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/places?q=temple"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no maps key configured")
}

func TestCartRequiresSession(t *testing.T) {
	r := newTestServer(t)
	w, _ := do(t, r, call{method: http.MethodGet, path: "/api/cart"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/cart", token: "asha"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	sid := signIn(t, r, "asha")
	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/cart", token: "ravi", sid: sid})
	assert.Equal(t, http.StatusForbidden, w.Code, "another user's session")
}

func TestCartMutations(t *testing.T) {
	r := newTestServer(t)
	sid := signIn(t, r, "asha")
	cartCall := func(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
		return do(t, r, call{method: method, path: path, body: body, token: "asha", sid: sid})
	}

	w, body := cartCall(http.MethodPost, "/api/cart/items", map[string]any{"product_id": "dal-toor"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kirana-main", body["shopId"])

	cartCall(http.MethodPost, "/api/cart/items", map[string]any{"product_id": "dal-toor"})
	_, body = cartCall(http.MethodPost, "/api/cart/items", map[string]any{"product_id": "rice-sona"})
	assert.Equal(t, float64(3), body["totalItems"])
	assert.Equal(t, float64(280), body["totalAmount"])

	w, _ = cartCall(http.MethodPost, "/api/cart/items", map[string]any{"product_id": "milk-cow"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "dairy product in a kirana cart")
	w, _ = cartCall(http.MethodPut, "/api/cart/custom", map[string]any{"text": "2 soap", "shop_id": "medical-sai"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "switching shops under kirana items")

	w, body = cartCall(http.MethodPost, "/api/cart/items/sugar/increment", nil)
	require.Equal(t, http.StatusOK, w.Code, "absent line is a no-op")
	assert.Equal(t, float64(280), body["totalAmount"])

	_, body = cartCall(http.MethodPut, "/api/cart/items/rice-sona", map[string]any{"quantity": 5})
	assert.Equal(t, float64(440), body["totalAmount"])

	_, body = cartCall(http.MethodPost, "/api/cart/items/dal-toor/decrement", nil)
	assert.Equal(t, float64(320), body["totalAmount"])

	_, body = cartCall(http.MethodPut, "/api/cart/items/rice-sona", map[string]any{"quantity": 0})
	assert.Equal(t, float64(120), body["totalAmount"])
	assert.Len(t, body["items"], 1)

	w, _ = cartCall(http.MethodPost, "/api/cart/items", map[string]any{"product_id": "caviar"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = cartCall(http.MethodPut, "/api/cart/items/dal-toor", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = cartCall(http.MethodPut, "/api/cart/custom", map[string]any{"text": "2 soap", "shop_id": "nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, body = cartCall(http.MethodDelete, "/api/cart/items/dal-toor", nil)
	assert.Equal(t, float64(0), body["totalAmount"])

	_, body = cartCall(http.MethodPut, "/api/cart/custom", map[string]any{"text": " 2 soap ", "shop_id": "medical-sai"})
	assert.Equal(t, "2 soap", body["customOrderText"])
	assert.Equal(t, "medical-sai", body["shopId"])

	_, body = cartCall(http.MethodDelete, "/api/cart", nil)
	assert.Nil(t, body["customOrderText"])
	assert.Equal(t, float64(0), body["totalItems"])
}

func TestShoppingCheckoutAndTimeline(t *testing.T) {
	r := newTestServer(t)
	sid := signIn(t, r, "asha")

	w, _ := do(t, r, call{method: http.MethodPost, path: "/api/orders/shopping", token: "asha", sid: sid,
		body: map[string]any{"drop": map[string]any{"lat": 18.5404, "lng": 73.8567}}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")

	for _, p := range []string{"dal-toor", "dal-toor", "rice-sona"} {
		do(t, r, call{method: http.MethodPost, path: "/api/cart/items", token: "asha", sid: sid, body: map[string]any{"product_id": p}})
	}
	w, placed := do(t, r, call{method: http.MethodPost, path: "/api/orders/shopping", token: "asha", sid: sid,
		body: map[string]any{"drop": map[string]any{"name": "Home", "lat": 18.5404, "lng": 73.8567}}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "shopping", placed["type"])
	assert.Equal(t, "pending", placed["status"])
	assert.Equal(t, float64(310), placed["total"].(map[string]any)["amount"])
	details := placed["details"].(map[string]any)
	assert.Equal(t, float64(280), details["itemsTotal"])
	assert.Equal(t, float64(30), details["deliveryCharge"])
	assert.Equal(t, "Wadgaon", placed["customer"].(map[string]any)["village"])
	id := placed["id"].(string)

	_, body := do(t, r, call{method: http.MethodGet, path: "/api/cart", token: "asha", sid: sid})
	assert.Equal(t, float64(0), body["totalItems"], "checkout clears the cart")

	_, body = do(t, r, call{method: http.MethodGet, path: "/api/orders", token: "asha"})
	assert.Len(t, body["orders"], 1)
	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/orders/" + id, token: "ravi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	statusPath := "/api/admin/orders/" + id + "/status"
	w, _ = do(t, r, call{method: http.MethodPost, path: statusPath, token: "asha", body: map[string]any{"status": "confirmed"}})
	assert.Equal(t, http.StatusForbidden, w.Code, "customers cannot append")

	w, body = do(t, r, call{method: http.MethodPost, path: statusPath, token: "team", body: map[string]any{"status": "confirmed", "note": "Packed"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", body["status"])
	assert.Len(t, body["timeline"], 2)

	w, _ = do(t, r, call{method: http.MethodPost, path: statusPath, token: "team", body: map[string]any{"status": "delivered"}})
	assert.Equal(t, http.StatusConflict, w.Code, "confirmed cannot jump to delivered")
	w, _ = do(t, r, call{method: http.MethodPost, path: statusPath, token: "team", body: map[string]any{"status": "teleported"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, body = do(t, r, call{method: http.MethodGet, path: "/api/admin/orders?status=confirmed", token: "team"})
	assert.Len(t, body["orders"], 1)
	_, body = do(t, r, call{method: http.MethodGet, path: "/api/admin/orders/" + id, token: "team"})
	assert.Len(t, body["events"], 2)

	w, body = do(t, r, call{method: http.MethodPost, path: "/api/orders/" + id + "/cancel", token: "asha"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", body["status"])

	w, _ = do(t, r, call{method: http.MethodPost, path: "/api/orders/" + id + "/cancel", token: "asha"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = do(t, r, call{method: http.MethodGet, path: "/api/orders/00000000-0000-0000-0000-000000000000", token: "asha"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransportAndServiceOrders(t *testing.T) {
	r := newTestServer(t)

	w, body := do(t, r, call{method: http.MethodPost, path: "/api/orders/transport", token: "ravi", body: map[string]any{
		"pickup":  map[string]any{"lat": 0, "lng": 0},
		"drop":    map[string]any{"lat": 0.05, "lng": 0},
		"vehicle": "bike",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(60), body["details"].(map[string]any)["fare"])

	w, _ = do(t, r, call{method: http.MethodPost, path: "/api/orders/transport", token: "ravi", body: map[string]any{
		"pickup": map[string]any{"lat": 0, "lng": 0}, "drop": map[string]any{"lat": 0.05, "lng": 0}, "vehicle": "rocket",
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, call{method: http.MethodPut, path: "/api/me/addresses", token: "ravi", body: map[string]any{
		"label": "Farm", "line": "Behind the school", "lat": 18.6, "lng": 73.9,
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = do(t, r, call{method: http.MethodPost, path: "/api/orders/service", token: "ravi", body: map[string]any{
		"service_type": "plumber",
		"description":  "Leaking tap",
		"address":      map[string]any{"address_label": "farm"},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(0), body["total"].(map[string]any)["amount"])
	assert.Equal(t, 18.6, body["details"].(map[string]any)["address"].(map[string]any)["lat"])

	w, body = do(t, r, call{method: http.MethodPost, path: "/api/orders/service", token: "ravi", body: map[string]any{
		"service_type": "plumber",
		"address":      map[string]any{"address_label": "moon"},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(body["error"].(string), "moon"))

	_, body = do(t, r, call{method: http.MethodGet, path: "/api/me", token: "ravi"})
	assert.Equal(t, "Ravi", body["name"])
	assert.Len(t, body["addresses"], 1)
}
