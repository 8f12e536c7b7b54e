// README: Cart aggregate; line items with derived per-line and cart totals.
package cart

// LineItem is one product in the cart. Total is always UnitPrice × Quantity
// and Quantity is never below 1; a line that would reach 0 is removed.
type LineItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Unit      string `json:"unit"`
	Quantity  int    `json:"quantity"`
	Total     int64  `json:"total"`
}

// Candidate is a product offered for adding to the cart. Prices are whole
// rupees and must already be validated as non-negative.
type Candidate struct {
	ProductID string `json:"productId"`
	ShopID    string `json:"shopId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Unit      string `json:"unit"`
}

// Cart is owned by a single customer session and is not safe for
// concurrent use. Every mutation ends in recalculate, which is the only
// place totals are derived.
type Cart struct {
	Items           []LineItem `json:"items"`
	CustomOrderText string     `json:"customOrderText,omitempty"`
	ShopID          string     `json:"shopId,omitempty"`
	TotalItems      int        `json:"totalItems"`
	TotalAmount     int64      `json:"totalAmount"`
}

func New() *Cart {
	return &Cart{}
}

// AddItem increments the line for c.ProductID if present, otherwise appends
// a new line with quantity 1.
func (c *Cart) AddItem(cand Candidate) {
	if i := c.index(cand.ProductID); i >= 0 {
		c.Items[i].Quantity++
	} else {
		c.Items = append(c.Items, LineItem{
			ProductID: cand.ProductID,
			Name:      cand.Name,
			UnitPrice: cand.UnitPrice,
			Unit:      cand.Unit,
			Quantity:  1,
		})
	}
	c.recalculate()
}

// IncrementQuantity reports false and leaves the cart untouched when the
// product is not in the cart.
func (c *Cart) IncrementQuantity(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity++
	c.recalculate()
	return true
}

// DecrementQuantity removes the line once its quantity drops to zero.
// It reports false when the product is not in the cart.
func (c *Cart) DecrementQuantity(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity--
	c.recalculate()
	return true
}

// RemoveItem reports whether a line was removed.
func (c *Cart) RemoveItem(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.recalculate()
	return true
}

// UpdateQuantity sets the quantity to exactly n, removing the line when
// n <= 0. There is no upper bound. It reports false when the product is not
// in the cart.
func (c *Cart) UpdateQuantity(productID string, n int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = n
	c.recalculate()
	return true
}

// SetCustomOrder stages free-text items the shop prices by hand.
func (c *Cart) SetCustomOrder(text string) {
	c.CustomOrderText = text
}

func (c *Cart) SelectShop(shopID string) {
	c.ShopID = shopID
}

// ShopConflict reports whether adding a product from shopID would mix shops.
// A cart with no items and no custom order accepts any shop.
func (c *Cart) ShopConflict(shopID string) bool {
	if c.ShopID == "" || c.ShopID == shopID {
		return false
	}
	return !c.IsEmpty() || c.CustomOrderText != ""
}

// Clear empties the items together with any staged custom order and shop.
func (c *Cart) Clear() {
	*c = Cart{}
}

func (c *Cart) Item(productID string) (LineItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy suitable for snapshotting into an order.
func (c *Cart) Clone() *Cart {
	cp := *c
	if c.Items != nil {
		cp.Items = make([]LineItem, len(c.Items))
		copy(cp.Items, c.Items)
	}
	return &cp
}

// Normalize re-derives totals and drops non-positive lines. It is applied
// to carts read back from durable storage.
func (c *Cart) Normalize() {
	c.recalculate()
}

func (c *Cart) index(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) recalculate() {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.Quantity <= 0 {
			continue
		}
		it.Total = it.UnitPrice * int64(it.Quantity)
		kept = append(kept, it)
	}
	if len(kept) == 0 {
		kept = nil
	}
	c.Items = kept

	c.TotalItems = 0
	c.TotalAmount = 0
	for _, it := range c.Items {
		c.TotalItems += it.Quantity
		c.TotalAmount += it.Total
	}
}
