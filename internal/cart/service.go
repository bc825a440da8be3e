package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kasirku/backend-pos/internal/store"
)

// ErrNotFound indicates the cart id is unknown or the cart has expired.
var ErrNotFound = errors.New("cart: not found")

// DefaultTTL is how long an idle cart survives between register taps.
const DefaultTTL = 30 * time.Minute

// Item is one register line. Quantity is always positive while the item is
// in the cart.
type Item struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int32  `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (i Item) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Cart is the transient register state for one checkout in progress.
type Cart struct {
	ID         string  `json:"id"`
	CashierID  string  `json:"cashierId,omitempty"`
	CustomerID *string `json:"customerId,omitempty"`
	Items      []Item  `json:"items"`
	UpdatedAt  int64   `json:"updatedAt"`
}

// Subtotal sums line totals.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.LineTotal()
	}
	return total
}

// Service keeps carts in Redis as JSON blobs with a sliding TTL. Carts are
// transient: losing Redis loses open carts, never settled transactions.
type Service struct {
	rdb *redis.Client
	db  store.Store
	ttl time.Duration
	now func() time.Time
}

// NewService wires the cart service. Product names and prices are resolved
// through the store at add time, never trusted from clients.
func NewService(rdb *redis.Client, db store.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{rdb: rdb, db: db, ttl: ttl, now: time.Now}
}

func cartKey(id string) string {
	return fmt.Sprintf("cart:%s", id)
}

// Create opens a new empty cart for the cashier.
func (s *Service) Create(ctx context.Context, cashierID string) (Cart, error) {
	c := Cart{
		ID:        uuid.NewString(),
		CashierID: cashierID,
		Items:     []Item{},
		UpdatedAt: s.now().Unix(),
	}
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Get loads a cart and refreshes its TTL.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	raw, err := s.rdb.Get(ctx, cartKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{}, ErrNotFound
	}
	if err != nil {
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, err
	}
	_ = s.rdb.Expire(ctx, cartKey(id), s.ttl).Err()
	return c, nil
}

// AddItem puts qty units of the product into the cart, creating the line or
// bumping its quantity.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int32) (Cart, error) {
	if qty <= 0 {
		qty = 1
	}
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	p, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return Cart{}, err
	}
	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  qty,
		})
	}
	c.UpdatedAt = s.now().Unix()
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// UpdateQuantity sets the line quantity. Zero or negative removes the line.
// Unknown product ids are a no-op so double-taps on a removed line stay
// harmless.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, productID string, qty int32) (Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if qty <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = qty
		}
		break
	}
	c.UpdatedAt = s.now().Unix()
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// RemoveItem drops the line entirely.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (Cart, error) {
	return s.UpdateQuantity(ctx, cartID, productID, 0)
}

// AttachCustomer pins a customer to the cart so checkout can settle against
// their ledger. Passing an empty id detaches back to a guest sale.
func (s *Service) AttachCustomer(ctx context.Context, cartID, customerID string) (Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	if customerID == "" {
		c.CustomerID = nil
	} else {
		if _, err := s.db.GetCustomer(ctx, customerID); err != nil {
			return Cart{}, err
		}
		c.CustomerID = &customerID
	}
	c.UpdatedAt = s.now().Unix()
	if err := s.save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Clear deletes the cart. Missing carts are fine, the checkout path clears
// after committing and must tolerate retries.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	return s.rdb.Del(ctx, cartKey(cartID)).Err()
}

func (s *Service) save(ctx context.Context, c Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cartKey(c.ID), raw, s.ttl).Err()
}

// Snapshot freezes cart lines into transaction items for settlement.
func Snapshot(c Cart) []store.TransactionItem {
	items := make([]store.TransactionItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, store.TransactionItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}
	return items
}
