package services

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"oakmart/internal/domain"
	applog "oakmart/internal/log"
	"oakmart/internal/repos"
)

// OrderItemInput is one cart line as submitted by the client.
type OrderItemInput struct {
	ProductID string
	Name      string
	Variants  domain.VariantValues
	Qty       int
	Price     float64
}

// PlaceOrderInput carries the full checkout payload. Price totals are
// client-supplied and trusted (see the mismatch audit in Place).
type PlaceOrderInput struct {
	Items         []OrderItemInput
	Shipping      domain.ShippingAddress
	PaymentMethod string
	ItemsPrice    float64
	TaxPrice      float64
	ShippingPrice float64
	TotalPrice    float64
}

type OrderService struct {
	Prods  *repos.ProductRepo
	Orders *repos.OrderRepo
}

func NewOrderService(prods *repos.ProductRepo, orders *repos.OrderRepo) *OrderService {
	return &OrderService{Prods: prods, Orders: orders}
}

// Place runs the order-placement workflow for the given principal:
// per line item, resolve the stock-bearing record (combination or
// aggregate), deduct atomically, and once every item succeeded persist
// the order snapshot. Deductions commit per item in submission order;
// a failure on item N leaves items 1..N-1 deducted with no order
// created. That partial state is deliberate and surfaced to callers,
// never rolled back silently.
func (s *OrderService) Place(user *domain.User, in PlaceOrderInput) (domain.Order, error) {
	if len(in.Items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	serverItems := decimal.Zero
	for _, it := range in.Items {
		p, err := s.Prods.Get(it.ProductID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.Order{}, &ProductNotFoundError{Name: displayName(it)}
			}
			return domain.Order{}, err
		}

		unitPrice := p.Price
		if len(it.Variants) > 0 {
			if len(p.Combinations) == 0 {
				// Data inconsistency: a variant was requested but the
				// product defines none. Degrade to the aggregate
				// counter instead of failing the whole cart.
				applog.Warn("order.variant.fallback", map[string]any{
					"product": p.ID, "variants": it.Variants.String(),
				})
				if err := s.deductAggregate(p, it.Qty); err != nil {
					return domain.Order{}, err
				}
			} else {
				combo, ok := matchCombination(p.Combinations, it.Variants)
				if !ok {
					return domain.Order{}, &VariantNotFoundError{Product: p.Name}
				}
				if err := s.Prods.DecrementCombination(p.ID, combo.ID, it.Qty); err != nil {
					if errors.Is(err, repos.ErrInsufficientStock) {
						return domain.Order{}, &InsufficientStockError{
							Product:   p.Name,
							Variants:  it.Variants,
							Available: combo.Stock,
						}
					}
					return domain.Order{}, err
				}
				if combo.Price > 0 {
					unitPrice = combo.Price
				}
			}
		} else {
			if err := s.deductAggregate(p, it.Qty); err != nil {
				return domain.Order{}, err
			}
		}

		price := it.Price
		if price <= 0 {
			price = unitPrice
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Variants:  it.Variants,
			Qty:       it.Qty,
			Price:     price,
		})
		serverItems = serverItems.Add(
			decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(it.Qty))))
	}

	// Totals are trusted from the client; recompute from live prices
	// and leave an audit trail when they disagree.
	serverItems = serverItems.Round(2)
	clientItems := decimal.NewFromFloat(in.ItemsPrice).Round(2)
	if !serverItems.Equal(clientItems) {
		applog.Warn("order.total.mismatch", map[string]any{
			"server_items": serverItems.InexactFloat64(),
			"client_items": clientItems.InexactFloat64(),
		})
	}

	o := &domain.Order{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Items:         items,
		Shipping:      in.Shipping,
		PaymentMethod: in.PaymentMethod,
		ItemsPrice:    in.ItemsPrice,
		TaxPrice:      in.TaxPrice,
		ShippingPrice: in.ShippingPrice,
		TotalPrice:    in.TotalPrice,
		Status:        "pending",
	}
	if err := s.Orders.Create(o); err != nil {
		return domain.Order{}, err
	}

	return s.Orders.Get(o.ID)
}

func (s *OrderService) deductAggregate(p domain.Product, qty int) error {
	if err := s.Prods.DecrementStock(p.ID, qty); err != nil {
		if errors.Is(err, repos.ErrInsufficientStock) {
			return &InsufficientStockError{Product: p.Name, Available: p.Stock}
		}
		return err
	}
	return nil
}

// matchCombination resolves a variant selection to the unique
// combination whose values equal it exactly. Combinations keep their
// product-defined order, so an (unexpected) duplicate match resolves
// to the first deterministically.
func matchCombination(combos []domain.Combination, sel domain.VariantValues) (domain.Combination, bool) {
	for _, c := range combos {
		if c.Values.Equal(sel) {
			return c, true
		}
	}
	return domain.Combination{}, false
}

func displayName(it OrderItemInput) string {
	if it.Name != "" {
		return it.Name
	}
	return it.ProductID
}

// Get returns one order with its owner's name/email.
func (s *OrderService) Get(orderID string) (domain.Order, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return o, nil
}

// MyOrders lists the principal's orders, newest first.
func (s *OrderService) MyOrders(user *domain.User) ([]domain.Order, error) {
	return s.Orders.ListByUser(user.ID)
}

// AllOrders lists every order, newest first (administrative).
func (s *OrderService) AllOrders() ([]domain.Order, error) {
	return s.Orders.ListAll()
}

// MarkPaid records the payment confirmation payload on the order.
func (s *OrderService) MarkPaid(orderID string, p domain.PaymentResult) (domain.Order, error) {
	if err := s.Orders.MarkPaid(orderID, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return s.Orders.Get(orderID)
}

// UpdateDeliveryStatus sets the fulfillment status; the "delivered"
// status sets the delivered flag and timestamp, any other clears them.
func (s *OrderService) UpdateDeliveryStatus(orderID, status string) (domain.Order, error) {
	delivered := strings.EqualFold(status, "delivered")
	if err := s.Orders.UpdateStatus(orderID, status, delivered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return s.Orders.Get(orderID)
}
