package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"oakmart/internal/domain"
	applog "oakmart/internal/log"
	"oakmart/internal/services"
	"oakmart/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

type orderItemPayload struct {
	Product  string         `json:"product"`
	Name     string         `json:"name"`
	Variants map[string]any `json:"variants"`
	Qty      int            `json:"qty"`
	Price    float64        `json:"price"`
}

type shippingPayload struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type placeOrderPayload struct {
	OrderItems      []orderItemPayload `json:"orderItems"`
	ShippingAddress shippingPayload    `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	ItemsPrice      float64            `json:"itemsPrice"`
	TaxPrice        float64            `json:"taxPrice"`
	ShippingPrice   float64            `json:"shippingPrice"`
	TotalPrice      float64            `json:"totalPrice"`
}

func (p placeOrderPayload) check() []string {
	var msgs []string
	for _, it := range p.OrderItems {
		if _, ok := validate.ID(it.Product); !ok {
			msgs = append(msgs, `"orderItems" product reference is required`)
			break
		}
	}
	for _, it := range p.OrderItems {
		if it.Qty < 1 {
			msgs = append(msgs, `"orderItems" qty must be at least 1`)
			break
		}
	}
	if p.PaymentMethod == "" {
		msgs = append(msgs, `"paymentMethod" is required`)
	}
	if p.ShippingAddress.Street == "" || p.ShippingAddress.City == "" ||
		p.ShippingAddress.ZipCode == "" || p.ShippingAddress.Country == "" {
		msgs = append(msgs, `"shippingAddress" must include street, city, zipCode and country`)
	}
	if p.ItemsPrice < 0 || p.TaxPrice < 0 || p.ShippingPrice < 0 || p.TotalPrice < 0 {
		msgs = append(msgs, `"prices" must be greater than or equal to 0`)
	}
	return msgs
}

func (p placeOrderPayload) toInput() services.PlaceOrderInput {
	items := make([]services.OrderItemInput, len(p.OrderItems))
	for i, it := range p.OrderItems {
		items[i] = services.OrderItemInput{
			ProductID: it.Product,
			Name:      it.Name,
			Variants:  domain.NormalizeVariantValues(it.Variants),
			Qty:       it.Qty,
			Price:     it.Price,
		}
	}
	return services.PlaceOrderInput{
		Items: items,
		Shipping: domain.ShippingAddress{
			Street:  p.ShippingAddress.Street,
			City:    p.ShippingAddress.City,
			ZipCode: p.ShippingAddress.ZipCode,
			Country: p.ShippingAddress.Country,
		},
		PaymentMethod: p.PaymentMethod,
		ItemsPrice:    p.ItemsPrice,
		TaxPrice:      p.TaxPrice,
		ShippingPrice: p.ShippingPrice,
		TotalPrice:    p.TotalPrice,
	}
}

// Place runs the order-placement workflow for the authenticated user.
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return fail(c, fiber.StatusUnauthorized, "not authorized")
	}

	var p placeOrderPayload
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msgs := p.check(); len(msgs) > 0 {
		applog.Security(c, "validation.fail", map[string]any{"route": "order.place"})
		return fail(c, fiber.StatusBadRequest, strings.Join(msgs, ", "))
	}

	o, err := h.Orders.Place(u, p.toInput())
	if err != nil {
		var (
			pnf *services.ProductNotFoundError
			vnf *services.VariantNotFoundError
			ins *services.InsufficientStockError
		)
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			return fail(c, fiber.StatusBadRequest, err.Error())
		case errors.As(err, &pnf):
			applog.Security(c, "order.place.fail", map[string]any{"user": u.ID, "error": err.Error()})
			return fail(c, fiber.StatusNotFound, err.Error())
		case errors.As(err, &vnf), errors.As(err, &ins):
			applog.Security(c, "order.place.fail", map[string]any{"user": u.ID, "error": err.Error()})
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	applog.Audit(c, "order.place", map[string]any{
		"order_id": o.ID,
		"user":     u.ID,
		"total":    o.TotalPrice,
	})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// View returns one order; owners and admins only. Missing and
// forbidden orders are indistinguishable to the caller.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return fail(c, fiber.StatusUnauthorized, "not authorized")
	}

	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "order not found")
	}
	o, err := h.Orders.Get(oid)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fail(c, fiber.StatusNotFound, "order not found")
		}
		return err
	}
	if o.UserID != u.ID && !u.IsAdmin() {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid, "user": u.ID})
		return fail(c, fiber.StatusNotFound, "order not found")
	}
	return c.JSON(o)
}

// MyOrders lists the authenticated user's orders, newest first.
func (h *OrderHandler) MyOrders(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return fail(c, fiber.StatusUnauthorized, "not authorized")
	}
	orders, err := h.Orders.MyOrders(u)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// List returns every order, newest first (admin).
func (h *OrderHandler) List(c *fiber.Ctx) error {
	orders, err := h.Orders.AllOrders()
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

type payPayload struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

// Pay marks an order paid with the payment confirmation payload.
func (h *OrderHandler) Pay(c *fiber.Ctx) error {
	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "order not found")
	}
	var p payPayload
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	o, err := h.Orders.MarkPaid(oid, domain.PaymentResult{
		ID:           p.ID,
		Status:       p.Status,
		UpdateTime:   p.UpdateTime,
		EmailAddress: p.EmailAddress,
	})
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fail(c, fiber.StatusNotFound, "order not found")
		}
		return err
	}

	applog.Audit(c, "order.pay", map[string]any{"order_id": oid})
	return c.JSON(o)
}

type statusPayload struct {
	Status string `json:"status"`
}

// UpdateStatus sets the fulfillment status (admin).
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "order not found")
	}
	var p statusPayload
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	status, ok := validate.Status(p.Status)
	if !ok {
		return fail(c, fiber.StatusBadRequest, `"status" is required`)
	}

	o, err := h.Orders.UpdateDeliveryStatus(oid, status)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return fail(c, fiber.StatusNotFound, "order not found")
		}
		return err
	}

	applog.Audit(c, "order.status", map[string]any{"order_id": oid, "status": status})
	return c.JSON(o)
}
