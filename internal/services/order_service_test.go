package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"oakmart/internal/domain"
	"oakmart/internal/repos"
	"oakmart/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	schema := `
	CREATE TABLE products(id TEXT PRIMARY KEY, slug TEXT UNIQUE, name TEXT, description TEXT,
	  category TEXT, price NUMERIC, stock INTEGER CHECK(stock >= 0), featured INTEGER DEFAULT 0,
	  rating NUMERIC DEFAULT 0, reviews INTEGER DEFAULT 0, attributes_json TEXT,
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP, updated_at TEXT);
	CREATE TABLE product_combinations(product_id TEXT, combo_id TEXT, position INTEGER,
	  values_json TEXT, stock INTEGER CHECK(stock >= 0), price NUMERIC,
	  PRIMARY KEY(product_id, combo_id));
	CREATE TABLE users(id TEXT PRIMARY KEY, email TEXT UNIQUE, name TEXT, password_hash TEXT,
	  role TEXT, created_at TEXT DEFAULT CURRENT_TIMESTAMP, updated_at TEXT);
	CREATE TABLE sessions(id TEXT PRIMARY KEY, user_id TEXT,
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP, last_seen TEXT);
	CREATE TABLE orders(id TEXT PRIMARY KEY, user_id TEXT,
	  ship_street TEXT, ship_city TEXT, ship_zip TEXT, ship_country TEXT,
	  payment_method TEXT, items_price NUMERIC, tax_price NUMERIC, shipping_price NUMERIC,
	  total_price NUMERIC, is_paid INTEGER DEFAULT 0, paid_at TEXT,
	  payment_id TEXT, payment_status TEXT, payment_update_time TEXT, payment_email TEXT,
	  status TEXT DEFAULT 'pending', is_delivered INTEGER DEFAULT 0, delivered_at TEXT,
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP);
	CREATE TABLE order_items(order_id TEXT, position INTEGER, product_id TEXT, name TEXT,
	  variants_json TEXT, qty INTEGER, price NUMERIC, PRIMARY KEY(order_id, position));

	INSERT INTO users(id,email,name,password_hash,role) VALUES
	  ('u-buyer','buyer@test.local','Buyer','x','customer'),
	  ('u-other','other@test.local','Other','x','customer');

	INSERT INTO products(id,slug,name,description,category,price,stock) VALUES
	  ('p-tee','classic-tee','Classic Tee','tee','apparel',10.00,10),
	  ('p-mug','enamel-mug','Enamel Mug','mug','kitchen',12.50,7),
	  ('p-poster','map-poster','Map Poster','poster','decor',24.00,4);

	INSERT INTO product_combinations(product_id,combo_id,position,values_json,stock,price) VALUES
	  ('p-mug','c-blue',0,'{"Color":"Blue"}',2,12.50),
	  ('p-mug','c-red', 1,'{"Color":"Red"}', 5,12.50);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	return db
}

func newOrderService(db *sqlx.DB) *services.OrderService {
	return services.NewOrderService(repos.NewProductRepo(db), repos.NewOrderRepo(db))
}

func buyer() *domain.User {
	return &domain.User{ID: "u-buyer", Name: "Buyer", Email: "buyer@test.local", Role: "customer"}
}

func shipping() domain.ShippingAddress {
	return domain.ShippingAddress{Street: "1 Elm St", City: "Springfield", ZipCode: "20742", Country: "US"}
}

func productStock(t *testing.T, db *sqlx.DB, id string) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT stock FROM products WHERE id=?`, id); err != nil {
		t.Fatal(err)
	}
	return n
}

func comboStock(t *testing.T, db *sqlx.DB, productID, comboID string) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT stock FROM product_combinations WHERE product_id=? AND combo_id=?`, productID, comboID); err != nil {
		t.Fatal(err)
	}
	return n
}

func orderCount(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM orders`); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestPlaceOrder_DeductsStockAndPersists(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	o, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items:         []services.OrderItemInput{{ProductID: "p-tee", Qty: 3, Price: 10.00}},
		Shipping:      shipping(),
		PaymentMethod: "paypal",
		ItemsPrice:    30, TaxPrice: 3, ShippingPrice: 5, TotalPrice: 38,
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID == "" {
		t.Fatal("no order id")
	}
	if got := productStock(t, db, "p-tee"); got != 7 {
		t.Fatalf("want stock 7, got %d", got)
	}
	if len(o.Items) != 1 || o.Items[0].Name != "Classic Tee" || o.Items[0].Qty != 3 {
		t.Fatalf("bad items snapshot: %+v", o.Items)
	}
	if o.Status != "pending" || o.IsPaid || o.IsDelivered {
		t.Fatalf("bad initial lifecycle: %+v", o)
	}
	if o.UserName != "Buyer" || o.UserEmail != "buyer@test.local" {
		t.Fatalf("owner not joined: %+v", o)
	}
	if o.TotalPrice != 38 {
		t.Fatalf("want total 38, got %v", o.TotalPrice)
	}
}

func TestPlaceOrder_VariantDeductsCombinationAndAggregate(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	_, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-mug", Variants: domain.VariantValues{"Color": "Red"}, Qty: 2, Price: 12.50},
		},
		Shipping:      shipping(),
		PaymentMethod: "stripe",
		ItemsPrice:    25, TotalPrice: 25,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := comboStock(t, db, "p-mug", "c-red"); got != 3 {
		t.Fatalf("want combo stock 3, got %d", got)
	}
	if got := productStock(t, db, "p-mug"); got != 5 {
		t.Fatalf("want aggregate stock 5, got %d", got)
	}
}

func TestPlaceOrder_InsufficientVariantStock(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	_, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-mug", Variants: domain.VariantValues{"Color": "Blue"}, Qty: 5, Price: 12.50},
		},
		Shipping:      shipping(),
		PaymentMethod: "stripe",
	})
	var ins *services.InsufficientStockError
	if !errors.As(err, &ins) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Blue") {
		t.Fatalf("message should name the selected option, got %q", err.Error())
	}
	if ins.Available != 2 {
		t.Fatalf("want available 2, got %d", ins.Available)
	}
	if got := comboStock(t, db, "p-mug", "c-blue"); got != 2 {
		t.Fatalf("combo stock should be unchanged, got %d", got)
	}
	if got := orderCount(t, db); got != 0 {
		t.Fatalf("no order should exist, got %d", got)
	}
}

// Deductions commit per line item; a failure on a later item must leave
// earlier deductions applied with no order created. This is deliberate
// behavior, not a bug to fix with a rollback.
func TestPlaceOrder_PartialFailureKeepsEarlierDeductions(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	_, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-tee", Qty: 3, Price: 10.00},
			{ProductID: "p-mug", Variants: domain.VariantValues{"Color": "Blue"}, Qty: 5, Price: 12.50},
		},
		Shipping:      shipping(),
		PaymentMethod: "stripe",
	})
	var ins *services.InsufficientStockError
	if !errors.As(err, &ins) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if got := productStock(t, db, "p-tee"); got != 7 {
		t.Fatalf("earlier deduction must stay applied: want 7, got %d", got)
	}
	if got := comboStock(t, db, "p-mug", "c-blue"); got != 2 {
		t.Fatalf("failed item must not deduct: want 2, got %d", got)
	}
	if got := orderCount(t, db); got != 0 {
		t.Fatalf("no order should exist, got %d", got)
	}
}

func TestPlaceOrder_VariantExactMatchOnly(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	// Extra key never matches
	_, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-mug", Variants: domain.VariantValues{"Color": "Blue", "Size": "L"}, Qty: 1},
		},
		Shipping: shipping(), PaymentMethod: "stripe",
	})
	var vnf *services.VariantNotFoundError
	if !errors.As(err, &vnf) {
		t.Fatalf("extra key: want VariantNotFoundError, got %v", err)
	}

	// Unknown value never matches
	_, err = svc.Place(buyer(), services.PlaceOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-mug", Variants: domain.VariantValues{"Color": "Green"}, Qty: 1},
		},
		Shipping: shipping(), PaymentMethod: "stripe",
	})
	if !errors.As(err, &vnf) {
		t.Fatalf("unknown value: want VariantNotFoundError, got %v", err)
	}

	// Exact selection matches
	_, err = svc.Place(buyer(), services.PlaceOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-mug", Variants: domain.VariantValues{"Color": "Blue"}, Qty: 1, Price: 12.50},
		},
		Shipping: shipping(), PaymentMethod: "stripe", ItemsPrice: 12.50, TotalPrice: 12.50,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := comboStock(t, db, "p-mug", "c-blue"); got != 1 {
		t.Fatalf("want combo stock 1, got %d", got)
	}
}

// A variant selection against a product with zero combinations degrades
// to the aggregate counter instead of failing.
func TestPlaceOrder_FallbackWithoutCombinations(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	_, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-poster", Variants: domain.VariantValues{"Frame": "Black"}, Qty: 2, Price: 24.00},
		},
		Shipping: shipping(), PaymentMethod: "stripe", ItemsPrice: 48, TotalPrice: 48,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := productStock(t, db, "p-poster"); got != 2 {
		t.Fatalf("want aggregate stock 2, got %d", got)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	_, err := svc.Place(buyer(), services.PlaceOrderInput{Shipping: shipping(), PaymentMethod: "stripe"})
	if !errors.Is(err, services.ErrEmptyCart) {
		t.Fatalf("want ErrEmptyCart, got %v", err)
	}
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	_, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items:    []services.OrderItemInput{{ProductID: "p-ghost", Name: "Ghost Lamp", Qty: 1}},
		Shipping: shipping(), PaymentMethod: "stripe",
	})
	var pnf *services.ProductNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("want ProductNotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Ghost Lamp") {
		t.Fatalf("message should carry the item name, got %q", err.Error())
	}
}

func TestPlaceOrder_StockNeverNegative(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	// p-poster holds 4 units; two orders of 3 cannot both succeed.
	in := services.PlaceOrderInput{
		Items:    []services.OrderItemInput{{ProductID: "p-poster", Qty: 3, Price: 24.00}},
		Shipping: shipping(), PaymentMethod: "stripe", ItemsPrice: 72, TotalPrice: 72,
	}
	if _, err := svc.Place(buyer(), in); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Place(buyer(), in)
	var ins *services.InsufficientStockError
	if !errors.As(err, &ins) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if got := productStock(t, db, "p-poster"); got != 1 {
		t.Fatalf("want stock 1, got %d", got)
	}
}

func TestMarkPaid_SetsPaymentResult(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	o, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items:    []services.OrderItemInput{{ProductID: "p-tee", Qty: 1, Price: 10.00}},
		Shipping: shipping(), PaymentMethod: "paypal", ItemsPrice: 10, TotalPrice: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	paid, err := svc.MarkPaid(o.ID, domain.PaymentResult{
		ID: "pay-1", Status: "COMPLETED", UpdateTime: "2026-01-02T03:04:05Z", EmailAddress: "buyer@test.local",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !paid.IsPaid || paid.PaidAt == "" {
		t.Fatalf("want paid with timestamp, got %+v", paid)
	}
	if paid.Payment == nil || paid.Payment.Status != "COMPLETED" {
		t.Fatalf("payment result not stored: %+v", paid.Payment)
	}
}

func TestMarkPaid_NotFound(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	_, err := svc.MarkPaid("o-ghost", domain.PaymentResult{ID: "pay-1"})
	if !errors.Is(err, services.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateDeliveryStatus(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	o, err := svc.Place(buyer(), services.PlaceOrderInput{
		Items:    []services.OrderItemInput{{ProductID: "p-tee", Qty: 1, Price: 10.00}},
		Shipping: shipping(), PaymentMethod: "paypal", ItemsPrice: 10, TotalPrice: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	upd, err := svc.UpdateDeliveryStatus(o.ID, "delivered")
	if err != nil {
		t.Fatal(err)
	}
	if !upd.IsDelivered || upd.DeliveredAt == "" || upd.Status != "delivered" {
		t.Fatalf("want delivered with timestamp, got %+v", upd)
	}

	// Any other status clears the delivered flag and timestamp.
	upd, err = svc.UpdateDeliveryStatus(o.ID, "pending")
	if err != nil {
		t.Fatal(err)
	}
	if upd.IsDelivered || upd.DeliveredAt != "" {
		t.Fatalf("want delivered cleared, got %+v", upd)
	}

	if _, err := svc.UpdateDeliveryStatus("o-ghost", "delivered"); !errors.Is(err, services.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
}

func TestMyOrders_NewestFirstAndOwnOnly(t *testing.T) {
	db := memdb(t)
	svc := newOrderService(db)

	db.MustExec(`INSERT INTO orders(id,user_id,payment_method,items_price,tax_price,shipping_price,total_price,status,created_at) VALUES
	  ('o-old','u-buyer','paypal',10,0,0,10,'pending','2026-01-01 10:00:00'),
	  ('o-new','u-buyer','paypal',20,0,0,20,'pending','2026-02-01 10:00:00'),
	  ('o-other','u-other','paypal',30,0,0,30,'pending','2026-03-01 10:00:00')`)

	orders, err := svc.MyOrders(buyer())
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("want 2 orders, got %d", len(orders))
	}
	if orders[0].ID != "o-new" || orders[1].ID != "o-old" {
		t.Fatalf("want newest first, got %s,%s", orders[0].ID, orders[1].ID)
	}

	all, err := svc.AllOrders()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "o-other" {
		t.Fatalf("want 3 orders newest first, got %+v", all)
	}
	if all[0].UserName != "Other" {
		t.Fatalf("admin list should carry owner name, got %q", all[0].UserName)
	}
}
