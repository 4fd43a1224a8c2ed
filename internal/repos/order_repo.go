package repos

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"oakmart/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `
  o.id, o.user_id, COALESCE(u.name,'') AS user_name, COALESCE(u.email,'') AS user_email,
  COALESCE(o.ship_street,'') AS ship_street, COALESCE(o.ship_city,'') AS ship_city,
  COALESCE(o.ship_zip,'') AS ship_zip, COALESCE(o.ship_country,'') AS ship_country,
  o.payment_method, o.items_price, o.tax_price, o.shipping_price, o.total_price,
  o.is_paid, COALESCE(o.paid_at,'') AS paid_at,
  COALESCE(o.payment_id,'') AS payment_id, COALESCE(o.payment_status,'') AS payment_status,
  COALESCE(o.payment_update_time,'') AS payment_update_time, COALESCE(o.payment_email,'') AS payment_email,
  o.status, o.is_delivered, COALESCE(o.delivered_at,'') AS delivered_at, o.created_at`

type orderRow struct {
	domain.Order
	domain.ShippingAddress
	PayID         string `db:"payment_id"`
	PayStatus     string `db:"payment_status"`
	PayUpdateTime string `db:"payment_update_time"`
	PayEmail      string `db:"payment_email"`
}

func (or orderRow) toDomain() domain.Order {
	o := or.Order
	o.Shipping = or.ShippingAddress
	if or.PayID != "" || or.PayStatus != "" {
		o.Payment = &domain.PaymentResult{
			ID:           or.PayID,
			Status:       or.PayStatus,
			UpdateTime:   or.PayUpdateTime,
			EmailAddress: or.PayEmail,
		}
	}
	return o
}

// Create persists the order header and its line items in one
// transaction; the order either exists whole or not at all.
func (r *OrderRepo) Create(o *domain.Order) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO orders(
	    id, user_id, ship_street, ship_city, ship_zip, ship_country,
	    payment_method, items_price, tax_price, shipping_price, total_price,
	    status, created_at)
	  VALUES(?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, o.ID, o.UserID, o.Shipping.Street, o.Shipping.City, o.Shipping.ZipCode, o.Shipping.Country,
		o.PaymentMethod, o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice, o.Status); err != nil {
		return err
	}

	for i, it := range o.Items {
		var variants any
		if len(it.Variants) > 0 {
			b, err := json.Marshal(it.Variants)
			if err != nil {
				return err
			}
			variants = string(b)
		}
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, position, product_id, name, variants_json, qty, price)
		  VALUES(?,?,?,?,?,?,?)
		`, o.ID, i, it.ProductID, it.Name, variants, it.Qty, it.Price); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get returns one order augmented with the owning user's name/email.
func (r *OrderRepo) Get(orderID string) (domain.Order, error) {
	var row orderRow
	err := r.db.Get(&row, `
	  SELECT `+orderColumns+`
	  FROM orders o LEFT JOIN users u ON u.id = o.user_id
	  WHERE o.id = ?`, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	o := row.toDomain()
	o.Items, err = r.items(orderID)
	return o, err
}

type itemRow struct {
	ProductID    string         `db:"product_id"`
	Name         string         `db:"name"`
	VariantsJSON sql.NullString `db:"variants_json"`
	Qty          int            `db:"qty"`
	Price        float64        `db:"price"`
}

func (r *OrderRepo) items(orderID string) ([]domain.OrderItem, error) {
	var rows []itemRow
	err := r.db.Select(&rows, `
	  SELECT product_id, name, variants_json, qty, price
	  FROM order_items WHERE order_id = ?
	  ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrderItem, len(rows))
	for i, ir := range rows {
		it := domain.OrderItem{ProductID: ir.ProductID, Name: ir.Name, Qty: ir.Qty, Price: ir.Price}
		if ir.VariantsJSON.Valid && ir.VariantsJSON.String != "" {
			var raw map[string]any
			if err := json.Unmarshal([]byte(ir.VariantsJSON.String), &raw); err != nil {
				return nil, err
			}
			it.Variants = domain.NormalizeVariantValues(raw)
		}
		out[i] = it
	}
	return out, nil
}

// ListByUser returns a user's orders, newest first, without line items.
func (r *OrderRepo) ListByUser(userID string) ([]domain.Order, error) {
	var rows []orderRow
	err := r.db.Select(&rows, `
	  SELECT `+orderColumns+`
	  FROM orders o LEFT JOIN users u ON u.id = o.user_id
	  WHERE o.user_id = ?
	  ORDER BY datetime(o.created_at) DESC, o.id`, userID)
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

// ListAll returns every order, newest first, each carrying owner
// id/name for the administrative listing.
func (r *OrderRepo) ListAll() ([]domain.Order, error) {
	var rows []orderRow
	err := r.db.Select(&rows, `
	  SELECT `+orderColumns+`
	  FROM orders o LEFT JOIN users u ON u.id = o.user_id
	  ORDER BY datetime(o.created_at) DESC, o.id`)
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func toDomainList(rows []orderRow) []domain.Order {
	out := make([]domain.Order, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out
}

// MarkPaid sets the paid flag, timestamp and the opaque payment result.
func (r *OrderRepo) MarkPaid(orderID string, p domain.PaymentResult) error {
	res, err := r.db.Exec(`
	  UPDATE orders
	  SET is_paid = 1, paid_at = CURRENT_TIMESTAMP,
	      payment_id = ?, payment_status = ?, payment_update_time = ?, payment_email = ?
	  WHERE id = ?`, p.ID, p.Status, p.UpdateTime, p.EmailAddress, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus sets the fulfillment status; delivered toggles the
// delivered flag and timestamp.
func (r *OrderRepo) UpdateStatus(orderID, status string, delivered bool) error {
	var (
		res sql.Result
		err error
	)
	if delivered {
		res, err = r.db.Exec(`
		  UPDATE orders SET status = ?, is_delivered = 1, delivered_at = CURRENT_TIMESTAMP
		  WHERE id = ?`, status, orderID)
	} else {
		res, err = r.db.Exec(`
		  UPDATE orders SET status = ?, is_delivered = 0, delivered_at = NULL
		  WHERE id = ?`, status, orderID)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
