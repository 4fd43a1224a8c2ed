package domain

type ShippingAddress struct {
	Street  string `db:"ship_street" json:"street"`
	City    string `db:"ship_city" json:"city"`
	ZipCode string `db:"ship_zip" json:"zipCode"`
	Country string `db:"ship_country" json:"country"`
}

// PaymentResult is the opaque payload supplied by the payment
// confirmation step; stored as-is, never interpreted.
type PaymentResult struct {
	ID           string `db:"payment_id" json:"id"`
	Status       string `db:"payment_status" json:"status"`
	UpdateTime   string `db:"payment_update_time" json:"update_time"`
	EmailAddress string `db:"payment_email" json:"email_address"`
}

// OrderItem snapshots a product at order time so historical orders stay
// stable when the live product changes.
type OrderItem struct {
	ProductID string        `db:"product_id" json:"product"`
	Name      string        `db:"name" json:"name"`
	Variants  VariantValues `db:"-" json:"variants,omitempty"`
	Qty       int           `db:"qty" json:"qty"`
	Price     float64       `db:"price" json:"price"`
}

type Order struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user"`
	UserName      string          `db:"user_name" json:"userName,omitempty"`
	UserEmail     string          `db:"user_email" json:"userEmail,omitempty"`
	Items         []OrderItem     `db:"-" json:"orderItems"`
	Shipping      ShippingAddress `db:"-" json:"shippingAddress"`
	PaymentMethod string          `db:"payment_method" json:"paymentMethod"`
	ItemsPrice    float64         `db:"items_price" json:"itemsPrice"`
	TaxPrice      float64         `db:"tax_price" json:"taxPrice"`
	ShippingPrice float64         `db:"shipping_price" json:"shippingPrice"`
	TotalPrice    float64         `db:"total_price" json:"totalPrice"`
	IsPaid        bool            `db:"is_paid" json:"isPaid"`
	PaidAt        string          `db:"paid_at" json:"paidAt,omitempty"`
	Payment       *PaymentResult  `db:"-" json:"paymentResult,omitempty"`
	Status        string          `db:"status" json:"status"`
	IsDelivered   bool            `db:"is_delivered" json:"isDelivered"`
	DeliveredAt   string          `db:"delivered_at" json:"deliveredAt,omitempty"`
	CreatedAt     string          `db:"created_at" json:"createdAt"`
}
