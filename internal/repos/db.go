package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline catalog if DB is empty
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  featured INTEGER NOT NULL DEFAULT 0,
  rating NUMERIC NOT NULL DEFAULT 0,
  reviews INTEGER NOT NULL DEFAULT 0,
  attributes_json TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

-- Variant combinations; position keeps the product-defined order
CREATE TABLE IF NOT EXISTS product_combinations(
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  combo_id TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  values_json TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  price NUMERIC NOT NULL DEFAULT 0,
  PRIMARY KEY(product_id, combo_id)
);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('customer','admin')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  ship_street TEXT,
  ship_city TEXT,
  ship_zip TEXT,
  ship_country TEXT,
  payment_method TEXT NOT NULL,
  items_price NUMERIC NOT NULL DEFAULT 0,
  tax_price NUMERIC NOT NULL DEFAULT 0,
  shipping_price NUMERIC NOT NULL DEFAULT 0,
  total_price NUMERIC NOT NULL DEFAULT 0,
  is_paid INTEGER NOT NULL DEFAULT 0,
  paid_at TEXT,
  payment_id TEXT,
  payment_status TEXT,
  payment_update_time TEXT,
  payment_email TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  is_delivered INTEGER NOT NULL DEFAULT 0,
  delivered_at TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

-- Line items; position keeps the submitted cart order
CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  variants_json TEXT,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, position)
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products/combinations")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO products(id,slug,name,description,category,price,stock,featured,attributes_json) VALUES
	  ('prod-tee-classic','classic-tee','Classic Tee','Soft cotton tee','apparel',19.99,12,1,
	   '[{"name":"Size","options":["M","L"]},{"name":"Color","options":["Red","Blue"]}]'),
	  ('prod-mug-enamel','enamel-mug','Enamel Mug','Campfire enamel mug','kitchen',12.50,30,0,NULL),
	  ('prod-poster-map','city-map-poster','City Map Poster','A2 matte print','decor',24.00,8,0,NULL)`)

	tx.MustExec(`INSERT INTO product_combinations(product_id,combo_id,position,values_json,stock,price) VALUES
	  ('prod-tee-classic','c-m-red', 0,'{"Size":"M","Color":"Red"}', 4,19.99),
	  ('prod-tee-classic','c-m-blue',1,'{"Size":"M","Color":"Blue"}',2,19.99),
	  ('prod-tee-classic','c-l-red', 2,'{"Size":"L","Color":"Red"}', 3,21.99),
	  ('prod-tee-classic','c-l-blue',3,'{"Size":"L","Color":"Blue"}',3,21.99)`)

	return tx.Commit()
}

// seedUsers ensures one admin and one customer exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-admin", "admin@oakmart.test", "Admin User", "admin", "admin123"),
		mk("u-john", "john@oakmart.test", "John Doe", "customer", "123123"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
