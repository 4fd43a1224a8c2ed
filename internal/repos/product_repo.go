package repos

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"oakmart/internal/domain"
)

// ErrInsufficientStock is returned when a conditional decrement touches
// no rows because the counter holds fewer units than requested.
var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `
  id, slug, name, COALESCE(description,'') AS description, category, price, stock,
  featured, rating, reviews, attributes_json,
  created_at, COALESCE(updated_at,'') AS updated_at`

type productRow struct {
	domain.Product
	AttributesJSON sql.NullString `db:"attributes_json"`
}

func (pr productRow) toDomain() (domain.Product, error) {
	p := pr.Product
	if pr.AttributesJSON.Valid && pr.AttributesJSON.String != "" {
		if err := json.Unmarshal([]byte(pr.AttributesJSON.String), &p.Attributes); err != nil {
			return domain.Product{}, err
		}
	}
	return p, nil
}

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var row productRow
	err := r.db.Get(&row, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if err != nil {
		return domain.Product{}, err
	}
	p, err := row.toDomain()
	if err != nil {
		return domain.Product{}, err
	}
	p.Combinations, err = r.combinations(id)
	return p, err
}

func (r *ProductRepo) GetBySlug(slug string) (domain.Product, error) {
	var row productRow
	err := r.db.Get(&row, `SELECT `+productColumns+` FROM products WHERE slug = ?`, slug)
	if err != nil {
		return domain.Product{}, err
	}
	p, err := row.toDomain()
	if err != nil {
		return domain.Product{}, err
	}
	p.Combinations, err = r.combinations(p.ID)
	return p, err
}

func (r *ProductRepo) List() ([]domain.Product, error) {
	var rows []productRow
	err := r.db.Select(&rows, `SELECT `+productColumns+` FROM products ORDER BY datetime(created_at) DESC, id`)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []domain.Product{}, nil
	}

	ids := make([]string, len(rows))
	for i, pr := range rows {
		ids[i] = pr.ID
	}
	query, args, err := sqlx.In(`
	  SELECT product_id, combo_id, position, values_json, stock, price
	  FROM product_combinations WHERE product_id IN (?)
	  ORDER BY product_id, position`, ids)
	if err != nil {
		return nil, err
	}
	var combos []comboRow
	if err := r.db.Select(&combos, query, args...); err != nil {
		return nil, err
	}
	byProduct := make(map[string][]domain.Combination)
	for _, cr := range combos {
		c, err := cr.toDomain()
		if err != nil {
			return nil, err
		}
		byProduct[cr.ProductID] = append(byProduct[cr.ProductID], c)
	}

	out := make([]domain.Product, len(rows))
	for i, pr := range rows {
		p, err := pr.toDomain()
		if err != nil {
			return nil, err
		}
		p.Combinations = byProduct[p.ID]
		out[i] = p
	}
	return out, nil
}

type comboRow struct {
	ProductID  string  `db:"product_id"`
	ComboID    string  `db:"combo_id"`
	Position   int     `db:"position"`
	ValuesJSON string  `db:"values_json"`
	Stock      int     `db:"stock"`
	Price      float64 `db:"price"`
}

// toDomain normalizes the stored values object into the canonical
// VariantValues form so matching never sees raw JSON shapes.
func (cr comboRow) toDomain() (domain.Combination, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(cr.ValuesJSON), &raw); err != nil {
		return domain.Combination{}, err
	}
	return domain.Combination{
		ID:       cr.ComboID,
		Position: cr.Position,
		Values:   domain.NormalizeVariantValues(raw),
		Stock:    cr.Stock,
		Price:    cr.Price,
	}, nil
}

func (r *ProductRepo) combinations(productID string) ([]domain.Combination, error) {
	var rows []comboRow
	err := r.db.Select(&rows, `
	  SELECT product_id, combo_id, position, values_json, stock, price
	  FROM product_combinations
	  WHERE product_id = ?
	  ORDER BY position`, productID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Combination, len(rows))
	for i, cr := range rows {
		c, err := cr.toDomain()
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (r *ProductRepo) Create(p *domain.Product) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`
	  INSERT INTO products(id,slug,name,description,category,price,stock,featured,rating,reviews,attributes_json,created_at)
	  VALUES(?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, p.ID, p.Slug, p.Name, p.Description, p.Category, p.Price, p.Stock, p.Featured, p.Rating, p.Reviews, attrs); err != nil {
		return err
	}
	if err := insertCombinations(tx, p.ID, p.Combinations); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ProductRepo) Update(p *domain.Product) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return err
	}
	res, err := tx.Exec(`
	  UPDATE products SET slug=?, name=?, description=?, category=?, price=?, stock=?,
	    featured=?, rating=?, reviews=?, attributes_json=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=?
	`, p.Slug, p.Name, p.Description, p.Category, p.Price, p.Stock, p.Featured, p.Rating, p.Reviews, attrs, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	// Replace the combination set wholesale; order placement reads it fresh.
	if _, err := tx.Exec(`DELETE FROM product_combinations WHERE product_id=?`, p.ID); err != nil {
		return err
	}
	if err := insertCombinations(tx, p.ID, p.Combinations); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ProductRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func marshalAttributes(attrs []domain.Attribute) (any, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func insertCombinations(tx *sqlx.Tx, productID string, combos []domain.Combination) error {
	for i, c := range combos {
		b, err := json.Marshal(c.Values)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
		  INSERT INTO product_combinations(product_id,combo_id,position,values_json,stock,price)
		  VALUES(?,?,?,?,?,?)
		`, productID, c.ID, i, string(b), c.Stock, c.Price); err != nil {
			return err
		}
	}
	return nil
}

// Stock returns the current aggregate counter for a product.
func (r *ProductRepo) Stock(productID string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT stock FROM products WHERE id = ?`, productID)
	return qty, err
}

// CombinationStock returns the current counter for one combination.
func (r *ProductRepo) CombinationStock(productID, comboID string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `
	  SELECT stock FROM product_combinations WHERE product_id = ? AND combo_id = ?`,
		productID, comboID)
	return qty, err
}

// DecrementStock atomically subtracts "by" units from the aggregate
// counter if enough stock exists. The conditional form closes the race
// between two concurrent orders for the last units.
func (r *ProductRepo) DecrementStock(productID string, by int) error {
	res, err := r.db.Exec(`
		UPDATE products
		SET stock = stock - ?
		WHERE id = ? AND stock >= ?
	`, by, productID, by)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// DecrementCombination subtracts "by" units from one combination and
// mirrors the deduction onto the parent aggregate in the same
// transaction. The combination decrement is conditional; the aggregate
// mirror is best-effort and clamped at zero so a drifted mirror can
// never push the counter negative.
func (r *ProductRepo) DecrementCombination(productID, comboID string, by int) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE product_combinations
		SET stock = stock - ?
		WHERE product_id = ? AND combo_id = ? AND stock >= ?
	`, by, productID, comboID, by)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientStock
	}

	if _, err := tx.Exec(`
		UPDATE products SET stock = max(stock - ?, 0) WHERE id = ?
	`, by, productID); err != nil {
		return err
	}

	return tx.Commit()
}
