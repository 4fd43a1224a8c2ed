package domain

// VariantValues is the canonical representation of a variant selection:
// attribute name -> chosen option, e.g. {"Size":"L","Color":"Red"}.
// Repos and request validation normalize into this type at the boundary
// so no use-site ever branches on representation.
type VariantValues map[string]string

type Attribute struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

type Product struct {
	ID          string  `db:"id" json:"id"`
	Slug        string  `db:"slug" json:"slug"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	Category    string  `db:"category" json:"category"`
	Price       float64 `db:"price" json:"price"`
	Stock       int     `db:"stock" json:"stock"`
	Featured    bool    `db:"featured" json:"featured"`
	Rating      float64 `db:"rating" json:"rating"`
	Reviews     int     `db:"reviews" json:"reviews"`
	CreatedAt   string  `db:"created_at" json:"createdAt"`
	UpdatedAt   string  `db:"updated_at" json:"updatedAt,omitempty"`

	// Loaded from attributes_json and the combinations table.
	Attributes   []Attribute   `db:"-" json:"attributes,omitempty"`
	Combinations []Combination `db:"-" json:"combinations,omitempty"`
}

// Combination is one stock-bearing variant of a product.
type Combination struct {
	ID       string        `db:"combo_id" json:"id"`
	Position int           `db:"position" json:"-"`
	Values   VariantValues `db:"-" json:"values"`
	Stock    int           `db:"stock" json:"stock"`
	Price    float64       `db:"price" json:"price"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}
