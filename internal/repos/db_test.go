package repos_test

import (
	"testing"

	"oakmart/internal/repos"
)

func TestOpenDB_SchemaAndSeed(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var products int
	if err := db.Get(&products, `SELECT COUNT(*) FROM products`); err != nil {
		t.Fatal(err)
	}
	if products == 0 {
		t.Fatal("fresh database should carry demo products")
	}

	var combos int
	if err := db.Get(&combos, `SELECT COUNT(*) FROM product_combinations`); err != nil {
		t.Fatal(err)
	}
	if combos == 0 {
		t.Fatal("fresh database should carry demo combinations")
	}

	var admins int
	if err := db.Get(&admins, `SELECT COUNT(*) FROM users WHERE role='admin'`); err != nil {
		t.Fatal(err)
	}
	if admins != 1 {
		t.Fatalf("want exactly one seeded admin, got %d", admins)
	}

	// The stock floor is enforced at the schema level too.
	if _, err := db.Exec(`UPDATE products SET stock = -1`); err == nil {
		t.Fatal("negative stock should violate the check constraint")
	}
}
