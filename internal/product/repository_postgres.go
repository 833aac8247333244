package product

import "database/sql"

type PostgresRepository struct {
	db *sql.DB
}

const (
	productColumns = `product_id, name, category_id, price, COALESCE(description, ''),
		stock_quantity, is_active, created_at, updated_at`

	listProductsQuery = `SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY product_id`

	listProductsByCategoryQuery = `SELECT ` + productColumns + `
		FROM products WHERE is_active AND category_id = $1 ORDER BY product_id`

	getProductQuery = `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`

	insertProductQuery = `
		INSERT INTO products (name, category_id, price, description, stock_quantity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING product_id`

	updateProductQuery = `
		UPDATE products
		SET name = $1, category_id = $2, price = $3, description = $4,
			stock_quantity = $5, is_active = $6, updated_at = $7
		WHERE product_id = $8`

	deleteProductQuery = `UPDATE products SET is_active = FALSE WHERE product_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(categoryID int) ([]Product, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if categoryID > 0 {
		rows, err = r.db.Query(listProductsByCategoryQuery, categoryID)
	} else {
		rows, err = r.db.Query(listProductsQuery)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Description,
			&p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(id int) (Product, error) {
	var p Product
	err := r.db.QueryRow(getProductQuery, id).Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price,
		&p.Description, &p.StockQuantity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(p Product) (Product, error) {
	err := r.db.QueryRow(insertProductQuery,
		p.Name, p.CategoryID, p.Price, p.Description, p.StockQuantity, p.IsActive,
		p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Update(id int, p Product) (Product, error) {
	res, err := r.db.Exec(updateProductQuery,
		p.Name, p.CategoryID, p.Price, p.Description, p.StockQuantity, p.IsActive,
		p.UpdatedAt, id)
	if err != nil {
		return Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Product{}, ErrNotFound
	}
	p.ID = id
	return p, nil
}

// Delete soft-deletes: the row must survive so existing order items keep a
// valid product reference.
func (r *PostgresRepository) Delete(id int) error {
	res, err := r.db.Exec(deleteProductQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
