package cart

import "database/sql"

type PostgresRepository struct {
	db *sql.DB
}

const (
	getCartQuery = `
		SELECT ci.product_id, p.name, p.price, p.stock_quantity, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.product_id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.product_id`

	upsertItemQuery = `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	setQuantityQuery = `UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`

	removeItemQuery = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	clearCartQuery = `DELETE FROM cart_items WHERE user_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(userID int) ([]CartItem, error) {
	rows, err := r.db.Query(getCartQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]CartItem, 0)
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.StockQuantity, &it.Quantity); err != nil {
			return nil, err
		}
		it.InStock = it.StockQuantity >= it.Quantity
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) Upsert(userID, productID, quantity int) error {
	_, err := r.db.Exec(upsertItemQuery, userID, productID, quantity)
	return err
}

func (r *PostgresRepository) SetQuantity(userID, productID, quantity int) error {
	res, err := r.db.Exec(setQuantityQuery, userID, productID, quantity)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PostgresRepository) Remove(userID, productID int) error {
	res, err := r.db.Exec(removeItemQuery, userID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PostgresRepository) Clear(userID int) error {
	_, err := r.db.Exec(clearCartQuery, userID)
	return err
}
