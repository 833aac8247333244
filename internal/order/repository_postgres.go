package order

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	cartLinesQuery = `SELECT product_id, quantity FROM cart_items WHERE user_id = $1`

	// Locks the product rows for the life of the transaction so the
	// check-then-decrement below cannot race another checkout.
	lockProductsQuery = `
		SELECT product_id, name, price, stock_quantity, is_active
		FROM products
		WHERE product_id = ANY($1::int[])
		FOR UPDATE`

	insertOrderQuery = `
		INSERT INTO orders (user_id, order_number, total_price, order_status, delivery_method,
			ship_address, ship_city, ship_postal_code, pickup_location_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING order_id`

	insertOrderItemQuery = `
		INSERT INTO order_items (order_id, product_id, name, quantity, price)
		VALUES ($1, $2, $3, $4, $5)`

	// Conditional decrement with a floor at zero. Zero rows affected means a
	// concurrent writer got there first and the whole checkout must abort.
	decrementStockQuery = `
		UPDATE products
		SET stock_quantity = stock_quantity - $2
		WHERE product_id = $1 AND stock_quantity >= $2`

	orderColumns = `order_id, user_id, order_number, total_price, order_status, delivery_method,
		ship_address, ship_city, ship_postal_code, pickup_location_id, created_at, updated_at`

	getOrderQuery = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	listByUserQuery = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY order_id DESC`

	listAllQuery = `SELECT ` + orderColumns + ` FROM orders ORDER BY order_id DESC`

	itemsForOrdersQuery = `
		SELECT order_id, product_id, name, quantity, price
		FROM order_items
		WHERE order_id = ANY($1::int[])
		ORDER BY array_position($1::int[], order_id), product_id`

	updateStatusQuery = `UPDATE orders SET order_status = $2, updated_at = $3 WHERE order_id = $1`

	markPaidQuery = `
		UPDATE orders SET order_status = 'Processing', updated_at = $2
		WHERE order_id = $1 AND order_status = 'Pending'`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Checkout runs the whole cart-to-order conversion in one transaction: any
// failure rolls back with no stock decrement, no order row and the cart
// untouched.
func (r *PostgresRepository) Checkout(ord Order) (Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	if ord.DeliveryMethod == DeliveryPickup {
		var active bool
		err := tx.QueryRow(`SELECT is_active FROM pickup_locations WHERE location_id = $1`,
			*ord.PickupLocationID).Scan(&active)
		if err == sql.ErrNoRows {
			return Order{}, ErrPickupUnavailable
		}
		if err != nil {
			return Order{}, err
		}
		if !active {
			return Order{}, ErrPickupUnavailable
		}
	}

	rows, err := tx.Query(cartLinesQuery, ord.UserID)
	if err != nil {
		return Order{}, err
	}
	lines := make(map[int]int)
	ids := make([]int, 0)
	for rows.Next() {
		var pid, qty int
		if err := rows.Scan(&pid, &qty); err != nil {
			rows.Close()
			return Order{}, err
		}
		lines[pid] = qty
		ids = append(ids, pid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Order{}, err
	}
	if len(lines) == 0 {
		return Order{}, ErrCartEmpty
	}

	type snapshot struct {
		name  string
		price float64
		stock int
	}
	prods := make(map[int]snapshot, len(ids))
	prows, err := tx.Query(lockProductsQuery, pq.Array(ids))
	if err != nil {
		return Order{}, err
	}
	for prows.Next() {
		var (
			pid    int
			snap   snapshot
			active bool
		)
		if err := prows.Scan(&pid, &snap.name, &snap.price, &snap.stock, &active); err != nil {
			prows.Close()
			return Order{}, err
		}
		if active {
			prods[pid] = snap
		}
	}
	prows.Close()
	if err := prows.Err(); err != nil {
		return Order{}, err
	}

	ord.Items = make([]OrderItem, 0, len(ids))
	ord.TotalPrice = 0
	for _, pid := range ids {
		snap, ok := prods[pid]
		if !ok {
			return Order{}, ErrInvalidCartProduct
		}
		qty := lines[pid]
		if snap.stock < qty {
			return Order{}, &StockError{ProductName: snap.name}
		}
		ord.Items = append(ord.Items, OrderItem{ProductID: pid, Name: snap.name, Quantity: qty, Price: snap.price})
		ord.TotalPrice += float64(qty) * snap.price
	}

	var shipAddr, shipCity, shipPostal sql.NullString
	if ord.Shipping != nil {
		shipAddr = sql.NullString{String: ord.Shipping.Address, Valid: true}
		shipCity = sql.NullString{String: ord.Shipping.City, Valid: true}
		shipPostal = sql.NullString{String: ord.Shipping.PostalCode, Valid: true}
	}
	var pickupID sql.NullInt64
	if ord.PickupLocationID != nil {
		pickupID = sql.NullInt64{Int64: int64(*ord.PickupLocationID), Valid: true}
	}

	err = tx.QueryRow(insertOrderQuery,
		ord.UserID, ord.OrderNumber, ord.TotalPrice, ord.Status, ord.DeliveryMethod,
		shipAddr, shipCity, shipPostal, pickupID, ord.CreatedAt, ord.UpdatedAt,
	).Scan(&ord.ID)
	if err != nil {
		return Order{}, err
	}

	for _, it := range ord.Items {
		if _, err := tx.Exec(insertOrderItemQuery, ord.ID, it.ProductID, it.Name, it.Quantity, it.Price); err != nil {
			return Order{}, err
		}
		res, err := tx.Exec(decrementStockQuery, it.ProductID, it.Quantity)
		if err != nil {
			return Order{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return Order{}, &StockError{ProductName: it.Name}
		}
	}

	if _, err := tx.Exec(`DELETE FROM cart_items WHERE user_id = $1`, ord.UserID); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) GetByID(id int) (Order, error) {
	ord, err := scanOrder(r.db.QueryRow(getOrderQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}

	if err := r.loadItems([]*Order{&ord}); err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) ListByUser(userID int) ([]Order, error) {
	return r.list(listByUserQuery, userID)
}

func (r *PostgresRepository) List() ([]Order, error) {
	return r.list(listAllQuery)
}

func (r *PostgresRepository) list(query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.loadItems(refs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PostgresRepository) loadItems(orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int, 0, len(orders))
	byID := make(map[int]*Order, len(orders))
	for _, ord := range orders {
		ids = append(ids, ord.ID)
		byID[ord.ID] = ord
		ord.Items = make([]OrderItem, 0)
	}

	rows, err := r.db.Query(itemsForOrdersQuery, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int
			it      OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return err
		}
		if ord, ok := byID[orderID]; ok {
			ord.Items = append(ord.Items, it)
		}
	}
	return rows.Err()
}

func (r *PostgresRepository) UpdateStatus(id int, status string) (Order, error) {
	res, err := r.db.Exec(updateStatusQuery, id, status, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Order{}, ErrNotFound
	}
	return r.GetByID(id)
}

func (r *PostgresRepository) MarkPaid(id int) (bool, error) {
	res, err := r.db.Exec(markPaidQuery, id, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		ord        Order
		shipAddr   sql.NullString
		shipCity   sql.NullString
		shipPostal sql.NullString
		pickupID   sql.NullInt64
	)
	err := row.Scan(&ord.ID, &ord.UserID, &ord.OrderNumber, &ord.TotalPrice, &ord.Status,
		&ord.DeliveryMethod, &shipAddr, &shipCity, &shipPostal, &pickupID,
		&ord.CreatedAt, &ord.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	if ord.DeliveryMethod == DeliveryShipping && shipAddr.Valid {
		ord.Shipping = &Shipping{
			Address:    shipAddr.String,
			City:       shipCity.String,
			PostalCode: shipPostal.String,
		}
	}
	if pickupID.Valid {
		id := int(pickupID.Int64)
		ord.PickupLocationID = &id
	}
	return ord, nil
}
