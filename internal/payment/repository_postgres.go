package payment

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const paymentColumns = `payment_id, order_id, user_id, payment_method, amount, status,
	COALESCE(checkout_request_id, ''), COALESCE(merchant_request_id, ''),
	COALESCE(transaction_id, ''), COALESCE(paid_at, ''), created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Method, &p.Amount, &p.Status,
		&p.CheckoutRequestID, &p.MerchantRequestID, &p.TransactionID, &p.PaidAt,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePending relies on the partial unique index on payments(order_id)
// WHERE status = 'Pending' to enforce at most one open attempt per order,
// so two racing initiations resolve at the database rather than in Go.
func (r *PostgresRepository) CreatePending(p Payment) (Payment, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	row := r.db.QueryRow(`
		INSERT INTO payments
			(order_id, user_id, payment_method, amount, status,
			 checkout_request_id, merchant_request_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'Pending', $5, $6, $7, $7)
		RETURNING `+paymentColumns,
		p.OrderID, p.UserID, p.Method, p.Amount,
		p.CheckoutRequestID, p.MerchantRequestID, now)

	created, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Payment{}, ErrPaymentPending
		}
		return Payment{}, err
	}
	return created, nil
}

func (r *PostgresRepository) HasPending(orderID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1 AND status = 'Pending')`,
		orderID).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) GetByID(id int) (Payment, error) {
	row := r.db.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) GetByCheckoutID(checkoutID string) (Payment, error) {
	row := r.db.QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE checkout_request_id = $1`, checkoutID)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	return p, err
}

const completeQuery = `
	UPDATE payments
	SET status = 'Completed', transaction_id = $2, paid_at = $3, updated_at = $4
	WHERE checkout_request_id = $1 AND status = 'Pending'
	RETURNING ` + paymentColumns

func (r *PostgresRepository) Complete(checkoutID, transactionID, paidAt string) (Payment, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	row := r.db.QueryRow(completeQuery, checkoutID, transactionID, paidAt, now)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the payment does not exist or the callback is a duplicate.
		existing, getErr := r.GetByCheckoutID(checkoutID)
		if getErr != nil {
			return Payment{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return Payment{}, false, err
	}
	return p, true, nil
}

const failQuery = `
	UPDATE payments
	SET status = 'Failed', updated_at = $2
	WHERE checkout_request_id = $1 AND status = 'Pending'
	RETURNING ` + paymentColumns

func (r *PostgresRepository) Fail(checkoutID string) (Payment, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	row := r.db.QueryRow(failQuery, checkoutID, now)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := r.GetByCheckoutID(checkoutID)
		if getErr != nil {
			return Payment{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return Payment{}, false, err
	}
	return p, true, nil
}

func (r *PostgresRepository) List() ([]Payment, error) {
	return r.queryPayments(`SELECT ` + paymentColumns + ` FROM payments ORDER BY payment_id`)
}

func (r *PostgresRepository) ListByUser(userID int) ([]Payment, error) {
	return r.queryPayments(`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY payment_id`, userID)
}

func (r *PostgresRepository) ListByOrder(orderID int) ([]Payment, error) {
	return r.queryPayments(`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY payment_id`, orderID)
}

func (r *PostgresRepository) queryPayments(query string, args ...any) ([]Payment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(id int, status string) (Payment, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	row := r.db.QueryRow(`
		UPDATE payments SET status = $2, updated_at = $3
		WHERE payment_id = $1
		RETURNING `+paymentColumns, id, status, now)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	return p, err
}
