package order

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func pendingOrder() Order {
	return Order{
		UserID:         7,
		OrderNumber:    "ORD-1700000000000-abcd1234",
		Status:         StatusPending,
		DeliveryMethod: DeliveryShipping,
		Shipping:       &Shipping{Address: "Moi Ave 12", City: "Nairobi", PostalCode: "00100"},
		CreatedAt:      "2026-01-01T00:00:00Z",
		UpdatedAt:      "2026-01-01T00:00:00Z",
	}
}

func TestCheckout_CommitsOnHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT product_id, quantity FROM cart_items").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(1, 2))
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "stock_quantity", "is_active"}).
			AddRow(1, "Maize flour 2kg", 150.0, 10, true))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(41))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE products SET stock_quantity").WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cart_items").WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ord, err := repo.Checkout(pendingOrder())
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if ord.ID != 41 {
		t.Fatalf("expected order id 41, got %d", ord.ID)
	}
	if ord.TotalPrice != 300 {
		t.Fatalf("expected total 300, got %v", ord.TotalPrice)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCheckout_RollsBackWhenDecrementMisses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT product_id, quantity FROM cart_items").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(1, 2))
	mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "stock_quantity", "is_active"}).
			AddRow(1, "Maize flour 2kg", 150.0, 2, true))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(41))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	// the guarded decrement finds no row to update
	mock.ExpectExec("UPDATE products SET stock_quantity").WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = repo.Checkout(pendingOrder())
	var stockErr *StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected StockError, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCheckout_EmptyCartRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT product_id, quantity FROM cart_items").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}))
	mock.ExpectRollback()

	if _, err := repo.Checkout(pendingOrder()); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkPaid_SecondCallNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("UPDATE orders SET order_status = 'Processing'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET order_status = 'Processing'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	advanced, err := repo.MarkPaid(41)
	if err != nil || !advanced {
		t.Fatalf("first MarkPaid should advance, got advanced=%v err=%v", advanced, err)
	}
	advanced, err = repo.MarkPaid(41)
	if err != nil || advanced {
		t.Fatalf("second MarkPaid must not advance, got advanced=%v err=%v", advanced, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
