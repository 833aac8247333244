package payment

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"payment_id", "order_id", "user_id", "payment_method",
		"amount", "status", "checkout_request_id", "merchant_request_id",
		"transaction_id", "paid_at", "created_at", "updated_at"})
}

func TestComplete_AdvancesPendingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SET status = 'Completed'").
		WillReturnRows(paymentRows().
			AddRow(1, 41, 7, MethodMpesa, 200.0, StatusCompleted,
				"ws_1", "m_1", "QWERTY123", "2026-01-01T00:00:00Z", "c", "u"))

	p, advanced, err := repo.Complete("ws_1", "QWERTY123", "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !advanced || p.Status != StatusCompleted {
		t.Fatalf("expected advanced Completed payment, got advanced=%v %+v", advanced, p)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestComplete_DuplicateCallbackReturnsExistingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	// the guarded update matches nothing, so the existing row is read back
	mock.ExpectQuery("SET status = 'Completed'").
		WillReturnRows(paymentRows())
	mock.ExpectQuery("WHERE checkout_request_id").WithArgs("ws_1").
		WillReturnRows(paymentRows().
			AddRow(1, 41, 7, MethodMpesa, 200.0, StatusCompleted,
				"ws_1", "m_1", "QWERTY123", "2026-01-01T00:00:00Z", "c", "u"))

	p, advanced, err := repo.Complete("ws_1", "QWERTY123", "2026-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if advanced {
		t.Fatalf("duplicate callback must not report an advance")
	}
	if p.TransactionID != "QWERTY123" {
		t.Fatalf("expected original receipt preserved, got %q", p.TransactionID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestComplete_UnknownCheckoutID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SET status = 'Completed'").
		WillReturnRows(paymentRows())
	mock.ExpectQuery("WHERE checkout_request_id").WithArgs("ws_unknown").
		WillReturnRows(paymentRows())

	if _, _, err := repo.Complete("ws_unknown", "X", "2026-01-01T00:00:00Z"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
