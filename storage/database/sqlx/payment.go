package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/payment"
)

const (
	paymentColumns  = "id, user_id, phase_id, order_id, payment_id, amount, currency, status, payment_method, receipt, notes, verified, verified_at, created_at, updated_at"
	purchaseColumns = "user_id, phase_id, payment_id, amount, currency, status, purchased_at"
)

type paymentRow struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	PhaseID       string         `db:"phase_id"`
	OrderID       string         `db:"order_id"`
	PaymentID     string         `db:"payment_id"`
	Amount        float64        `db:"amount"`
	Currency      string         `db:"currency"`
	Status        string         `db:"status"`
	PaymentMethod string         `db:"payment_method"`
	Receipt       string         `db:"receipt"`
	Notes         types.JSONText `db:"notes"`
	Verified      bool           `db:"verified"`
	VerifiedAt    null.Time      `db:"verified_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r paymentRow) payment() (payment.Payment, error) {
	p := payment.Payment{
		ID:            r.ID,
		UserID:        r.UserID,
		PhaseID:       r.PhaseID,
		OrderID:       r.OrderID,
		PaymentID:     r.PaymentID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Status:        r.Status,
		PaymentMethod: r.PaymentMethod,
		Receipt:       r.Receipt,
		Verified:      r.Verified,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.VerifiedAt.Valid {
		at := r.VerifiedAt.Time.UTC()
		p.VerifiedAt = &at
	}
	if err := fromJSON(r.Notes, &p.Notes); err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

type purchaseRow struct {
	UserID      string    `db:"user_id"`
	PhaseID     string    `db:"phase_id"`
	PaymentID   string    `db:"payment_id"`
	Amount      float64   `db:"amount"`
	Currency    string    `db:"currency"`
	Status      string    `db:"status"`
	PurchasedAt time.Time `db:"purchased_at"`
}

func (r purchaseRow) purchase() payment.Purchase {
	pu := payment.Purchase(r)
	pu.PurchasedAt = r.PurchasedAt.UTC()
	return pu
}

type paymentRepository struct {
	store
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *sqlx.DB, conf *core.Config) *paymentRepository {
	return &paymentRepository{store: newStore(db, conf)}
}

func (repo *paymentRepository) getPayment(ctx context.Context, op, query string, args ...interface{}) (payment.Payment, error) {
	var row paymentRow
	if err := repo.get(ctx, op, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, errors.Wrap(err, op)
	}
	return row.payment()
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	notes := p.Notes
	if notes == nil {
		notes = map[string]string{}
	}
	notesJSON, err := toJSON(notes)
	if err != nil {
		return payment.Payment{}, err
	}

	q := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + paymentColumns
	var row paymentRow
	err = repo.get(ctx, "creating payment", &row, q,
		p.ID, p.UserID, p.PhaseID, p.OrderID, p.PaymentID, p.Amount, p.Currency, p.Status, p.PaymentMethod, p.Receipt,
		notesJSON, p.Verified, null.TimeFromPtr(p.VerifiedAt), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return payment.Payment{}, payment.ErrOrderIDDuplicated
		}
		return payment.Payment{}, errors.Wrap(err, "creating payment")
	}
	return row.payment()
}

func (repo *paymentRepository) GetPaymentByOrderID(ctx context.Context, orderID string) (payment.Payment, error) {
	return repo.getPayment(ctx, "finding payment", "SELECT "+paymentColumns+" FROM payments WHERE order_id = $1", orderID)
}

func (repo *paymentRepository) CompletePayment(ctx context.Context, orderID, paymentID string, at time.Time) (payment.Payment, bool, error) {
	q := `UPDATE payments SET payment_id = $2, status = $3, verified = TRUE, verified_at = $4, updated_at = $4
		WHERE order_id = $1 AND status <> $3
		RETURNING ` + paymentColumns
	p, err := repo.getPayment(ctx, "completing payment", q, orderID, paymentID, payment.StatusCompleted, at.UTC())
	if err == nil {
		return p, true, nil
	}
	if errors.Cause(err) != payment.ErrNotFound {
		return payment.Payment{}, false, err
	}
	// either unknown or already completed
	p, err = repo.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return payment.Payment{}, false, err
	}
	return p, false, nil
}

func (repo *paymentRepository) FailPayment(ctx context.Context, orderID, paymentID string) (payment.Payment, error) {
	q := `UPDATE payments SET payment_id = $2, status = $3, updated_at = $4
		WHERE order_id = $1 AND status = $5
		RETURNING ` + paymentColumns
	p, err := repo.getPayment(ctx, "failing payment", q, orderID, paymentID, payment.StatusFailed, core.NowFunc(), payment.StatusPending)
	if err != nil && errors.Cause(err) == payment.ErrNotFound {
		return repo.GetPaymentByOrderID(ctx, orderID)
	}
	return p, err
}

func (repo *paymentRepository) ListPayments(ctx context.Context, userID string) ([]payment.Payment, error) {
	var rows []paymentRow
	q := "SELECT " + paymentColumns + " FROM payments WHERE user_id = $1 ORDER BY created_at DESC"
	if err := repo.selectRows(ctx, "listing payments", &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "listing payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		p, err := r.payment()
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// SavePurchase keeps the original purchase date of a completed purchase.
func (repo *paymentRepository) SavePurchase(ctx context.Context, pu payment.Purchase) (payment.Purchase, error) {
	q := `INSERT INTO purchases (` + purchaseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, phase_id) DO UPDATE SET
			payment_id = EXCLUDED.payment_id, amount = EXCLUDED.amount, currency = EXCLUDED.currency, status = EXCLUDED.status,
			purchased_at = CASE WHEN purchases.status = 'completed' THEN purchases.purchased_at ELSE EXCLUDED.purchased_at END
		RETURNING ` + purchaseColumns
	var row purchaseRow
	err := repo.get(ctx, "saving purchase", &row, q,
		pu.UserID, pu.PhaseID, pu.PaymentID, pu.Amount, pu.Currency, pu.Status, pu.PurchasedAt.UTC())
	if err != nil {
		return payment.Purchase{}, errors.Wrap(err, "saving purchase")
	}
	return row.purchase(), nil
}

func (repo *paymentRepository) GetPurchase(ctx context.Context, userID, phaseID string) (payment.Purchase, error) {
	var row purchaseRow
	q := "SELECT " + purchaseColumns + " FROM purchases WHERE user_id = $1 AND phase_id = $2"
	if err := repo.get(ctx, "finding purchase", &row, q, userID, phaseID); err != nil {
		if err == sql.ErrNoRows {
			return payment.Purchase{}, payment.ErrPurchaseNotFound
		}
		return payment.Purchase{}, errors.Wrap(err, "finding purchase")
	}
	return row.purchase(), nil
}

func (repo *paymentRepository) ListPurchases(ctx context.Context, userID string) ([]payment.Purchase, error) {
	var rows []purchaseRow
	q := "SELECT " + purchaseColumns + " FROM purchases WHERE user_id = $1 ORDER BY purchased_at"
	if err := repo.selectRows(ctx, "listing purchases", &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "listing purchases")
	}
	purchases := make([]payment.Purchase, 0, len(rows))
	for _, r := range rows {
		purchases = append(purchases, r.purchase())
	}
	return purchases, nil
}
