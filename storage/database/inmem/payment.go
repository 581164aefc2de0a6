package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db.payment}
}

func purchaseKey(userID, phaseID string) string {
	return userID + "/" + phaseID
}

func copyPayment(p *payment.Payment) payment.Payment {
	cp := *p
	if p.Notes != nil {
		cp.Notes = make(map[string]string, len(p.Notes))
		for k, v := range p.Notes {
			cp.Notes[k] = v
		}
	}
	if p.VerifiedAt != nil {
		at := *p.VerifiedAt
		cp.VerifiedAt = &at
	}
	return cp
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.payments[p.OrderID]; ok {
		return payment.Payment{}, payment.ErrOrderIDDuplicated
	}
	cp := copyPayment(&p)
	repo.db.payments[p.OrderID] = &cp
	return copyPayment(&cp), nil
}

func (repo *paymentRepository) GetPaymentByOrderID(_ context.Context, orderID string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.payments[orderID]; ok {
		return copyPayment(p), nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) CompletePayment(_ context.Context, orderID, paymentID string, at time.Time) (payment.Payment, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.payments[orderID]
	if !ok {
		return payment.Payment{}, false, payment.ErrNotFound
	}
	if p.Status == payment.StatusCompleted {
		return copyPayment(p), false, nil
	}
	p.PaymentID = paymentID
	p.Status = payment.StatusCompleted
	p.Verified = true
	p.VerifiedAt = &at
	p.UpdatedAt = at
	return copyPayment(p), true, nil
}

func (repo *paymentRepository) FailPayment(_ context.Context, orderID, paymentID string) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.payments[orderID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	if p.Status == payment.StatusPending {
		p.PaymentID = paymentID
		p.Status = payment.StatusFailed
		p.UpdatedAt = core.NowFunc()
	}
	return copyPayment(p), nil
}

func (repo *paymentRepository) ListPayments(_ context.Context, userID string) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, p := range repo.db.payments {
		if p.UserID == userID {
			payments = append(payments, copyPayment(p))
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.After(payments[j].CreatedAt) })
	return payments, nil
}

func (repo *paymentRepository) SavePurchase(_ context.Context, pu payment.Purchase) (payment.Purchase, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := purchaseKey(pu.UserID, pu.PhaseID)
	if orig, ok := repo.db.purchases[key]; ok && orig.Status == payment.StatusCompleted {
		pu.PurchasedAt = orig.PurchasedAt
	}
	repo.db.purchases[key] = &pu
	return pu, nil
}

func (repo *paymentRepository) GetPurchase(_ context.Context, userID, phaseID string) (payment.Purchase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pu, ok := repo.db.purchases[purchaseKey(userID, phaseID)]; ok {
		return *pu, nil
	}
	return payment.Purchase{}, payment.ErrPurchaseNotFound
}

func (repo *paymentRepository) ListPurchases(_ context.Context, userID string) ([]payment.Purchase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	purchases := make([]payment.Purchase, 0)
	for _, pu := range repo.db.purchases {
		if pu.UserID == userID {
			purchases = append(purchases, *pu)
		}
	}
	sort.Slice(purchases, func(i, j int) bool { return purchases[i].PurchasedAt.Before(purchases[j].PurchasedAt) })
	return purchases, nil
}
