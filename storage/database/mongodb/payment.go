package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/payment"
)

type paymentDoc struct {
	ID            string            `bson:"_id"`
	UserID        string            `bson:"userId"`
	PhaseID       string            `bson:"phaseId"`
	OrderID       string            `bson:"orderId"`
	PaymentID     string            `bson:"paymentId"`
	Amount        float64           `bson:"amount"`
	Currency      string            `bson:"currency"`
	Status        string            `bson:"status"`
	PaymentMethod string            `bson:"paymentMethod"`
	Receipt       string            `bson:"receipt"`
	Notes         map[string]string `bson:"notes"`
	Verified      bool              `bson:"verified"`
	VerifiedAt    *time.Time        `bson:"verifiedAt,omitempty"`
	CreatedAt     time.Time         `bson:"createdAt"`
	UpdatedAt     time.Time         `bson:"updatedAt"`
}

func (d paymentDoc) payment() payment.Payment {
	p := payment.Payment(d)
	p.CreatedAt = d.CreatedAt.UTC()
	p.UpdatedAt = d.UpdatedAt.UTC()
	if d.VerifiedAt != nil {
		at := d.VerifiedAt.UTC()
		p.VerifiedAt = &at
	}
	return p
}

type purchaseDoc struct {
	UserID      string    `bson:"userId"`
	PhaseID     string    `bson:"phaseId"`
	PaymentID   string    `bson:"paymentId"`
	Amount      float64   `bson:"amount"`
	Currency    string    `bson:"currency"`
	Status      string    `bson:"status"`
	PurchasedAt time.Time `bson:"purchasedAt"`
}

func (d purchaseDoc) purchase() payment.Purchase {
	pu := payment.Purchase(d)
	pu.PurchasedAt = d.PurchasedAt.UTC()
	return pu
}

type paymentRepository struct {
	store
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *mongo.Database, conf *core.Config) *paymentRepository {
	return &paymentRepository{store: newStore(db, conf)}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	err := repo.retry.Do(ctx, "creating payment", func(ctx context.Context) error {
		_, err := repo.col(colPayments).InsertOne(ctx, paymentDoc(p))
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return payment.Payment{}, payment.ErrOrderIDDuplicated
		}
		return payment.Payment{}, errors.Wrap(err, "creating payment")
	}
	return p, nil
}

func (repo *paymentRepository) GetPaymentByOrderID(ctx context.Context, orderID string) (payment.Payment, error) {
	var doc paymentDoc
	err := repo.retry.Do(ctx, "finding payment", func(ctx context.Context) error {
		return repo.col(colPayments).FindOne(ctx, bson.M{"orderId": orderID}).Decode(&doc)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return payment.Payment{}, payment.ErrNotFound
		}
		return payment.Payment{}, errors.Wrap(err, "finding payment")
	}
	return doc.payment(), nil
}

// CompletePayment only matches payments not completed yet, so that concurrent verifications complete it once.
func (repo *paymentRepository) CompletePayment(ctx context.Context, orderID, paymentID string, at time.Time) (payment.Payment, bool, error) {
	filter := bson.M{"orderId": orderID, "status": bson.M{"$ne": payment.StatusCompleted}}
	update := bson.M{"$set": bson.M{
		"paymentId":  paymentID,
		"status":     payment.StatusCompleted,
		"verified":   true,
		"verifiedAt": at,
		"updatedAt":  at,
	}}

	var doc paymentDoc
	err := repo.retry.Do(ctx, "completing payment", func(ctx context.Context) error {
		return repo.col(colPayments).FindOneAndUpdate(ctx, filter, update, after()).Decode(&doc)
	})
	if err == mongo.ErrNoDocuments {
		p, err := repo.GetPaymentByOrderID(ctx, orderID)
		return p, false, err
	}
	if err != nil {
		return payment.Payment{}, false, errors.Wrap(err, "completing payment")
	}
	return doc.payment(), true, nil
}

func (repo *paymentRepository) FailPayment(ctx context.Context, orderID, paymentID string) (payment.Payment, error) {
	filter := bson.M{"orderId": orderID, "status": payment.StatusPending}
	update := bson.M{"$set": bson.M{
		"paymentId": paymentID,
		"status":    payment.StatusFailed,
		"updatedAt": core.NowFunc(),
	}}
	err := repo.retry.Do(ctx, "failing payment", func(ctx context.Context) error {
		_, err := repo.col(colPayments).UpdateOne(ctx, filter, update)
		return err
	})
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "failing payment")
	}
	return repo.GetPaymentByOrderID(ctx, orderID)
}

func (repo *paymentRepository) ListPayments(ctx context.Context, userID string) ([]payment.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var docs []paymentDoc
	err := repo.retry.Do(ctx, "listing payments", func(ctx context.Context) error {
		cur, err := repo.col(colPayments).Find(ctx, bson.M{"userId": userID}, opts)
		if err != nil {
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing payments")
	}
	payments := make([]payment.Payment, 0, len(docs))
	for _, d := range docs {
		payments = append(payments, d.payment())
	}
	return payments, nil
}

func (repo *paymentRepository) SavePurchase(ctx context.Context, pu payment.Purchase) (payment.Purchase, error) {
	filter := bson.M{"userId": pu.UserID, "phaseId": pu.PhaseID}
	update := bson.M{
		"$set": bson.M{
			"paymentId": pu.PaymentID,
			"amount":    pu.Amount,
			"currency":  pu.Currency,
			"status":    pu.Status,
		},
		"$setOnInsert": bson.M{"purchasedAt": pu.PurchasedAt},
	}
	var doc purchaseDoc
	err := repo.retry.Do(ctx, "saving purchase", func(ctx context.Context) error {
		return repo.col(colPurchases).FindOneAndUpdate(ctx, filter, update, upsertAfter()).Decode(&doc)
	})
	if err != nil {
		return payment.Purchase{}, errors.Wrap(err, "saving purchase")
	}
	return doc.purchase(), nil
}

func (repo *paymentRepository) GetPurchase(ctx context.Context, userID, phaseID string) (payment.Purchase, error) {
	var doc purchaseDoc
	err := repo.retry.Do(ctx, "finding purchase", func(ctx context.Context) error {
		return repo.col(colPurchases).FindOne(ctx, bson.M{"userId": userID, "phaseId": phaseID}).Decode(&doc)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return payment.Purchase{}, payment.ErrPurchaseNotFound
		}
		return payment.Purchase{}, errors.Wrap(err, "finding purchase")
	}
	return doc.purchase(), nil
}

func (repo *paymentRepository) ListPurchases(ctx context.Context, userID string) ([]payment.Purchase, error) {
	opts := options.Find().SetSort(bson.D{{Key: "purchasedAt", Value: 1}})
	var docs []purchaseDoc
	err := repo.retry.Do(ctx, "listing purchases", func(ctx context.Context) error {
		cur, err := repo.col(colPurchases).Find(ctx, bson.M{"userId": userID}, opts)
		if err != nil {
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing purchases")
	}
	purchases := make([]payment.Purchase, 0, len(docs))
	for _, d := range docs {
		purchases = append(purchases, d.purchase())
	}
	return purchases, nil
}
