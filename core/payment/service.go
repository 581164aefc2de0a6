package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/progress"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("payment record not found")
	ErrPurchaseNotFound  = core.NewNotFoundError("purchase not found")
	ErrAlreadyPurchased  = core.NewConflictError("this phase is already purchased")
	ErrInvalidSignature  = core.NewFieldError("razorpay_signature", "payment verification failed - invalid signature")
	ErrInvalidWebhook    = core.NewAuthorizationError("invalid webhook signature")
	ErrPaymentMismatch   = core.NewFieldError("userId", "payment does not belong to this user and phase")
	ErrPhaseNotForSale   = core.NewFieldError("phaseId", "this phase is not for sale")
	ErrOrderIDDuplicated = errors.New("order id already recorded")
)

type (
	// Gateway is the external payment processor.
	Gateway interface {
		Name() string
		CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (Order, error)
		FetchPayment(ctx context.Context, paymentID string) (map[string]interface{}, error)
		// VerifyPaymentSignature checks the checkout signature of orderID|paymentID.
		VerifyPaymentSignature(orderID, paymentID, signature string) bool
		VerifyWebhookSignature(body []byte, signature string) bool
	}

	Repository interface {
		// CreatePayment returns ErrOrderIDDuplicated if the order id is already recorded.
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPaymentByOrderID(ctx context.Context, orderID string) (Payment, error)
		// CompletePayment marks the payment of orderID completed and verified unless it already is.
		// The returned bool tells whether this call made the change.
		CompletePayment(ctx context.Context, orderID, paymentID string, at time.Time) (Payment, bool, error)
		// FailPayment marks a pending payment failed. Other payments are returned unchanged.
		FailPayment(ctx context.Context, orderID, paymentID string) (Payment, error)
		// ListPayments returns the user's payments, newest first.
		ListPayments(ctx context.Context, userID string) ([]Payment, error)
		// SavePurchase upserts the purchase keyed by (UserID, PhaseID).
		SavePurchase(ctx context.Context, pu Purchase) (Purchase, error)
		GetPurchase(ctx context.Context, userID, phaseID string) (Purchase, error)
		ListPurchases(ctx context.Context, userID string) ([]Purchase, error)
	}

	PhaseFinder interface {
		Get(ctx context.Context, phaseID string) (catalog.Phase, error)
	}

	PhaseUnlocker interface {
		UnlockPhase(ctx context.Context, userID, phaseID string) (progress.Record, error)
	}

	ServiceInterface interface {
		CreateOrder(ctx context.Context, no NewOrder) (Order, error)
		VerifyPayment(ctx context.Context, vr VerifyRequest) (Payment, error)
		HandleWebhook(ctx context.Context, body []byte, signature string) error
		GetPayment(ctx context.Context, orderID string) (Payment, error)
		ListPayments(ctx context.Context, userID string) ([]Payment, error)
		HasPurchased(ctx context.Context, userID, phaseID string) (bool, error)
		ListPurchases(ctx context.Context, userID string) ([]Purchase, error)
		FetchGatewayPayment(ctx context.Context, paymentID string) (map[string]interface{}, error)
	}

	Service struct {
		repo     Repository
		gateway  Gateway
		phases   PhaseFinder
		unlocker PhaseUnlocker
		logger   core.Logger
		conf     *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, gateway Gateway, phases PhaseFinder, unlocker PhaseUnlocker, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		gateway:  gateway,
		phases:   phases,
		unlocker: unlocker,
		logger:   logger,
		conf:     conf,
	}
}

// CreateOrder places a gateway order for the phase at its catalog price and records it as a pending payment.
func (svc *Service) CreateOrder(ctx context.Context, no NewOrder) (Order, error) {
	phase, err := svc.phases.Get(ctx, no.PhaseID)
	if err != nil {
		return Order{}, err
	}
	if !phase.IsActive || phase.Price <= 0 {
		return Order{}, ErrPhaseNotForSale
	}
	if ok, err := svc.HasPurchased(ctx, no.UserID, phase.PhaseID); err != nil {
		return Order{}, err
	} else if ok {
		return Order{}, ErrAlreadyPurchased
	}

	receipt := no.Receipt
	if receipt == "" {
		receipt = "rcpt_" + uuid.New().String()[:8]
	}
	notes := no.Notes
	if notes == nil {
		notes = map[string]string{}
	}
	notes["userId"] = no.UserID
	notes["phaseId"] = phase.PhaseID

	currency := svc.conf.Payment.Currency
	order, err := svc.gateway.CreateOrder(ctx, ToSubunits(phase.Price), currency, receipt, notes)
	if err != nil {
		return Order{}, errors.Wrap(err, "creating gateway order")
	}

	now := core.NowFunc()
	_, err = svc.repo.CreatePayment(ctx, Payment{
		ID:            uuid.New().String(),
		UserID:        no.UserID,
		PhaseID:       phase.PhaseID,
		OrderID:       order.ID,
		Amount:        phase.Price,
		Currency:      currency,
		Status:        StatusPending,
		PaymentMethod: svc.gateway.Name(),
		Receipt:       receipt,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return Order{}, errors.Wrap(err, "recording payment")
	}
	return order, nil
}

// VerifyPayment checks the checkout signature and completes the payment.
// A redelivered verification is accepted and only replays the idempotent steps.
func (svc *Service) VerifyPayment(ctx context.Context, vr VerifyRequest) (Payment, error) {
	if !svc.gateway.VerifyPaymentSignature(vr.OrderID, vr.PaymentID, vr.Signature) {
		return Payment{}, ErrInvalidSignature
	}
	p, err := svc.repo.GetPaymentByOrderID(ctx, vr.OrderID)
	if err != nil {
		return Payment{}, err
	}
	if (vr.UserID != "" && vr.UserID != p.UserID) || (vr.PhaseID != "" && vr.PhaseID != p.PhaseID) {
		return Payment{}, ErrPaymentMismatch
	}
	return svc.complete(ctx, vr.OrderID, vr.PaymentID)
}

// complete marks the payment completed, records the purchase and unlocks the phase.
// Every step is idempotent so that gateway redeliveries converge.
func (svc *Service) complete(ctx context.Context, orderID, paymentID string) (Payment, error) {
	p, changed, err := svc.repo.CompletePayment(ctx, orderID, paymentID, core.NowFunc())
	if err != nil {
		return Payment{}, errors.Wrap(err, "completing payment")
	}
	if !changed {
		svc.logger.Info("payment already completed", "orderId", orderID, "paymentId", paymentID)
	}

	purchasedAt := core.NowFunc()
	if p.VerifiedAt != nil {
		purchasedAt = *p.VerifiedAt
	}
	_, err = svc.repo.SavePurchase(ctx, Purchase{
		UserID:      p.UserID,
		PhaseID:     p.PhaseID,
		PaymentID:   p.PaymentID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      StatusCompleted,
		PurchasedAt: purchasedAt,
	})
	if err != nil {
		return Payment{}, errors.Wrap(err, "recording purchase")
	}
	if _, err = svc.unlocker.UnlockPhase(ctx, p.UserID, p.PhaseID); err != nil {
		return Payment{}, errors.Wrap(err, "unlocking phase")
	}
	return p, nil
}

// HandleWebhook processes a signed gateway notification. Unknown events are ignored.
func (svc *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !svc.gateway.VerifyWebhookSignature(body, signature) {
		return ErrInvalidWebhook
	}
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return core.NewFieldError("payload", "malformed webhook payload")
	}

	switch evt.Event {
	case EventPaymentCaptured, EventOrderPaid:
		_, err := svc.complete(ctx, evt.OrderID(), evt.PaymentID())
		return err
	case EventPaymentFailed:
		_, err := svc.repo.FailPayment(ctx, evt.OrderID(), evt.PaymentID())
		return err
	default:
		svc.logger.Debug("ignoring webhook event", "event", evt.Event)
		return nil
	}
}

func (svc *Service) GetPayment(ctx context.Context, orderID string) (Payment, error) {
	return svc.repo.GetPaymentByOrderID(ctx, orderID)
}

func (svc *Service) ListPayments(ctx context.Context, userID string) ([]Payment, error) {
	return svc.repo.ListPayments(ctx, userID)
}

func (svc *Service) HasPurchased(ctx context.Context, userID, phaseID string) (bool, error) {
	pu, err := svc.repo.GetPurchase(ctx, userID, phaseID)
	if err != nil {
		if errors.Cause(err) == ErrPurchaseNotFound {
			return false, nil
		}
		return false, err
	}
	return pu.Status == StatusCompleted, nil
}

func (svc *Service) ListPurchases(ctx context.Context, userID string) ([]Purchase, error) {
	return svc.repo.ListPurchases(ctx, userID)
}

func (svc *Service) FetchGatewayPayment(ctx context.Context, paymentID string) (map[string]interface{}, error) {
	return svc.gateway.FetchPayment(ctx, paymentID)
}
