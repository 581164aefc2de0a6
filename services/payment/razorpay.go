package paymentsvc

import (
	"context"

	"github.com/pkg/errors"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/payment"
)

const GatewayRazorpay = "razorpay"

// Razorpay talks to the Razorpay orders API.
type Razorpay struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
}

var _ payment.Gateway = (*Razorpay)(nil)

func NewRazorpay(conf *core.Config) *Razorpay {
	return &Razorpay{
		client:        razorpay.NewClient(conf.Payment.KeyID, conf.Payment.KeySecret),
		keySecret:     conf.Payment.KeySecret,
		webhookSecret: conf.Payment.WebhookSecret,
	}
}

func (g *Razorpay) Name() string { return GatewayRazorpay }

func (g *Razorpay) CreateOrder(_ context.Context, amount int64, currency, receipt string, notes map[string]string) (payment.Order, error) {
	rzNotes := make(map[string]interface{}, len(notes))
	for k, v := range notes {
		rzNotes[k] = v
	}
	body, err := g.client.Order.Create(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    rzNotes,
	}, nil)
	if err != nil {
		return payment.Order{}, errors.Wrap(err, "razorpay: creating order")
	}
	return orderFromBody(body, amount, currency, receipt)
}

func orderFromBody(body map[string]interface{}, amount int64, currency, receipt string) (payment.Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return payment.Order{}, errors.New("razorpay: order id missing from response")
	}
	order := payment.Order{ID: id, Amount: amount, Currency: currency, Receipt: receipt}
	if v, ok := body["amount"].(float64); ok {
		order.Amount = int64(v)
	}
	if v, ok := body["currency"].(string); ok && v != "" {
		order.Currency = v
	}
	if v, ok := body["receipt"].(string); ok && v != "" {
		order.Receipt = v
	}
	return order, nil
}

func (g *Razorpay) FetchPayment(_ context.Context, paymentID string) (map[string]interface{}, error) {
	body, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "razorpay: fetching payment")
	}
	return body, nil
}

func (g *Razorpay) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	attrs := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(attrs, signature, g.keySecret)
}

// VerifyWebhookSignature rejects every webhook when no webhook secret is configured.
func (g *Razorpay) VerifyWebhookSignature(body []byte, signature string) bool {
	if g.webhookSecret == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, g.webhookSecret)
}
