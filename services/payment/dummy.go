package paymentsvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/payment"
)

const (
	GatewayDummy = "dummy"

	dummySecret = "dummy_secret"
)

// Dummy is an offline gateway for development and tests. It signs like Razorpay does.
type Dummy struct {
	keySecret     string
	webhookSecret string
}

var _ payment.Gateway = (*Dummy)(nil)

func NewDummy(conf *core.Config) *Dummy {
	g := &Dummy{keySecret: conf.Payment.KeySecret, webhookSecret: conf.Payment.WebhookSecret}
	if g.keySecret == "" {
		g.keySecret = dummySecret
	}
	if g.webhookSecret == "" {
		g.webhookSecret = dummySecret
	}
	return g
}

func (g *Dummy) Name() string { return GatewayDummy }

func (g *Dummy) CreateOrder(_ context.Context, amount int64, currency, receipt string, _ map[string]string) (payment.Order, error) {
	return payment.Order{
		ID:       "order_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:14],
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

func (g *Dummy) FetchPayment(_ context.Context, paymentID string) (map[string]interface{}, error) {
	return map[string]interface{}{
		"id":     paymentID,
		"entity": "payment",
		"status": "captured",
	}, nil
}

// SignPayment returns the checkout signature the gateway would send for orderID and paymentID.
func (g *Dummy) SignPayment(orderID, paymentID string) string {
	return sign(orderID+"|"+paymentID, g.keySecret)
}

// SignWebhook returns the signature header the gateway would send with body.
func (g *Dummy) SignWebhook(body []byte) string {
	return sign(string(body), g.webhookSecret)
}

func (g *Dummy) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(g.SignPayment(orderID, paymentID)), []byte(signature))
}

func (g *Dummy) VerifyWebhookSignature(body []byte, signature string) bool {
	return hmac.Equal([]byte(g.SignWebhook(body)), []byte(signature))
}

func sign(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
