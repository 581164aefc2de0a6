package paymentsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prochartist/backend/core"
)

func TestDummy_Signatures(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Payment.KeySecret = "s3cret"
	g := NewDummy(conf)

	sig := g.SignPayment("order_1", "pay_1")
	assert.True(t, g.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, g.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, g.VerifyPaymentSignature("order_1", "pay_1", ""))

	body := []byte(`{"event":"payment.captured"}`)
	whSig := g.SignWebhook(body)
	assert.True(t, g.VerifyWebhookSignature(body, whSig))
	assert.False(t, g.VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), whSig))
}

// The dummy gateway must agree with the Razorpay verifier so that either can back the same clients.
func TestDummy_MatchesRazorpayVerifier(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Payment.KeySecret = "s3cret"
	conf.Payment.WebhookSecret = "wh00k"
	dummy, rz := NewDummy(conf), NewRazorpay(conf)

	assert.True(t, rz.VerifyPaymentSignature("order_9", "pay_9", dummy.SignPayment("order_9", "pay_9")))
	body := []byte(`{"event":"order.paid"}`)
	assert.True(t, rz.VerifyWebhookSignature(body, dummy.SignWebhook(body)))
}

func TestRazorpay_WebhookWithoutSecret(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Payment.WebhookSecret = ""
	rz := NewRazorpay(conf)
	assert.False(t, rz.VerifyWebhookSignature([]byte("{}"), sign("{}", "")))
}

func TestDummy_CreateOrder(t *testing.T) {
	g := NewDummy(core.NewTestConfig())
	order, err := g.CreateOrder(context.Background(), 99900, "INR", "rcpt_1", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^order_[0-9a-f]{14}$`, order.ID)
	assert.Equal(t, int64(99900), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rcpt_1", order.Receipt)
}

func TestOrderFromBody(t *testing.T) {
	order, err := orderFromBody(map[string]interface{}{"id": "order_X", "amount": float64(150000), "currency": "INR"}, 1, "USD", "r")
	require.NoError(t, err)
	assert.Equal(t, "order_X", order.ID)
	assert.Equal(t, int64(150000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "r", order.Receipt)

	_, err = orderFromBody(map[string]interface{}{}, 1, "INR", "r")
	assert.Error(t, err)
}
