package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/prochartist/backend/apps/api/echo"
	"github.com/prochartist/backend/core/payment"
	"github.com/prochartist/backend/core/user"
)

func (env *testEnv) createOrder(t *testing.T, token, phaseID string) echoapi.OrderResponse {
	rec := env.do(http.MethodPost, "/api/payments/create-order", token, marchallObj(t, payment.NewOrder{PhaseID: phaseID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp echoapi.OrderResponse
	unmarchallObj(t, rec.Body.Bytes(), &resp)
	return resp
}

func Test_paymentApi_checkout(t *testing.T) {
	env := setup(t)
	learner := env.createUser(t, "Learner", "learner@test.in", nil, true)
	token := env.getToken(t, learner)

	order := env.createOrder(t, token, "trader")
	assert.Equal(t, int64(149900), order.Amount)
	assert.Equal(t, env.conf.Payment.Currency, order.Currency)
	assert.Equal(t, env.conf.Payment.KeyID, order.KeyID)
	assert.NotEmpty(t, order.ID)

	paymentID := "pay_test123"
	verify := func(sig string) []byte {
		return marchallObj(t, payment.VerifyRequest{OrderID: order.ID, PaymentID: paymentID, Signature: sig, PhaseID: "trader"})
	}

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/payments/create-order",
			body: marchallObj(t, payment.NewOrder{PhaseID: "trader"}), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "unknown phase", method: http.MethodPost, path: "/api/payments/create-order", token: token,
			body: marchallObj(t, payment.NewOrder{PhaseID: "nope"}), wantCode: http.StatusNotFound,
		},
		{
			name: "bad signature", method: http.MethodPost, path: "/api/payments/verify-payment", token: token,
			body: verify("deadbeef"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"razorpay_signature": "payment verification failed - invalid signature"}),
		},
	}
	runHTTPTests(t, env, tests)

	hasPurchased := func() bool {
		rec := env.do(http.MethodGet, "/api/users/me/purchases/trader", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp map[string]bool
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		return resp["hasPurchased"]
	}
	assert.False(t, hasPurchased())

	sig := env.gateway.SignPayment(order.ID, paymentID)
	for _, attempt := range []string{"verify", "redelivery"} {
		rec := env.do(http.MethodPost, "/api/payments/verify-payment", token, verify(sig))
		require.Equal(t, http.StatusOK, rec.Code, attempt+": "+rec.Body.String())

		var resp struct {
			Message string          `json:"message"`
			Payment payment.Payment `json:"payment"`
		}
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "Payment verified successfully", resp.Message, attempt)
		assert.Equal(t, payment.StatusCompleted, resp.Payment.Status, attempt)
		assert.True(t, resp.Payment.Verified, attempt)
		assert.Equal(t, paymentID, resp.Payment.PaymentID, attempt)
	}

	assert.True(t, hasPurchased())
	rec, err := env.tracker.Get(context.Background(), learner.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"beginner", "trader"}, rec.UnlockedPhases)

	t.Run("already purchased", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/payments/create-order", token, marchallObj(t, payment.NewOrder{PhaseID: "trader"}))
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		ok, _ := jsonBytesEqual(rec.Body.Bytes(), marchallObj(t, httpErr{Error: "this phase is already purchased"}))
		assert.True(t, ok, rec.Body.String())
	})

	t.Run("purchases", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/users/me/purchases", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var purchases []payment.Purchase
		unmarchallObj(t, rec.Body.Bytes(), &purchases)
		require.Len(t, purchases, 1)
		assert.Equal(t, "trader", purchases[0].PhaseID)
		assert.Equal(t, 1499.0, purchases[0].Amount)
	})
}

func Test_paymentApi_access(t *testing.T) {
	env := setup(t)
	learner := env.createUser(t, "Learner", "learner@test.in", nil, true)
	other := env.createUser(t, "Other", "other@test.in", nil, true)
	admin := env.createUser(t, "Admin", "admin@test.in", []string{user.RoleAdmin}, true)
	token := env.getToken(t, learner)
	order := env.createOrder(t, token, "pro-trader")

	tests := []httpTest{
		{name: "owner reads order", path: "/api/payments/order/" + order.ID, token: token, wantCode: http.StatusOK},
		{
			name: "others cannot see it", path: "/api/payments/order/" + order.ID, token: env.getToken(t, other),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "payment record not found"}),
		},
		{name: "admin reads order", path: "/api/payments/order/" + order.ID, token: env.getToken(t, admin), wantCode: http.StatusOK},
		{name: "own payments", path: "/api/payments/user/me", token: token, wantCode: http.StatusOK},
		{name: "payments of others", path: "/api/payments/user/" + learner.ID, token: env.getToken(t, other), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermission)},
		{name: "gateway lookup is admin only", path: "/api/payments/payment/pay_1", token: token, wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermission)},
		{name: "gateway lookup", path: "/api/payments/payment/pay_1", token: env.getToken(t, admin), wantCode: http.StatusOK},
	}
	runHTTPTests(t, env, tests)

	// learners cannot verify in the name of someone else
	body := marchallObj(t, payment.VerifyRequest{
		OrderID: order.ID, PaymentID: "pay_x", Signature: env.gateway.SignPayment(order.ID, "pay_x"),
	})
	rec := env.do(http.MethodPost, "/api/payments/verify-payment", env.getToken(t, other), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_paymentApi_webhook(t *testing.T) {
	env := setup(t)
	learner := env.createUser(t, "Learner", "learner@test.in", nil, true)
	token := env.getToken(t, learner)
	order := env.createOrder(t, token, "trader")

	evt := payment.WebhookEvent{Event: payment.EventPaymentCaptured}
	evt.Payload.Payment.Entity.ID = "pay_hook"
	evt.Payload.Payment.Entity.OrderID = order.ID
	evt.Payload.Payment.Entity.Status = "captured"
	body := marchallObj(t, evt)

	send := func(sig string) int {
		req, rec := newRequest(http.MethodPost, "/api/payments/webhook", body)
		req.Header.Set("X-Razorpay-Signature", sig)
		env.serve(req, rec)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("forged"))

	sig := env.gateway.SignWebhook(body)
	assert.Equal(t, http.StatusOK, send(sig))
	assert.Equal(t, http.StatusOK, send(sig)) // redelivery

	rec := env.do(http.MethodGet, "/api/payments/order/"+order.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got payment.Payment
	unmarchallObj(t, rec.Body.Bytes(), &got)
	assert.Equal(t, payment.StatusCompleted, got.Status)
	assert.Equal(t, "pay_hook", got.PaymentID)

	prog, err := env.tracker.Get(context.Background(), learner.ID)
	require.NoError(t, err)
	assert.Contains(t, prog.UnlockedPhases, "trader")
}
