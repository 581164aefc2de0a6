package echoapi

import (
	"io/ioutil"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/payment"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

type paymentApi struct {
	conf     *core.Config
	svc      payment.ServiceInterface
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := paymentApi{
		conf:     s.conf,
		svc:      s.deps.PaymentSvc,
		validate: s.validate,
	}

	pg := g.Group("/payments")
	pg.POST("/webhook", api.webhook)

	pg.POST("/create-order", api.createOrder, jwt)
	pg.POST("/verify-payment", api.verifyPayment, jwt)
	pg.GET("/order/:orderId", api.retrieveOrder, jwt)
	pg.GET("/payment/:paymentId", api.fetchGatewayPayment, jwt, adminMiddleware())
	pg.GET("/user/:userId", api.listPayments, jwt, selfOrAdminMiddleware())
}

// actingUserID returns requested for admins. Learners may only act for themselves.
func actingUserID(ctx echo.Context, requested string) string {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return ""
	}
	if claims.IsAdmin {
		return requested
	}
	return claims.Subject
}

// Handlers

func (api *paymentApi) createOrder(ctx echo.Context) error {
	var data payment.NewOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrder")
	}
	data.UserID = actingUserID(ctx, data.UserID)
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	order, err := api.svc.CreateOrder(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating order")
	}
	return ctx.JSON(http.StatusCreated, OrderResponse{Order: order, KeyID: api.conf.Payment.KeyID})
}

func (api *paymentApi) verifyPayment(ctx echo.Context) error {
	var data payment.VerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyRequest")
	}
	data.UserID = actingUserID(ctx, data.UserID)
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.VerifyPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "verifying payment")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "Payment verified successfully",
		"payment": p,
	})
}

func (api *paymentApi) webhook(ctx echo.Context) error {
	body, err := ioutil.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}
	if err = api.svc.HandleWebhook(ctx.Request().Context(), body, ctx.Request().Header.Get(webhookSignatureHeader)); err != nil {
		return errors.Wrap(err, "handling webhook")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (api *paymentApi) retrieveOrder(ctx echo.Context) error {
	p, err := api.svc.GetPayment(ctx.Request().Context(), ctx.Param("orderId"))
	if err != nil {
		return errors.Wrap(err, "getting payment")
	}
	if actingUserID(ctx, p.UserID) != p.UserID {
		return payment.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) fetchGatewayPayment(ctx echo.Context) error {
	details, err := api.svc.FetchGatewayPayment(ctx.Request().Context(), ctx.Param("paymentId"))
	if err != nil {
		return errors.Wrap(err, "fetching gateway payment")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *paymentApi) listPayments(ctx echo.Context) error {
	payments, err := api.svc.ListPayments(ctx.Request().Context(), pathUserID(ctx))
	if err != nil {
		return errors.Wrap(err, "listing payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}
