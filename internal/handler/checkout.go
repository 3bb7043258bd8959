package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/middleware"
	"storefront-checkout/internal/service"
	"strings"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	log              *slog.Logger
	checkoutService  service.CheckoutService
	reconcileService service.ReconcileService
	baseURL          string
}

func NewCheckoutHandler(
	log *slog.Logger,
	checkoutService service.CheckoutService,
	reconcileService service.ReconcileService,
	baseURL string,
) *CheckoutHandler {
	return &CheckoutHandler{
		log:              log,
		checkoutService:  checkoutService,
		reconcileService: reconcileService,
		baseURL:          strings.TrimRight(baseURL, "/"),
	}
}

func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	cart := make([]service.CartLine, len(req.Items))
	for i, item := range req.Items {
		cart[i] = service.CartLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	session, err := h.checkoutService.BeginCheckout(ctx, middleware.OwnerFromContext(c), cart)
	if err != nil {
		return h.checkoutError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.CheckoutResponse{
		SessionID:   session.SessionID,
		CheckoutURL: session.CheckoutURL,
		OrderID:     session.OrderID,
	})
}

func (h *CheckoutHandler) checkoutError(c echo.Context, err error) error {
	var notFound *service.ProductNotFoundError
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Cart is empty"})
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:     notFound.Error(),
			ProductID: notFound.ProductID,
		})
	case errors.Is(err, service.ErrProvider):
		return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "payment provider unavailable"})
	default:
		h.log.Error("checkout failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

// HandleSuccess is where the provider sends the buyer back. It verifies the
// session and redirects to the storefront with the outcome in the query.
func (h *CheckoutHandler) HandleSuccess(c echo.Context) error {
	ctx := c.Request().Context()

	q := url.Values{}
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		q.Set("error", "invalid_session")
		return h.redirectHome(c, q)
	}

	order, err := h.reconcileService.VerifyRedirect(ctx, sessionID)
	switch {
	case err == nil:
		q.Set("order_id", order.ID)
		q.Set("status", string(order.Status))
	case errors.Is(err, service.ErrOrderNotFound):
		q.Set("error", "order_not_found")
	case errors.Is(err, service.ErrProvider):
		// the webhook will still settle the order
		q.Set("error", "verification_unavailable")
	default:
		h.log.Error("verify redirect failed", slog.String("session_id", sessionID), slog.Any("error", err))
		q.Set("error", "internal")
	}

	return h.redirectHome(c, q)
}

func (h *CheckoutHandler) redirectHome(c echo.Context, q url.Values) error {
	return c.Redirect(http.StatusSeeOther, h.baseURL+"/?"+q.Encode())
}

func (h *CheckoutHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable body"})
	}

	outcome, err := h.reconcileService.HandleWebhook(ctx, body, c.Request().Header.Get(client.SignatureHeader))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{"status": string(outcome)})
	case errors.Is(err, service.ErrInvalidSignature):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid signature"})
	case errors.Is(err, service.ErrMalformedPayload):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
	default:
		// non-2xx makes the provider retry
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}
