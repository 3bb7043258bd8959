package handler

import (
	"errors"
	"net/http"
	"storefront-checkout/internal/dto"
	"storefront-checkout/internal/middleware"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	ledger service.LedgerService
}

func NewOrderHandler(ledger service.LedgerService) *OrderHandler {
	return &OrderHandler{
		ledger: ledger,
	}
}

// ListOrders returns the caller's paid orders, newest first.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.ledger.ListPaidOrders(ctx, middleware.OwnerFromContext(c))
	if err != nil {
		return err
	}

	resp := make([]*dto.OrderResponse, len(orders))
	for i, order := range orders {
		resp[i] = toOrderResponse(order)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.ledger.GetOwnedOrder(ctx, middleware.OwnerFromContext(c), c.Param("id"))
	if errors.Is(err, service.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "order not found"})
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(order *model.Order) *dto.OrderResponse {
	resp := &dto.OrderResponse{
		ID:          order.ID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount.StringFixed(2),
		SessionID:   order.SessionID(),
		PaymentID:   order.ProviderPaymentID,
		Items:       make([]dto.OrderItemResponse, len(order.Items)),
		CreatedAt:   order.CreatedAt,
	}
	for i, item := range order.Items {
		resp.Items[i] = dto.OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(2),
			Subtotal:    item.Subtotal().StringFixed(2),
		}
	}
	return resp
}
