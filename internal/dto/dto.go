package dto

import "time"

type CartItem struct {
	ProductID string `json:"product_id" validate:"omitempty,max=128"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	Items []CartItem `json:"items" validate:"max=100,dive"`
}

type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"url"`
	OrderID     string `json:"order_id"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
}

type ProductResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"total_amount"`
	SessionID   string              `json:"session_id,omitempty"`
	PaymentID   string              `json:"payment_id,omitempty"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
}
