package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"onam_fest/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidOrder = errors.New("invalid order")

type Order struct {
	ID          string      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;size:64;not null" json:"orderNumber"`
	StudentInfo StudentInfo `gorm:"embedded;embeddedPrefix:student_" json:"studentInfo"`
	OrderItems  []OrderItem `gorm:"type:jsonb;serializer:json;not null" json:"orderItems"`
	Payment     Payment     `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	TotalAmount float64     `gorm:"not null" json:"totalAmount"`
	Status      string      `gorm:"index;not null;default:'pending'" json:"status"`
	OrderDate   time.Time   `gorm:"not null" json:"orderDate"`
	Notes       string      `json:"notes,omitempty"`
	UserID      *uint       `gorm:"index" json:"userId,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type StudentInfo struct {
	Name       string `gorm:"not null" validate:"required,min=2,max=100" json:"name"`
	StudentID  string `gorm:"index;not null" validate:"required,max=50" json:"studentId"`
	Email      string `gorm:"index;not null" validate:"required,email" json:"email"`
	Phone      string `gorm:"not null" validate:"required,min=7,max=20" json:"phone"`
	Course     string `gorm:"not null" validate:"required,max=100" json:"course"`
	Department string `gorm:"not null" validate:"required,max=100" json:"department"`
	Year       string `gorm:"not null" validate:"required,max=20" json:"year"`
	Hostel     string `validate:"omitempty,max=100" json:"hostel,omitempty"`
}

type OrderItem struct {
	ID        string  `validate:"required" json:"id"`
	Name      string  `validate:"required,max=200" json:"name"`
	Quantity  int     `validate:"gte=1" json:"quantity"`
	UnitPrice float64 `validate:"gte=0" json:"price"`
	LineTotal float64 `validate:"gte=0" json:"total"`
}

type Payment struct {
	Method        string `gorm:"not null" validate:"required,oneof=cash upi" json:"method"`
	UpiID         string `validate:"omitempty,max=100" json:"upiId,omitempty"`
	TransactionID string `validate:"omitempty,max=100" json:"transactionId,omitempty"`
}

type CreateOrderInput struct {
	StudentInfo StudentInfo `json:"studentInfo"`
	OrderItems  []OrderItem `validate:"required,min=1,dive" json:"orderItems"`
	Payment     Payment     `json:"payment"`
	TotalAmount float64     `validate:"gte=0" json:"totalAmount"`
	Notes       string      `validate:"omitempty,max=500" json:"notes"`
}

type UpdateOrderStatusInput struct {
	Status string  `validate:"required" json:"status"`
	Notes  *string `validate:"omitempty,max=500" json:"notes"`
}

type FilterOrder struct {
	Pagination
	StudentID string `query:"studentId"`
	Email     string `query:"email"`
	Status    string `query:"status"`
}

// OrderCreated is the body returned by POST /api/orders.
type OrderCreated struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"totalAmount"`
	OrderDate   time.Time `json:"orderDate"`
}

func SumLineTotals(items []OrderItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.LineTotal
	}
	return sum
}

func TotalsMatch(items []OrderItem, total float64) bool {
	return math.Abs(SumLineTotals(items)-total) <= constants.TOTAL_EPSILON
}

func (p Payment) HasUpiDetails() bool {
	return strings.TrimSpace(p.UpiID) != "" && strings.TrimSpace(p.TransactionID) != ""
}

// Validate re-checks the invariants an order must satisfy before it is stored.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.OrderNumber) == "" {
		return fmt.Errorf("%w: order number is empty", ErrInvalidOrder)
	}
	if len(o.OrderItems) == 0 {
		return fmt.Errorf("%w: no order items", ErrInvalidOrder)
	}
	for i, item := range o.OrderItems {
		if item.Quantity < 1 || item.UnitPrice < 0 || item.LineTotal < 0 {
			return fmt.Errorf("%w: item %d has invalid quantity or amount", ErrInvalidOrder, i)
		}
	}
	if o.TotalAmount < 0 {
		return fmt.Errorf("%w: negative total", ErrInvalidOrder)
	}
	if !TotalsMatch(o.OrderItems, o.TotalAmount) {
		return fmt.Errorf("%w: items sum to %.2f, total is %.2f", ErrInvalidOrder, SumLineTotals(o.OrderItems), o.TotalAmount)
	}
	switch o.Payment.Method {
	case constants.PAYMENT_CASH:
	case constants.PAYMENT_UPI:
		if !o.Payment.HasUpiDetails() {
			return fmt.Errorf("%w: upi payment without upiId/transactionId", ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidOrder, o.Payment.Method)
	}
	if !IsOrderStatus(o.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, o.Status)
	}
	return nil
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = constants.ORDER_STATUS_PENDING
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now()
	}
	return o.Validate()
}

func IsOrderStatus(status string) bool {
	for _, s := range constants.ORDER_STATUSES {
		if s == status {
			return true
		}
	}
	return false
}

var orderTransitions = map[string][]string{
	constants.ORDER_STATUS_PENDING: {
		constants.ORDER_STATUS_CONFIRMED,
		constants.ORDER_STATUS_CANCELLED,
		constants.ORDER_STATUS_COMPLETED,
	},
	constants.ORDER_STATUS_CONFIRMED: {
		constants.ORDER_STATUS_COMPLETED,
		constants.ORDER_STATUS_CANCELLED,
	},
}

// CanTransition reports whether an order may move from one status to another.
// Cancelled and completed orders are final; re-applying the current status is allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
