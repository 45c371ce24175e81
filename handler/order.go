package handler

import (
	"context"
	"errors"
	"time"

	"onam_fest/constants"
	"onam_fest/database"
	"onam_fest/middleware"
	"onam_fest/model"
	"onam_fest/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

const qrSize = 256

type orderDetail struct {
	*model.Order
	QRCode string `json:"qrCode,omitempty"`
}

func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	input, ok := c.Locals("inputCreateOrder").(model.CreateOrderInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, nil)
	}
	ctx := c.UserContext()

	// Refuse before consuming a sequence number.
	if err := h.Orders.Ping(ctx); err != nil {
		utils.Log.Warnw("order rejected, storage unavailable", "error", err)
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_STORAGE_UNAVAILABLE, err)
	}

	var order model.Order
	if err := copier.Copy(&order, &input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}
	order.Status = constants.ORDER_STATUS_PENDING
	order.OrderDate = time.Now()
	if user := middleware.CurrentUser(c); user != nil {
		order.UserID = &user.ID
	}
	order.OrderNumber = h.Allocator.Next(ctx)

	if err := h.Orders.Create(ctx, &order); err != nil {
		switch {
		case errors.Is(err, database.ErrUnavailable):
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_STORAGE_UNAVAILABLE, err)
		case errors.Is(err, database.ErrDuplicate):
			utils.Log.Errorw("order number collision", "orderNumber", order.OrderNumber, "error", err)
			return utils.ErrorResponse(c, fiber.StatusConflict, constants.ERROR_ORDER_NUMBER_CONFLICT, err)
		case errors.Is(err, model.ErrInvalidOrder):
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_VALIDATION, err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_CREATE, err)
	}

	if h.Metrics != nil {
		h.Metrics.OrdersCreated.WithLabelValues(order.Payment.Method).Inc()
	}
	utils.Log.Infow("order created",
		"orderId", order.ID,
		"orderNumber", order.OrderNumber,
		"paymentMethod", order.Payment.Method,
		"totalAmount", order.TotalAmount,
	)
	h.sendConfirmationAsync(order)

	return utils.SuccessResponse(c, fiber.StatusCreated, model.OrderCreated{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OrderDate:   order.OrderDate,
	})
}

// sendConfirmationAsync mails the confirmation in the background. Failures are
// only logged; the order is already stored.
func (h *Handler) sendConfirmationAsync(order model.Order) {
	if h.Mailer == nil {
		return
	}
	h.emails.Add(1)
	go func() {
		defer h.emails.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.emailTimeout)
		defer cancel()
		if err := h.Mailer.SendOrderConfirmation(ctx, order); err != nil && !errors.Is(err, utils.ErrMailerDisabled) {
			utils.Log.Warnw("confirmation email failed", "orderNumber", order.OrderNumber, "error", err)
		}
	}()
}

func (h *Handler) findOrder(c *fiber.Ctx) (*model.Order, error) {
	id := c.Params("orderId")
	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusNotFound, constants.NOT_FOUND_ORDER, nil)
	}
	order, err := h.Orders.FindByID(c.UserContext(), id)
	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, database.ErrNotFound):
		return nil, utils.ErrorResponse(c, fiber.StatusNotFound, constants.NOT_FOUND_ORDER, nil)
	case errors.Is(err, database.ErrUnavailable):
		return nil, utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_STORAGE_UNAVAILABLE, err)
	}
	return nil, utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
}

func (h *Handler) GetOrder(c *fiber.Ctx) error {
	order, respErr := h.findOrder(c)
	if order == nil {
		return respErr
	}
	return utils.SuccessResponse(c, fiber.StatusOK, orderDetail{
		Order:  order,
		QRCode: utils.QRCodeDataURL(order.OrderNumber, qrSize),
	})
}

// ListOrders returns every order to admins. Other users only see orders
// placed with their own email.
func (h *Handler) ListOrders(c *fiber.Ctx) error {
	filter, ok := c.Locals("inputFilterOrder").(model.FilterOrder)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, nil)
	}
	user := middleware.CurrentUser(c)
	if user == nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.MISSING_TOKEN, nil)
	}
	if user.Role != constants.ROLE_ADMIN {
		filter.Email = user.Email
	}

	orders, total, err := h.Orders.List(c.UserContext(), filter)
	if errors.Is(err, database.ErrUnavailable) {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_STORAGE_UNAVAILABLE, err)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}
	if orders == nil {
		orders = []model.Order{}
	}

	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{
		Rows:       orders,
		Limit:      filter.Limit,
		Page:       filter.Page,
		TotalCount: total,
	})
}

func (h *Handler) UpdateOrderStatus(c *fiber.Ctx) error {
	input, ok := c.Locals("inputUpdateOrderStatus").(model.UpdateOrderStatusInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, nil)
	}
	id := c.Params("orderId")
	if _, err := uuid.Parse(id); err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.NOT_FOUND_ORDER, nil)
	}

	order, err := h.Orders.UpdateStatus(c.UserContext(), id, input.Status, input.Notes)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.NOT_FOUND_ORDER, nil)
	case errors.Is(err, database.ErrInvalidTransition):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_TRANSITION, err)
	case errors.Is(err, database.ErrUnavailable):
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_STORAGE_UNAVAILABLE, err)
	case err != nil:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_UPDATE, err)
	}

	utils.Log.Infow("order status updated", "orderNumber", order.OrderNumber, "status", order.Status)
	return utils.SuccessResponse(c, fiber.StatusOK, order)
}

// ResendConfirmation sends the confirmation email synchronously so the caller
// learns whether the relay accepted it.
func (h *Handler) ResendConfirmation(c *fiber.Ctx) error {
	order, respErr := h.findOrder(c)
	if order == nil {
		return respErr
	}
	if h.Mailer == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_EMAIL_DISABLED, utils.ErrMailerDisabled)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.emailTimeout)
	defer cancel()
	err := h.Mailer.SendOrderConfirmation(ctx, *order)
	if errors.Is(err, utils.ErrMailerDisabled) {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_EMAIL_DISABLED, err)
	}
	if err != nil {
		utils.Log.Warnw("confirmation resend failed", "orderNumber", order.OrderNumber, "error", err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, constants.ERROR_EMAIL_SEND, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"orderNumber": order.OrderNumber,
		"sentTo":      order.StudentInfo.Email,
	})
}
