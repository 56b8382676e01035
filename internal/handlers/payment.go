package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/sugampay/internal/middleware"
	"github.com/example/sugampay/internal/models"
	"github.com/example/sugampay/internal/services"
	"github.com/example/sugampay/internal/store"
	"github.com/example/sugampay/internal/utils"
)

// PaymentHandler serves the order and payment endpoints.
type PaymentHandler struct {
	orders   *services.OrderService
	payments *services.PaymentService
	log      zerolog.Logger
}

func NewPaymentHandler(orders *services.OrderService, payments *services.PaymentService, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{orders: orders, payments: payments, log: log}
}

type createOrderRequest struct {
	Amount    decimal.Decimal `json:"amount" valid:"required"`
	SourceApp string          `json:"sourceApp" valid:"-"`
}

type payRequest struct {
	OrderID        string `json:"orderId" valid:"required"`
	CardHolderName string `json:"cardHolderName" valid:"required"`
	CardNumber     string `json:"cardNumber" valid:"required"`
	ExpiryDate     string `json:"expiryDate" valid:"required"`
	CVV            string `json:"cvv" valid:"required"`
	CardType       string `json:"cardType" valid:"-"`
}

type transactionView struct {
	TransactionID  string                   `json:"transactionId"`
	OrderID        string                   `json:"orderId"`
	SourceApp      string                   `json:"sourceApp"`
	Amount         decimal.Decimal          `json:"amount"`
	Currency       string                   `json:"currency"`
	Status         models.TransactionStatus `json:"status"`
	Reason         string                   `json:"reason,omitempty"`
	CardHolderName string                   `json:"cardHolderName"`
	CardNumber     string                   `json:"cardNumber"`
	ExpiryDate     string                   `json:"expiryDate"`
	CardType       string                   `json:"cardType,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
}

func newTransactionView(t *models.Transaction) transactionView {
	return transactionView{
		TransactionID:  t.TransactionID,
		OrderID:        t.OrderID,
		SourceApp:      t.SourceApp,
		Amount:         t.Amount,
		Currency:       t.Currency,
		Status:         t.Status,
		Reason:         t.Reason,
		CardHolderName: t.CardHolderName,
		CardNumber:     t.MaskedCardNumber(),
		ExpiryDate:     t.ExpiryDate,
		CardType:       t.CardType,
		CreatedAt:      t.CreatedAt,
	}
}

// CreateOrder registers an order for a merchant.
func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := decodeStrict(c, &req); err != nil {
		return h.writeError(c, err)
	}

	sourceApp := req.SourceApp
	if merchant, ok := middleware.GetMerchantApp(c); ok {
		if sourceApp == "" {
			sourceApp = merchant
		} else if sourceApp != merchant {
			return fiber.NewError(fiber.StatusForbidden, "sourceApp does not match token")
		}
	}

	order, err := h.orders.CreateOrder(c.UserContext(), req.Amount, sourceApp)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"orderId":   order.OrderID,
		"amount":    order.Amount,
		"currency":  order.Currency,
		"expiresAt": order.ExpiresAt,
	})
}

// GetOrder returns the details the payment page shows before submission.
func (h *PaymentHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.orders.GetPayableOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"orderId":   order.OrderID,
		"amount":    order.Amount,
		"currency":  order.Currency,
		"sourceApp": order.SourceApp,
		"expiresAt": order.ExpiresAt,
	})
}

// Pay submits a payment attempt for an order.
func (h *PaymentHandler) Pay(c *fiber.Ctx) error {
	var req payRequest
	if err := decodeStrict(c, &req); err != nil {
		return h.writeError(c, err)
	}

	outcome, err := h.payments.SubmitPayment(c.UserContext(), req.OrderID, services.Instrument{
		HolderName:       req.CardHolderName,
		Number:           req.CardNumber,
		Expiry:           req.ExpiryDate,
		VerificationCode: req.CVV,
		Type:             req.CardType,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	if !outcome.Accepted() {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"success":       false,
			"status":        outcome.Status,
			"message":       outcome.Reason,
			"transactionId": outcome.TransactionID,
		})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"status":        outcome.Status,
		"transactionId": outcome.TransactionID,
		"orderId":       outcome.OrderID,
	})
}

// ListTransactions returns recorded attempts, newest first.
func (h *PaymentHandler) ListTransactions(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	status := models.TransactionStatus(c.Query("status"))
	switch status {
	case "", models.TransactionStatusPending, models.TransactionStatusSuccess, models.TransactionStatusFailed:
	default:
		return h.writeError(c, services.ValidationError("status", "unknown transaction status"))
	}

	filter := store.TransactionFilter{
		OrderID:   c.Query("orderId"),
		SourceApp: c.Query("sourceApp"),
		Status:    status,
		Limit:     pagination.Limit,
		Offset:    pagination.Offset,
	}
	if merchant, ok := middleware.GetMerchantApp(c); ok {
		filter.SourceApp = merchant
	}

	txns, total, err := h.payments.ListTransactions(c.UserContext(), filter)
	if err != nil {
		return h.writeError(c, err)
	}

	views := make([]transactionView, 0, len(txns))
	for i := range txns {
		views = append(views, newTransactionView(&txns[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    views,
		"pagination": fiber.Map{
			"page":       pagination.Page,
			"limit":      pagination.Limit,
			"total":      total,
			"totalPages": pagination.TotalPages(total),
		},
	})
}

// GetTransaction returns a single attempt with the card number masked.
func (h *PaymentHandler) GetTransaction(c *fiber.Ctx) error {
	txn, err := h.payments.GetTransaction(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return h.writeError(c, err)
	}
	if merchant, ok := middleware.GetMerchantApp(c); ok && txn.SourceApp != merchant {
		return h.writeError(c, &services.PaymentError{Info: services.ErrorTransactionNotFound})
	}
	return c.JSON(fiber.Map{"success": true, "data": newTransactionView(txn)})
}

// decodeStrict parses a single JSON object into dst, rejecting unknown fields
// and trailing data, then applies struct validation.
func decodeStrict(c *fiber.Ctx, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return services.ValidationError("body", fmt.Sprintf("invalid request body: %v", err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return services.ValidationError("body", "request body must contain a single JSON object")
	}

	if _, err := govalidator.ValidateStruct(dst); err != nil {
		field, msg := firstFieldError(dst, err)
		return services.ValidationError(field, msg)
	}
	return nil
}

// firstFieldError reports the first failing field by its JSON name.
func firstFieldError(dst any, err error) (string, string) {
	var errs govalidator.Errors
	if errors.As(err, &errs) {
		for _, e := range errs.Errors() {
			var fe govalidator.Error
			if errors.As(e, &fe) {
				return jsonFieldName(dst, fe.Name), fe.Err.Error()
			}
		}
	}
	return "body", err.Error()
}

func jsonFieldName(dst any, name string) string {
	t := reflect.TypeOf(dst)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return name
	}
	if f, ok := t.FieldByName(name); ok {
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" {
			return tag
		}
	}
	return name
}

func (h *PaymentHandler) writeError(c *fiber.Ctx, err error) error {
	var pe *services.PaymentError
	if !errors.As(err, &pe) {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"code":    "internal_error",
			"message": "Server Error",
		})
	}

	status := fiber.StatusInternalServerError
	switch pe.Info.Kind {
	case services.KindValidation:
		status = fiber.StatusBadRequest
	case services.KindNotFound:
		status = fiber.StatusNotFound
	case services.KindConflict:
		status = fiber.StatusConflict
	case services.KindUnavailable:
		status = fiber.StatusServiceUnavailable
		c.Set(fiber.HeaderRetryAfter, "1")
	}

	body := fiber.Map{
		"success": false,
		"code":    pe.Info.Code,
		"message": pe.Message(),
	}
	if pe.Field != "" {
		body["field"] = pe.Field
	}
	if pe.TransactionID != "" {
		body["transactionId"] = pe.TransactionID
	}
	return c.Status(status).JSON(body)
}
