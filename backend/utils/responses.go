package utils

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse wraps every 2xx body.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Outcome string      `json:"outcome,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse wraps every failure. Outcome is the tag clients branch on:
// sign in, pay, or view content.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Outcome string      `json:"outcome,omitempty"`
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type envelope struct {
	outcome string
	details interface{}
	meta    interface{}
}

// Option adds optional fields to a response envelope.
type Option func(*envelope)

func WithOutcome(outcome string) Option {
	return func(e *envelope) { e.outcome = outcome }
}

// WithDetails is ignored by Success.
func WithDetails(details interface{}) Option {
	return func(e *envelope) { e.details = details }
}

// WithMeta is ignored by Error.
func WithMeta(meta interface{}) Option {
	return func(e *envelope) { e.meta = meta }
}

func build(opts []Option) envelope {
	var e envelope
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func Success(c *fiber.Ctx, status int, data interface{}, opts ...Option) error {
	e := build(opts)
	return c.Status(status).JSON(SuccessResponse{
		Success: true,
		Outcome: e.outcome,
		Data:    data,
		Meta:    e.meta,
	})
}

func Error(c *fiber.Ctx, status int, err error, opts ...Option) error {
	e := build(opts)
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Outcome: e.outcome,
		Error:   http.StatusText(status),
		Message: err.Error(),
		Details: e.details,
	})
}

// Fail is Error with a plain message.
func Fail(c *fiber.Ctx, status int, message string, opts ...Option) error {
	return Error(c, status, fiber.NewError(status, message), opts...)
}

type PaginatedResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

func Paginate(c *fiber.Ctx, data interface{}, total int64, page int, pageSize int) error {
	return c.JSON(PaginatedResponse{
		Success:  true,
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// ValidationError answers 422 with one message per json field.
func ValidationError(c *fiber.Ctx, errors map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
		Success: false,
		Error:   "Validation Error",
		Details: errors,
	})
}

func Created(c *fiber.Ctx, data interface{}) error {
	return Success(c, fiber.StatusCreated, data)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusNotFound, message)
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusUnauthorized, message)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusForbidden, message)
}

func Conflict(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusConflict, message)
}

func InternalServerError(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusInternalServerError, message)
}
