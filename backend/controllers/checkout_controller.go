package controllers

import (
	"log"

	"storefront/backend/middleware"
	"storefront/backend/services"
	"storefront/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// CheckoutController drives the purchase flow: start an enrollment, look it
// up, pay for it. Every response carries an outcome tag and, where the client
// has somewhere to go, a next hint.
type CheckoutController struct {
	Enrollments *services.EnrollmentManager
	Payments    *services.PaymentConfirmer
	Logger      *log.Logger
}

func NewCheckoutController(enrollments *services.EnrollmentManager, payments *services.PaymentConfirmer, logger *log.Logger) *CheckoutController {
	return &CheckoutController{Enrollments: enrollments, Payments: payments, Logger: logger}
}

type PayInput struct {
	PaymentToken string `json:"payment_token" validate:"required"`
}

// Initiate godoc
// @Summary Start checkout
// @Description Creates a pending enrollment, or returns the existing one
// @Tags checkout
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse "already_exists"
// @Success 201 {object} utils.SuccessResponse "created"
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /checkout/{courseId} [post]
func (cc *CheckoutController) Initiate(c *fiber.Ctx) error {
	courseID, ok := parseID(c, "courseId")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	res, err := cc.Enrollments.InitiateEnrollment(c.UserContext(), middleware.CurrentUser(c), courseID)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}

	status := fiber.StatusOK
	if res.Status == services.OutcomeCreated {
		status = fiber.StatusCreated
	}
	return utils.Success(c, status, fiber.Map{
		"enrollment": res.Enrollment,
		"next":       res.Next(),
	}, utils.WithOutcome(string(res.Status)))
}

func (cc *CheckoutController) State(c *fiber.Ctx) error {
	courseID, ok := parseID(c, "courseId")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	enrollment, err := cc.Enrollments.GetEnrollmentState(c.UserContext(), middleware.CurrentUser(c), courseID)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}
	if enrollment == nil {
		return utils.Fail(c, fiber.StatusNotFound, "No enrollment for this course", utils.WithOutcome("not_enrolled"))
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"enrollment": enrollment,
		"next":       services.NextStep(*enrollment),
	})
}

// Pay godoc
// @Summary Pay for a pending enrollment
// @Description Charges the course price and completes the enrollment on success
// @Tags checkout
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param input body PayInput true "Payment token"
// @Success 200 {object} utils.SuccessResponse "completed"
// @Failure 402 {object} utils.ErrorResponse "payment_failed"
// @Failure 409 {object} utils.ErrorResponse "invalid_state"
// @Security ApiKeyAuth
// @Router /checkout/{courseId}/pay [post]
func (cc *CheckoutController) Pay(c *fiber.Ctx) error {
	courseID, ok := parseID(c, "courseId")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input PayInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := validateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	enrollment, err := cc.Payments.Pay(c.UserContext(), middleware.CurrentUser(c), courseID, input.PaymentToken)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"enrollment": enrollment,
		"next":       services.NextStep(enrollment),
	}, utils.WithOutcome(string(services.OutcomeCompleted)))
}
