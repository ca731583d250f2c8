package controllers

import (
	"log"
	"strconv"

	"storefront/backend/services"
	"storefront/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type outcomeReply struct {
	status  int
	message string
}

var outcomeReplies = map[services.Outcome]outcomeReply{
	services.OutcomeUnauthenticated: {fiber.StatusUnauthorized, "Sign in to continue"},
	services.OutcomeNotFound:        {fiber.StatusNotFound, "Course not found"},
	services.OutcomeInvalidState:    {fiber.StatusConflict, "The enrollment cannot be paid in its current state"},
	services.OutcomePaymentFailed:   {fiber.StatusPaymentRequired, "Payment failed, please try again"},
}

// serviceError writes the tagged response for an error from the services
// package. Clients get a fixed message and the reason; the wrapped error
// only goes to the log.
func serviceError(c *fiber.Ctx, logger *log.Logger, err error) error {
	outcome := services.OutcomeOf(err)
	reply, ok := outcomeReplies[outcome]
	if !ok {
		logger.Printf("%s %s: %v", c.Method(), c.Path(), err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Something went wrong, please try again",
			utils.WithOutcome(string(services.OutcomeInternal)))
	}

	opts := []utils.Option{utils.WithOutcome(string(outcome))}
	if reason := services.ReasonOf(err); reason != "" {
		opts = append(opts, utils.WithDetails(fiber.Map{"reason": reason}))
	}
	if outcome == services.OutcomePaymentFailed {
		logger.Printf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return utils.Fail(c, reply.status, reply.message, opts...)
}

func parseID(c *fiber.Ctx, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
