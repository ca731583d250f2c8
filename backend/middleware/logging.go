package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

func LoggingMiddleware(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		}

		if err != nil {
			logger.Printf("%s %s %s %d %v user=%d err=%v",
				c.IP(), c.Method(), c.Path(), status, time.Since(start), CurrentUser(c), err)
			return err
		}
		logger.Printf("%s %s %s %d %v user=%d",
			c.IP(), c.Method(), c.Path(), status, time.Since(start), CurrentUser(c))
		return nil
	}
}
