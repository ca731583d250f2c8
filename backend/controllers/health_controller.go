package controllers

import (
	"context"
	"time"

	"storefront/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthController struct {
	DB *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{DB: db}
}

func (hc *HealthController) Check(c *fiber.Ctx) error {
	sqlDB, err := hc.DB.DB()
	if err != nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"status": "ok"})
}
