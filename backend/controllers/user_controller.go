package controllers

import (
	"errors"
	"log"

	"storefront/backend/middleware"
	"storefront/backend/models"
	"storefront/backend/store"
	"storefront/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewUserController(db *gorm.DB, logger *log.Logger) *UserController {
	return &UserController{DB: db, Logger: logger}
}

type UpdateUserRequest struct {
	Email       string `json:"email" validate:"omitempty,email" example:"user@example.com"`
	OldPassword string `json:"old_password" example:"oldPassword123"`
	NewPassword string `json:"new_password" validate:"omitempty,min=8" example:"newPassword123"`
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns the signed-in user's profile and the number of purchased courses
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUser(c)
	db := uc.DB.WithContext(c.UserContext())

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return uc.lookupError(c, userID, err)
	}

	var purchased int64
	if err := db.Model(&models.Enrollment{}).
		Where("user_id = ? AND payment_status = ?", userID, models.PaymentCompleted).
		Count(&purchased).Error; err != nil {
		uc.Logger.Printf("count purchases user=%d: %v", userID, err)
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":                user.ID,
		"username":          user.Username,
		"email":             user.Email,
		"role":              user.Role,
		"created_at":        user.CreatedAt,
		"purchased_courses": purchased,
	})
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Changes the signed-in user's email or password
// @Tags users
// @Accept json
// @Produce json
// @Param input body UpdateUserRequest true "Profile update data"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID := middleware.CurrentUser(c)

	var input UpdateUserRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := validateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	db := uc.DB.WithContext(c.UserContext())
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return uc.lookupError(c, userID, err)
	}

	if input.Email != "" {
		user.Email = input.Email
	}

	if input.NewPassword != "" {
		if input.OldPassword == "" {
			return utils.BadRequest(c, "Old password is required to set new password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.Unauthorized(c, "Invalid old password")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := db.Save(&user).Error; err != nil {
		if store.IsUniqueViolation(err) {
			return utils.Conflict(c, "Email already taken")
		}
		uc.Logger.Printf("update profile user=%d: %v", userID, err)
		return utils.InternalServerError(c, "Could not update user")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Profile updated successfully",
	})
}

func (uc *UserController) lookupError(c *fiber.Ctx, userID uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFound(c, "User not found")
	}
	uc.Logger.Printf("load user=%d: %v", userID, err)
	return utils.InternalServerError(c, "Could not query database")
}
