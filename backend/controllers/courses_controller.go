package controllers

import (
	"context"
	"errors"
	"log"
	"strconv"

	"storefront/backend/middleware"
	"storefront/backend/models"
	"storefront/backend/services"
	"storefront/backend/store"
	"storefront/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CourseWriter is the admin side of the catalog.
type CourseWriter interface {
	CreateCourse(ctx context.Context, course *models.Course) error
	CreateLecture(ctx context.Context, lecture *models.Lecture) error
}

type CoursesController struct {
	Catalog *services.CatalogReader
	Writer  CourseWriter
	Logger  *log.Logger
}

func NewCoursesController(catalog *services.CatalogReader, writer CourseWriter, logger *log.Logger) *CoursesController {
	return &CoursesController{Catalog: catalog, Writer: writer, Logger: logger}
}

type CreateCourseInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Price       string `json:"price" validate:"required,price" example:"3000.00"`
	Level       string `json:"level" validate:"required,oneof=Beginner Intermediate Advanced"`
	Instructor  string `json:"instructor" validate:"max=120"`
	Duration    string `json:"duration" validate:"max=60"`
}

type CreateLectureInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Duration    string `json:"duration" validate:"max=60"`
	IsDemo      bool   `json:"is_demo"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
}

// ListCourses godoc
// @Summary List courses
// @Description Returns a page of the catalog, optionally filtered by level
// @Tags courses
// @Produce json
// @Param level query string false "Beginner, Intermediate or Advanced"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(10)
// @Success 200 {object} utils.PaginatedResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /courses [get]
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	level := models.Level(c.Query("level"))
	if level != "" && !level.Valid() {
		return utils.ValidationError(c, map[string]string{"level": "must be one of: Beginner Intermediate Advanced"})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	courses, total, err := cc.Catalog.ListCourses(c.UserContext(), level, page, pageSize)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}
	return utils.Paginate(c, courses, total, page, pageSize)
}

func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	courseID, ok := parseID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	course, err := cc.Catalog.GetCourse(c.UserContext(), courseID)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, course)
}

// ListLectures godoc
// @Summary List visible lectures
// @Description Purchasers see every lecture; everyone else sees demo lectures only
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /courses/{id}/lectures [get]
func (cc *CoursesController) ListLectures(c *fiber.Ctx) error {
	courseID, ok := parseID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	listing, err := cc.Catalog.ListVisibleLectures(c.UserContext(), middleware.CurrentUser(c), courseID)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, listing)
}

// MyCourses godoc
// @Summary Purchased courses
// @Description Courses with a completed enrollment, most recent first
// @Tags courses
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /my-courses [get]
func (cc *CoursesController) MyCourses(c *fiber.Ctx) error {
	courses, err := cc.Catalog.ListMyCourses(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input CreateCourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := validateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	course := models.Course{
		Title:       input.Title,
		Description: input.Description,
		Price:       decimal.RequireFromString(input.Price),
		Level:       models.Level(input.Level),
		Instructor:  input.Instructor,
		Duration:    input.Duration,
	}
	if err := cc.Writer.CreateCourse(c.UserContext(), &course); err != nil {
		cc.Logger.Printf("create course %q: %v", input.Title, err)
		return utils.InternalServerError(c, "Could not create course")
	}

	cc.Logger.Printf("course created id=%d by user=%d", course.ID, middleware.CurrentUser(c))
	return utils.Created(c, course)
}

func (cc *CoursesController) AddLecture(c *fiber.Ctx) error {
	courseID, ok := parseID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input CreateLectureInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := validateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	if _, err := cc.Catalog.GetCourse(c.UserContext(), courseID); err != nil {
		return serviceError(c, cc.Logger, err)
	}

	lecture := models.Lecture{
		CourseID:    courseID,
		Title:       input.Title,
		Description: input.Description,
		Duration:    input.Duration,
		IsDemo:      input.IsDemo,
		OrderIndex:  input.OrderIndex,
	}
	if err := cc.Writer.CreateLecture(c.UserContext(), &lecture); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.Conflict(c, "A lecture with this order index already exists")
		}
		cc.Logger.Printf("add lecture course=%d: %v", courseID, err)
		return utils.InternalServerError(c, "Could not create lecture")
	}

	return utils.Created(c, lecture)
}
