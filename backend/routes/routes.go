package routes

import (
	"log"

	"storefront/backend/config"
	"storefront/backend/controllers"
	"storefront/backend/metrics"
	"storefront/backend/middleware"
	"storefront/backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"
)

// Dependencies is everything the HTTP layer needs, assembled by main.
type Dependencies struct {
	DB          *gorm.DB
	Cfg         *config.Config
	Logger      *log.Logger
	Metrics     *metrics.Metrics
	Catalog     *services.CatalogReader
	Writer      controllers.CourseWriter
	Enrollments *services.EnrollmentManager
	Payments    *services.PaymentConfirmer
}

// NewApp builds the Fiber app with the global middleware and every route.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
	}
	app.Use(middleware.LoggingMiddleware(deps.Logger))

	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Cfg

	healthController := controllers.NewHealthController(deps.DB)
	app.Get("/health", healthController.Check)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	// Auth routes
	authController := controllers.NewAuthController(deps.DB, cfg, deps.Logger)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware()

	// User routes
	userController := controllers.NewUserController(deps.DB, deps.Logger)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Catalog routes
	coursesController := controllers.NewCoursesController(deps.Catalog, deps.Writer, deps.Logger)
	courses := app.Group("/api/courses")
	courses.Get("/", coursesController.ListCourses)
	courses.Get("/:id", coursesController.GetCourse)
	courses.Get("/:id/lectures", optionalAuth, coursesController.ListLectures)
	app.Get("/api/my-courses", authMiddleware, coursesController.MyCourses)

	// Checkout routes
	checkoutController := controllers.NewCheckoutController(deps.Enrollments, deps.Payments, deps.Logger)
	checkout := app.Group("/api/checkout", authMiddleware)
	checkout.Post("/:courseId", checkoutController.Initiate)
	checkout.Get("/:courseId", checkoutController.State)
	checkout.Post("/:courseId/pay", checkoutController.Pay)

	// Admin routes for courses
	adminCourses := app.Group("/api/admin/courses", authMiddleware, adminMiddleware)
	adminCourses.Post("/", coursesController.CreateCourse)
	adminCourses.Post("/:id/lectures", coursesController.AddLecture)
}
