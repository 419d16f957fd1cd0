package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/middleware"
	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/service"
)

// Handlers bundles every HTTP handler behind the router.
type Handlers struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Coaches   *CoachHandler
	Students  *StudentHandler
	Courses   *CourseHandler
	Lectures  *LectureHandler
	Events    *EventHandler
	Products  *ProductHandler
	Finances  *FinanceHandler
	Invoices  *InvoiceHandler
	Exports   *ExportHandler
	Dashboard *DashboardHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes wires all endpoints onto the engine. Admin-only groups use
// RBAC; students reach their own quiz, completion and progress routes.
func RegisterRoutes(r *gin.Engine, h Handlers, authService *service.AuthService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	authed := auth.Group("")
	authed.Use(middleware.JWT(authService))
	authed.POST("/logout", h.Auth.Logout)
	authed.POST("/change-password", h.Auth.ChangePassword)
	authed.GET("/me", h.Auth.Me)

	// Signed download links carry their own authorization token.
	v1.GET("/exports/download", h.Exports.Download)

	protected := v1.Group("")
	protected.Use(middleware.JWT(authService))

	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrCoach := middleware.RequireRoles(models.RoleAdmin, models.RoleCoach)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleCoach, models.RoleStudent)

	users := protected.Group("/users")
	users.GET("", admin, h.Users.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), h.Users.Get)
	users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), h.Users.UpdateProfile)
	users.PATCH("/:id/active", admin, h.Users.SetActive)

	coaches := protected.Group("/coaches")
	coaches.GET("", adminOrCoach, h.Coaches.List)
	coaches.GET("/:id", adminOrCoach, h.Coaches.Get)
	coaches.POST("", admin, h.Coaches.Create)
	coaches.PUT("/:id", admin, h.Coaches.Update)
	coaches.PUT("/:id/students", admin, h.Coaches.AssignStudents)
	coaches.DELETE("/:id", admin, h.Coaches.Delete)

	students := protected.Group("/students")
	students.GET("", adminOrCoach, h.Students.List)
	students.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleCoach), middleware.RoleSelf), h.Students.Get)
	students.GET("/:id/coach", middleware.RBAC(string(models.RoleAdmin), string(models.RoleCoach), middleware.RoleSelf), h.Students.Coach)
	students.POST("", adminOrCoach, h.Students.Create)
	students.PUT("/:id", admin, h.Students.Update)
	students.DELETE("/:id", admin, h.Students.Delete)

	courses := protected.Group("/courses")
	courses.GET("", anyRole, h.Courses.List)
	courses.GET("/:id", anyRole, h.Courses.Get)
	courses.POST("", admin, h.Courses.Create)
	courses.PUT("/:id", admin, h.Courses.Update)
	courses.POST("/:id/publish", admin, h.Courses.Publish)
	courses.POST("/:id/archive", admin, h.Courses.Archive)
	courses.POST("/:id/unarchive", admin, h.Courses.Unarchive)
	courses.DELETE("/:id", admin, h.Courses.Delete)
	courses.POST("/:id/students", admin, h.Courses.EnrollStudents)
	courses.DELETE("/:id/students", admin, h.Courses.UnenrollStudents)
	courses.GET("/:id/lectures", anyRole, h.Lectures.ListByCourse)
	courses.POST("/:id/lectures", admin, h.Lectures.Create)
	courses.GET("/:id/progress/:studentId", middleware.RBAC(string(models.RoleAdmin), string(models.RoleCoach)), h.Courses.StudentProgress)

	lectures := protected.Group("/lectures")
	lectures.GET("/:id", anyRole, h.Lectures.Get)
	lectures.PUT("/:id", admin, h.Lectures.Update)
	lectures.DELETE("/:id", admin, h.Lectures.Delete)
	lectures.POST("/:id/quiz", anyRole, h.Lectures.SubmitQuiz)
	lectures.POST("/:id/complete", anyRole, h.Lectures.MarkCompleted)
	lectures.DELETE("/:id/complete", adminOrCoach, h.Lectures.UnmarkCompleted)

	events := protected.Group("/events")
	events.GET("", adminOrCoach, h.Events.List)
	events.GET("/:id", adminOrCoach, h.Events.Get)
	events.POST("", adminOrCoach, h.Events.Create)
	events.PUT("/:id", adminOrCoach, h.Events.Update)
	events.DELETE("/:id", adminOrCoach, h.Events.Delete)

	products := protected.Group("/products")
	products.Use(admin)
	products.GET("", h.Products.List)
	products.GET("/:id", h.Products.Get)
	products.POST("", h.Products.Create)
	products.PUT("/:id", h.Products.Update)
	products.DELETE("/:id", h.Products.Delete)
	products.POST("/import", h.Products.Import)

	finances := protected.Group("/daily-finances")
	finances.Use(admin)
	finances.GET("", h.Finances.List)
	finances.GET("/:id", h.Finances.Get)
	finances.POST("", h.Finances.Create)
	finances.PUT("/:id", h.Finances.Update)
	finances.DELETE("/:id", h.Finances.Delete)
	finances.POST("/import", h.Finances.Import)

	invoices := protected.Group("/invoices")
	invoices.Use(admin)
	invoices.GET("", h.Invoices.List)
	invoices.GET("/:id", h.Invoices.Get)
	invoices.POST("", h.Invoices.Create)
	invoices.PUT("/:id", h.Invoices.Update)
	invoices.DELETE("/:id", h.Invoices.Delete)
	invoices.POST("/import", h.Invoices.Import)

	exports := protected.Group("/exports")
	exports.POST("", admin, h.Exports.Generate)

	dashboard := protected.Group("/dashboard")
	dashboard.GET("", admin, h.Dashboard.Summary)
}
