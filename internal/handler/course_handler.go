package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/service"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// CourseHandler handles course lifecycle and enrollment endpoints.
type CourseHandler struct {
	service *service.CourseService
	metrics *service.MetricsService
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(svc *service.CourseService, metrics *service.MetricsService) *CourseHandler {
	return &CourseHandler{service: svc, metrics: metrics}
}

// List returns courses matching the query filters.
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	if raw := c.Query("published"); raw != "" {
		if published, err := strconv.ParseBool(raw); err == nil {
			filter.PublishedOnly = published
		}
	}
	if raw := c.Query("archived"); raw != "" {
		if archived, err := strconv.ParseBool(raw); err == nil {
			filter.Archived = &archived
		}
	}
	filter.ManagerID = c.Query("module_manager")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	courses, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get returns a course with its lectures and enrolled students.
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create adds a new course in draft state.
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update modifies course content.
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Publish flips the course out of draft. Publishing twice is reported, not
// treated as a failure.
func (h *CourseHandler) Publish(c *gin.Context) {
	course, alreadyPublished, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "Course published successfully"
	if alreadyPublished {
		message = "Course is already published"
	}
	response.JSONMessage(c, http.StatusOK, course, message)
}

// Archive hides the course from active listings.
func (h *CourseHandler) Archive(c *gin.Context) {
	course, err := h.service.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Unarchive restores an archived course.
func (h *CourseHandler) Unarchive(c *gin.Context) {
	course, err := h.service.Unarchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete removes a course with its lectures and enrollments.
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EnrollStudents links students to the course.
func (h *CourseHandler) EnrollStudents(c *gin.Context) {
	var req service.EnrollStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.EnrollStudents(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentOperation()
	response.JSONMessage(c, http.StatusOK, course, "Students enrolled successfully")
}

// UnenrollStudents removes students from the course.
func (h *CourseHandler) UnenrollStudents(c *gin.Context) {
	var req service.EnrollStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.UnenrollStudents(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentOperation()
	response.JSON(c, http.StatusOK, course, nil)
}

// StudentProgress returns one student's progress across the course.
func (h *CourseHandler) StudentProgress(c *gin.Context) {
	progress, err := h.service.StudentProgress(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
