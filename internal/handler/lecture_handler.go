package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/service"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// LectureHandler handles lecture content, quiz and completion endpoints.
type LectureHandler struct {
	service *service.LectureService
	metrics *service.MetricsService
}

// NewLectureHandler constructs a lecture handler.
func NewLectureHandler(svc *service.LectureService, metrics *service.MetricsService) *LectureHandler {
	return &LectureHandler{service: svc, metrics: metrics}
}

// ListByCourse returns the course's lectures in position order.
func (h *LectureHandler) ListByCourse(c *gin.Context) {
	lectures, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lectures, nil)
}

// Get returns a lecture with its quiz and completion state.
func (h *LectureHandler) Get(c *gin.Context) {
	lecture, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Create appends a lecture to the course.
func (h *LectureHandler) Create(c *gin.Context) {
	var req service.CreateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lecture, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lecture)
}

// Update modifies lecture content and optionally replaces the quiz.
func (h *LectureHandler) Update(c *gin.Context) {
	var req service.UpdateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lecture, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Delete removes the lecture.
func (h *LectureHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SubmitQuiz grades the submitted answers for the authenticated student, or
// for the student named in the payload when an admin submits on their behalf.
func (h *LectureHandler) SubmitQuiz(c *gin.Context) {
	var req struct {
		service.SubmitQuizRequest
		StudentID string `json:"student_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	studentID := req.StudentID
	if studentID == "" {
		studentID = currentUserID(c)
	}
	result, err := h.service.SubmitQuiz(c.Request.Context(), c.Param("id"), studentID, req.SubmitQuizRequest)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordQuizSubmission(result.Pass)
	response.JSON(c, http.StatusOK, result, nil)
}

// MarkCompleted records a completion mark for the student.
func (h *LectureHandler) MarkCompleted(c *gin.Context) {
	studentID := c.Param("studentId")
	if studentID == "" {
		studentID = currentUserID(c)
	}
	lecture, err := h.service.MarkCompleted(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSONMessage(c, http.StatusOK, lecture, "Lecture marked as completed")
}

// UnmarkCompleted clears a completion mark for the student.
func (h *LectureHandler) UnmarkCompleted(c *gin.Context) {
	studentID := c.Param("studentId")
	if studentID == "" {
		studentID = currentUserID(c)
	}
	if err := h.service.UnmarkCompleted(c.Request.Context(), c.Param("id"), studentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
