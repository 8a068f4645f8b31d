package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	examdomain "github.com/smallbiznis/campusbooks/internal/exam/domain"
)

func (s *Server) CreateExam(c *gin.Context) {
	var req examdomain.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.examSvc.CreateExam(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListExams(c *gin.Context) {
	resp, err := s.examSvc.ListExams(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateExamSchedules(c *gin.Context) {
	examID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req struct {
		Schedules []examdomain.ScheduleInput `json:"schedules" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.examSvc.CreateSchedules(c.Request.Context(), examID, req.Schedules)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListExamSchedules(c *gin.Context) {
	examID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.examSvc.ListSchedules(c.Request.Context(), examID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpsertExamResult(c *gin.Context) {
	var req examdomain.UpsertResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.examSvc.UpsertComponentResult(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetResultSummary(c *gin.Context) {
	examID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	studentID, err := parseIDParam(c, "studentID")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.examSvc.Summarize(c.Request.Context(), studentID, examID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPublishedSummary(c *gin.Context) {
	examID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	studentID, err := parseIDParam(c, "studentID")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.examSvc.PublishedSummary(c.Request.Context(), studentID, examID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetExamResultStatus(c *gin.Context) {
	examID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=DRAFT PUBLISHED UNPUBLISHED"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := examdomain.ResultStatus(strings.TrimSpace(req.Status))
	resp, err := s.examSvc.SetResultStatus(c.Request.Context(), examID, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SaveGradeScale(c *gin.Context) {
	var req struct {
		Bands []examdomain.GradeBandInput `json:"bands" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.examSvc.SaveGradeScale(c.Request.Context(), req.Bands)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGradeScale(c *gin.Context) {
	resp, err := s.examSvc.GradeScale(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
