package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	collectiondomain "github.com/smallbiznis/campusbooks/internal/collection/domain"
)

func (s *Server) CollectFees(c *gin.Context) {
	var req collectiondomain.CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.collectionSvc.Collect(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCollections(c *gin.Context) {
	var query struct {
		StudentID string `form:"student_id"`
		Limit     int    `form:"limit,default=50"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := collectiondomain.ListFilter{Limit: query.Limit}
	if trimmed := strings.TrimSpace(query.StudentID); trimmed != "" {
		studentID, err := parseOptionalSnowflakeID(trimmed)
		if err != nil {
			AbortWithError(c, newValidationError("student_id", "invalid_student_id", "invalid student id"))
			return
		}
		filter.StudentID = *studentID
	}

	resp, err := s.collectionSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCollection(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.collectionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
