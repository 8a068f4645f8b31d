package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/campusbooks/internal/cache"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
	studentdomain "github.com/smallbiznis/campusbooks/internal/student/domain"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
)

func (s *Server) EnrollStudent(c *gin.Context) {
	var req studentdomain.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.studentSvc.Enroll(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListStudents(c *gin.Context) {
	resp, err := s.studentSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStudent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.studentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListStudentDues serves the student's due ledger, cached per student until
// a mutation invalidates the tag.
func (s *Server) ListStudentDues(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	schoolID, _ := tenantctx.SchoolID(ctx)
	tag := cache.StudentDuesTag(schoolID, id)

	if s.viewStore != nil {
		if payload, ok := s.viewStore.GetView(tag); ok {
			c.Data(http.StatusOK, "application/json", payload)
			return
		}
	}

	dues, err := s.dueSvc.ListStudentDues(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payload, err := json.Marshal(gin.H{"data": dues})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.viewStore != nil {
		s.viewStore.SetView(tag, payload)
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// GenerateStudentDues backfills missing due periods for one student, e.g.
// after the fee structure gained new active items.
func (s *Server) GenerateStudentDues(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	student, err := s.studentSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	schoolID, _ := tenantctx.SchoolID(ctx)
	summary, err := s.dueSvc.Generate(ctx, duedomain.GenerateRequest{
		SchoolID:       schoolID,
		StudentID:      student.ID,
		FeeStructureID: student.FeeStructureID,
		AdmissionDate:  student.AdmissionDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
