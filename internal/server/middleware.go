package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/campusbooks/pkg/tenantctx"
)

const (
	HeaderSchool = "X-School-ID"
	HeaderActor  = "X-Actor-ID"
)

// SchoolContext resolves the tenant school from the request header and
// injects it into the request context. Single-school deployments fall back
// to the configured default; requests without either are rejected.
func (s *Server) SchoolContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		schoolID, err := s.resolveSchoolID(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := tenantctx.WithSchoolID(c.Request.Context(), schoolID)
		if actor := strings.TrimSpace(c.GetHeader(HeaderActor)); actor != "" {
			ctx = tenantctx.WithActorID(ctx, actor)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) resolveSchoolID(c *gin.Context) (snowflake.ID, error) {
	header := strings.TrimSpace(c.GetHeader(HeaderSchool))
	if header != "" {
		id, err := snowflake.ParseString(header)
		if err != nil || id == 0 {
			return 0, newValidationError("school_id", "invalid_school", "invalid school id")
		}
		return id, nil
	}
	if s.cfg.DefaultSchoolID != 0 {
		return snowflake.ID(s.cfg.DefaultSchoolID), nil
	}
	return 0, newValidationError("school_id", "missing_school", "school id is required")
}
