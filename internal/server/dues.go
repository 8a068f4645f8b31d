package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	duedomain "github.com/smallbiznis/campusbooks/internal/due/domain"
)

func (s *Server) AddDue(c *gin.Context) {
	var req duedomain.AddDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.dueSvc.AddDue(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApplyAdjustment(c *gin.Context) {
	itemID, err := parseIDParam(c, "itemID")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req duedomain.ApplyAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.DueItemID = itemID

	resp, err := s.dueSvc.ApplyAdjustment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelAdjustment(c *gin.Context) {
	itemID, err := parseIDParam(c, "itemID")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	adjustmentID, err := parseIDParam(c, "adjustmentID")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.dueSvc.CancelAdjustment(c.Request.Context(), itemID, adjustmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
