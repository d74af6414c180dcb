package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	PackageID string `json:"package_id"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	packageID := strings.TrimSpace(req.PackageID)
	if packageID == "" {
		AbortWithError(c, newValidationError("package_id", "invalid_package", "package_id is required"))
		return
	}

	checkout, err := s.orderSvc.Create(c.Request.Context(), user.ID, packageID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": checkout})
}
