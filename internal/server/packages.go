package server

import (
	"net/http"

	"github.com/careerforge/careerforge/internal/catalog"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": catalog.All()})
}
