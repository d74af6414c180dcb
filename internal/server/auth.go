package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/careerforge/careerforge/internal/identity"
	"github.com/gin-gonic/gin"
)

const sessionTTL = 24 * time.Hour

type createSessionRequest struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// CreateSession exchanges a subject for a signed session token. It
// stands in for a hosted identity provider callback in development
// and tests.
func (s *Server) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		AbortWithError(c, newValidationError("subject", "invalid_request", "subject is required"))
		return
	}

	principal := identity.Principal{
		Subject: subject,
		Email:   strings.TrimSpace(req.Email),
		Name:    strings.TrimSpace(req.Name),
	}

	token, err := s.verifier.Mint(principal, sessionTTL)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := s.accountSvc.EnsureUser(c.Request.Context(), principal)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token":      token,
		"expires_in": int64(sessionTTL.Seconds()),
		"user":       user,
	}})
}

func (s *Server) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}
