package server

import (
	"net/http"
	"strconv"
	"strings"

	advisordomain "github.com/careerforge/careerforge/internal/advisor/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type createAssessmentRequest struct {
	Industry string `json:"industry"`
	Skills   string `json:"skills"`
}

func (s *Server) CreateAssessment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	assessment, err := s.advisorSvc.GenerateQuiz(c.Request.Context(), user.ID, strings.TrimSpace(req.Industry), strings.TrimSpace(req.Skills))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assessment})
}

func (s *Server) SubmitAssessment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	assessmentID, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_request", "invalid assessment id"))
		return
	}

	var req advisordomain.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	assessment, err := s.advisorSvc.SubmitQuiz(c.Request.Context(), user.ID, assessmentID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assessment})
}

type improveResumeRequest struct {
	Content string `json:"content"`
}

func (s *Server) ImproveResume(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req improveResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resume, err := s.advisorSvc.ImproveResume(c.Request.Context(), user.ID, req.Content)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resume})
}

func (s *Server) CreateCoverLetter(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req advisordomain.CoverLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	letter, err := s.advisorSvc.DraftCoverLetter(c.Request.Context(), user.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": letter})
}

func (s *Server) GetIndustryInsights(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	insight, err := s.advisorSvc.IndustryInsights(c.Request.Context(), user.ID, c.Param("industry"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": insight})
}

func parseSnowflakeParam(raw string) (snowflake.ID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return snowflake.ID(v), nil
}
