package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	accountdomain "github.com/careerforge/careerforge/internal/account/domain"
	"github.com/careerforge/careerforge/internal/clock"
	"github.com/careerforge/careerforge/internal/config"
	"github.com/careerforge/careerforge/internal/identity"
	"go.uber.org/zap"
)

type fakeAccountService struct {
	ensureCalls int
	lastSubject string
}

func (f *fakeAccountService) EnsureUser(ctx context.Context, principal identity.Principal) (*accountdomain.User, error) {
	f.ensureCalls++
	f.lastSubject = principal.Subject
	_ = ctx
	return &accountdomain.User{ID: snowflake.ID(7), ExternalID: principal.Subject}, nil
}

func (f *fakeAccountService) GetByID(ctx context.Context, id snowflake.ID) (*accountdomain.User, error) {
	_ = ctx
	_ = id
	return nil, accountdomain.ErrUserNotFound
}

func (f *fakeAccountService) UpdateProfile(ctx context.Context, id snowflake.ID, req accountdomain.UpdateProfileRequest) (*accountdomain.User, error) {
	_ = ctx
	_ = id
	_ = req
	return nil, accountdomain.ErrUserNotFound
}

func newAuthRouter(t *testing.T) (*gin.Engine, *identity.Verifier, *fakeAccountService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier := identity.NewVerifier(config.Config{AuthTokenSecret: "test-secret"}, clock.NewFakeClock(time.Now()), zap.NewNop())
	accounts := &fakeAccountService{}
	srv := &Server{verifier: verifier, accountSvc: accounts}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/api/tokens/balance", srv.AuthRequired(), func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			t.Error("current user missing after auth")
		}
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID.String()})
	})
	return router, verifier, accounts
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	router, verifier, accounts := newAuthRouter(t)

	token, err := verifier.Mint(identity.Principal{Subject: "ext_1"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tokens/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if accounts.ensureCalls != 1 || accounts.lastSubject != "ext_1" {
		t.Fatalf("expected EnsureUser for ext_1, got calls=%d subject=%q", accounts.ensureCalls, accounts.lastSubject)
	}
}

func TestAuthRequiredRejectsMissingAndBadTokens(t *testing.T) {
	router, verifier, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tokens/balance", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected status 401, got %d", resp.Code)
	}

	token, err := verifier.Mint(identity.Principal{Subject: "ext_1"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/tokens/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("tampered token: expected status 401, got %d", resp.Code)
	}
}
