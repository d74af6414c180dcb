package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/careerforge/careerforge/internal/clock"
	"github.com/careerforge/careerforge/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestVerifier(t *testing.T, clk clock.Clock) *Verifier {
	t.Helper()
	cfg := config.Config{AuthTokenSecret: "test-secret"}
	return NewVerifier(cfg, clk, zap.NewNop())
}

func TestMintAndVerifyRoundTrip(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, clk)

	token, err := v.Mint(Principal{Subject: "user_1", Email: "a@example.com", Name: "A"}, time.Hour)
	require.NoError(t, err)

	p, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user_1", p.Subject)
	require.Equal(t, "a@example.com", p.Email)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, clk)

	token, err := v.Mint(Principal{Subject: "user_1"}, time.Hour)
	require.NoError(t, err)

	flipped := []byte(token)
	flipped[0] ^= 0x01
	_, err = v.Verify(string(flipped))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	parts := strings.SplitN(token, ".", 2)
	_, err = v.Verify(parts[0])
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, clk)

	token, err := v.Mint(Principal{Subject: "user_1"}, time.Minute)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	minter := NewVerifier(config.Config{AuthTokenSecret: "other-secret"}, clk, zap.NewNop())

	token, err := minter.Mint(Principal{Subject: "user_1"}, time.Hour)
	require.NoError(t, err)

	v := newTestVerifier(t, clk)
	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
