package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTIssuerRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewJWTIssuer("secret", time.Hour, 24*time.Hour, 15*time.Minute).WithClock(func() time.Time { return now })
	userID := uuid.New()

	pair, err := issuer.IssuePair(userID, true)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), pair.AccessExpiresAt)

	claims, err := issuer.Parse(pair.Access, TokenAccess)
	require.NoError(t, err)
	got, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.True(t, claims.IsStaff)

	_, err = issuer.Parse(pair.Refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrWrongTokenKind)

	_, err = issuer.Parse(pair.Refresh, TokenRefresh)
	assert.NoError(t, err)
}

func TestJWTIssuerRejectsExpiredAndForeignTokens(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer := NewJWTIssuer("secret", time.Hour, 24*time.Hour, 15*time.Minute).WithClock(clock)

	reset, expires, err := issuer.IssueReset(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), expires)

	now = now.Add(16 * time.Minute)
	_, err = issuer.Parse(reset, TokenPasswordReset)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other := NewJWTIssuer("other-secret", time.Hour, time.Hour, time.Hour).WithClock(clock)
	foreign, _, err := other.IssueReset(uuid.New())
	require.NoError(t, err)
	_, err = issuer.Parse(foreign, TokenPasswordReset)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Str0ng!pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "Str0ng!pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "Str0ng!pass"))
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParsePagination(c)
		return c.JSON(got.Meta(41))
	})

	_, err := app.Test(httptest.NewRequest("GET", "/?page=3&limit=500", nil))
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 3, Limit: MaxPageSize, Offset: 200}, got)

	_, err = app.Test(httptest.NewRequest("GET", "/?page=-1&limit=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Offset: 0}, got)
	assert.EqualValues(t, 3, got.Meta(41)["pages"])
}
