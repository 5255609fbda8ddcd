package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/couture/internal/utils"
)

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:     "  Ada.Obi@Example.com ",
		FirstName: "ada",
		LastName:  "obi-okafor",
		Password:  "Str0ng!Pass",
	}
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	res, err := e.accounts.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.True(t, res.Dispatched)
	assert.Equal(t, "ada.obi@example.com", res.User.Email)
	assert.Equal(t, "Ada", res.User.FirstName)
	assert.Equal(t, "Obi-okafor", res.User.LastName)
	assert.False(t, res.User.IsEmailVerified)
	assert.True(t, res.User.IsActive)
	assert.NotEqual(t, "Str0ng!Pass", res.User.PasswordHash)

	stored, err := e.store.GetUserByEmail(ctx, "ada.obi@example.com")
	require.NoError(t, err)
	assert.Equal(t, "111111", stored.EmailOTP)
	assert.Equal(t, "ada.obi@example.com", e.mailer.last(t).To)
}

func TestRegisterCollectsEveryFieldError(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.createUser(t, "ada@example.com", false)

	_, err := e.accounts.Register(ctx, RegisterInput{
		Email:     "ADA@example.com",
		FirstName: "A",
		LastName:  "",
		Password:  "short",
	})
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"A user with this email already exists."}, fields["email"])
	assert.Equal(t, []string{"First name must be at least 2 characters long."}, fields["first_name"])
	assert.Equal(t, []string{"Last name cannot be empty."}, fields["last_name"])
	assert.Len(t, fields["password"], 4)
}

func TestRegisterSurvivesEmailFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.mailer.err = errors.New("smtp down")

	res, err := e.accounts.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.False(t, res.Dispatched)
	assert.Error(t, res.DispatchErr)

	_, err = e.store.GetUserByEmail(ctx, "ada.obi@example.com")
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res, err := e.accounts.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = e.accounts.Login(ctx, "ada.obi@example.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	_, _, err = e.otp.VerifyEmail(ctx, "ada.obi@example.com", "111111")
	require.NoError(t, err)

	_, err = e.accounts.Login(ctx, "ada.obi@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.accounts.Login(ctx, "ghost@example.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := e.accounts.Login(ctx, " ADA.OBI@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	claims, err := e.tokens.Parse(login.Tokens.Access, utils.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.String(), claims.UserID)
	assert.False(t, claims.IsStaff)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := e.createUser(t, "ada@example.com", true)
	user.IsActive = false
	require.NoError(t, e.store.UpdateUser(ctx, user))

	_, err := e.accounts.Login(ctx, "ada@example.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginRequiresFields(t *testing.T) {
	e := newEnv(t)
	_, err := e.accounts.Login(context.Background(), "not-an-email", "")
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := e.createUser(t, "ada@example.com", true)
	pair, err := e.tokens.IssuePair(user.ID, false)
	require.NoError(t, err)

	e.clock.advance(2 * time.Hour)
	refreshed, err := e.accounts.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	_, err = e.tokens.Parse(refreshed.Access, utils.TokenAccess)
	assert.NoError(t, err)

	_, err = e.accounts.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.createUser(t, "ada@example.com", true)

	_, err := e.otp.Request(ctx, "ada@example.com", PurposePasswordReset)
	require.NoError(t, err)
	grant, err := e.otp.VerifyPasswordReset(ctx, "ada@example.com", "111111")
	require.NoError(t, err)

	err = e.accounts.ResetPassword(ctx, grant.Token, "weak")
	assert.Contains(t, fieldErrors(t, err), "password")

	require.NoError(t, e.accounts.ResetPassword(ctx, grant.Token, "N3w!Password"))

	_, err = e.accounts.Login(ctx, "ada@example.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.accounts.Login(ctx, "ada@example.com", "N3w!Password")
	assert.NoError(t, err)

	err = e.accounts.ResetPassword(ctx, grant.Token, "An0ther!Password")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetPasswordRejectsOtherTokens(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := e.createUser(t, "ada@example.com", true)
	pair, err := e.tokens.IssuePair(user.ID, false)
	require.NoError(t, err)

	assert.ErrorIs(t, e.accounts.ResetPassword(ctx, pair.Access, "N3w!Password"), ErrInvalidToken)
	assert.ErrorIs(t, e.accounts.ResetPassword(ctx, "garbage", "N3w!Password"), ErrInvalidToken)
	assert.Contains(t, fieldErrors(t, e.accounts.ResetPassword(ctx, "", "N3w!Password")), "token")

	token, _, err := e.tokens.IssueReset(user.ID)
	require.NoError(t, err)
	e.clock.advance(16 * time.Minute)
	assert.ErrorIs(t, e.accounts.ResetPassword(ctx, token, "N3w!Password"), ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := e.createUser(t, "ada@example.com", true)
	actor := Actor{UserID: user.ID}

	assert.ErrorIs(t, e.accounts.ChangePassword(ctx, Anonymous, "Str0ng!Pass", "N3w!Password"), ErrAuthRequired)

	err := e.accounts.ChangePassword(ctx, actor, "wrong", "N3w!Password")
	assert.Equal(t, []string{"Old password is incorrect."}, fieldErrors(t, err)["old_password"])

	require.NoError(t, e.accounts.ChangePassword(ctx, actor, "Str0ng!Pass", "N3w!Password"))
	_, err = e.accounts.Login(ctx, "ada@example.com", "N3w!Password")
	assert.NoError(t, err)
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	user := e.createUser(t, "ada@example.com", true)

	_, err := e.accounts.Me(ctx, Anonymous)
	assert.ErrorIs(t, err, ErrAuthRequired)

	me, err := e.accounts.Me(ctx, Actor{UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)
}

func TestCreateStaffAndActorFromToken(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	admin, err := e.accounts.CreateStaff(ctx, "Admin@Couture.test", "grace", "hopper", "Adm1n!Pass")
	require.NoError(t, err)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.IsEmailVerified)

	_, err = e.accounts.CreateStaff(ctx, "admin@couture.test", "x", "y", "Adm1n!Pass")
	assert.Contains(t, fieldErrors(t, err), "email")

	login, err := e.accounts.Login(ctx, "admin@couture.test", "Adm1n!Pass")
	require.NoError(t, err)
	actor, err := ActorFromAccessToken(e.tokens, login.Tokens.Access)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, actor.UserID)
	assert.True(t, actor.IsStaff)

	_, err = ActorFromAccessToken(e.tokens, login.Tokens.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
