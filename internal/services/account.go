package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/couture/internal/apperr"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/storage"
	"github.com/example/couture/internal/utils"
	"github.com/example/couture/internal/validation"
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// RegisterResult carries the new account and the outcome of the
// verification email.
type RegisterResult struct {
	User *models.User
	IssueResult
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Tokens utils.TokenPair
	User   *models.User
}

// AccountService handles registration, login and password management.
type AccountService struct {
	store  storage.Store
	otp    *OTPService
	tokens TokenIssuer
	now    Clock
	log    *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(store storage.Store, otp *OTPService, tokens TokenIssuer, log *zap.Logger) *AccountService {
	return &AccountService{store: store, otp: otp, tokens: tokens, now: time.Now, log: log}
}

// WithClock replaces the time source.
func (s *AccountService) WithClock(now Clock) *AccountService {
	s.now = clockOrNow(now)
	return s
}

func (s *AccountService) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	}
	return false, fmt.Errorf("check email: %w", err)
}

// Register creates an unverified account and emails a verification code. The
// account is kept even when the email cannot be sent.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return RegisterResult{}, err
	}

	err = validation.New().
		Field("email",
			validation.Required(email, "This field is required."),
			func() error {
				if taken {
					return errors.New("A user with this email already exists.")
				}
				return nil
			},
			func() error { return validation.Email(email) },
		).
		Field("first_name",
			validation.Required(in.FirstName, "First name cannot be empty."),
			func() error { return validation.Length(in.FirstName, 2, 150, "First name") },
		).
		Field("last_name",
			validation.Required(in.LastName, "Last name cannot be empty."),
			func() error { return validation.Length(in.LastName, 2, 150, "Last name") },
		).
		Field("password", func() error { return validation.Password(in.Password) }).
		Validate()
	if err != nil {
		return RegisterResult{}, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        email,
		FirstName:    validation.TitleName(in.FirstName),
		LastName:     validation.TitleName(in.LastName),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return RegisterResult{}, apperr.FieldError("email", "A user with this email already exists.")
		}
		return RegisterResult{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()))

	issued, err := s.otp.Issue(ctx, user, PurposeVerifyEmail)
	if err != nil {
		return RegisterResult{}, err
	}
	if !issued.Dispatched {
		s.log.Warn("registered without verification email", zap.String("user_id", user.ID.String()))
	}
	return RegisterResult{User: user, IssueResult: issued}, nil
}

// Login checks the credentials and returns a token pair. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	err := validation.New().
		Field("email", validation.Required(email, "This field is required."), func() error { return validation.Email(email) }).
		Field("password", validation.Required(password, "This field is required.")).
		Validate()
	if err != nil {
		return LoginResult{}, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		utils.CheckPassword("", password)
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return LoginResult{}, ErrAccountInactive
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		return LoginResult{}, ErrEmailNotVerified
	}

	pair, err := s.tokens.IssuePair(user.ID, user.IsStaff)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue tokens: %w", err)
	}
	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return LoginResult{Tokens: pair, User: user}, nil
}

// Refresh exchanges a refresh token for a new pair. The account must still be active.
func (s *AccountService) Refresh(ctx context.Context, refresh string) (utils.TokenPair, error) {
	claims, err := s.tokens.Parse(refresh, utils.TokenRefresh)
	if err != nil {
		return utils.TokenPair{}, ErrInvalidToken.Wrap(err)
	}
	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return utils.TokenPair{}, err
	}
	if !user.IsActive {
		return utils.TokenPair{}, ErrAccountInactive
	}
	pair, err := s.tokens.IssuePair(user.ID, user.IsStaff)
	if err != nil {
		return utils.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

func (s *AccountService) userFromClaims(ctx context.Context, claims *utils.Claims) (*models.User, error) {
	id, err := claims.UserUUID()
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// ResetPassword sets a new password using the token returned by
// OTPService.VerifyPasswordReset. A token issued before the last password
// change is rejected, so each token works once.
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	if strings.TrimSpace(token) == "" {
		return apperr.FieldError("token", "This field is required.")
	}
	claims, err := s.tokens.Parse(token, utils.TokenPasswordReset)
	if err != nil {
		return ErrInvalidToken.Wrap(err)
	}
	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return err
	}
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		!claims.IssuedAt.Time.After(user.PasswordChangedAt.Truncate(time.Second)) {
		return ErrInvalidToken
	}

	if err := validation.New().Field("password", func() error { return validation.Password(password) }).Validate(); err != nil {
		return err
	}
	if err := s.setPassword(ctx, user, password); err != nil {
		return err
	}
	s.log.Info("password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// ChangePassword replaces the password of the signed-in user after checking the old one.
func (s *AccountService) ChangePassword(ctx context.Context, actor Actor, oldPassword, newPassword string) error {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return err
	}

	err = validation.New().
		Field("old_password",
			validation.Required(oldPassword, "This field is required."),
			func() error {
				if !utils.CheckPassword(user.PasswordHash, oldPassword) {
					return errors.New("Old password is incorrect.")
				}
				return nil
			},
		).
		Field("new_password", func() error { return validation.Password(newPassword) }).
		Validate()
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *AccountService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	changed := s.now()
	user.PasswordHash = hash
	user.PasswordChangedAt = &changed
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	return nil
}

// Me returns the account of the signed-in actor.
func (s *AccountService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	if !actor.Authenticated() {
		return nil, ErrAuthRequired
	}
	user, err := s.store.GetUserByID(ctx, actor.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// CreateStaff provisions a verified staff account. Used by the admin CLI.
func (s *AccountService) CreateStaff(ctx context.Context, email, firstName, lastName, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	err := validation.New().
		Field("email", func() error { return validation.Email(email) }).
		Field("password", func() error { return validation.Password(password) }).
		Validate()
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:           email,
		FirstName:       validation.TitleName(firstName),
		LastName:        validation.TitleName(lastName),
		PasswordHash:    hash,
		IsActive:        true,
		IsStaff:         true,
		IsEmailVerified: true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.FieldError("email", "A user with this email already exists.")
		}
		return nil, fmt.Errorf("create staff: %w", err)
	}
	s.log.Info("staff account created", zap.String("user_id", user.ID.String()))
	return user, nil
}

// ActorFromAccessToken resolves the bearer of an access token. Staff rights
// come from the token claims.
func ActorFromAccessToken(tokens TokenIssuer, token string) (Actor, error) {
	claims, err := tokens.Parse(token, utils.TokenAccess)
	if err != nil {
		return Anonymous, ErrInvalidToken.Wrap(err)
	}
	id, err := claims.UserUUID()
	if err != nil || id == uuid.Nil {
		return Anonymous, ErrInvalidToken
	}
	return Actor{UserID: id, IsStaff: claims.IsStaff}, nil
}
