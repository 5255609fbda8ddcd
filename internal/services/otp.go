package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/couture/internal/apperr"
	"github.com/example/couture/internal/metrics"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/storage"
	"github.com/example/couture/internal/utils"
)

// OTPLength is the number of digits in a one-time code.
const OTPLength = 6

// CodeGenerator produces one-time codes.
type CodeGenerator func() (string, error)

// GenerateOTP returns six digits, each uniform over 0-9.
func GenerateOTP() (string, error) {
	limit := big.NewInt(int64(math.Pow10(OTPLength)))
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// TokenIssuer signs and validates the JWTs handed to clients.
type TokenIssuer interface {
	IssuePair(userID uuid.UUID, isStaff bool) (utils.TokenPair, error)
	IssueReset(userID uuid.UUID) (string, time.Time, error)
	Parse(token string, kind utils.TokenKind) (*utils.Claims, error)
}

// IssueResult reports the outcome of issuing a code. The code is stored even
// when the email could not be dispatched.
type IssueResult struct {
	ExpiresAt   time.Time
	Dispatched  bool
	DispatchErr error
}

// ResendResult is returned by Resend.
type ResendResult struct {
	IssueResult
	AlreadyVerified bool
}

// ResetGrant authorizes one password reset.
type ResetGrant struct {
	Token     string
	ExpiresAt time.Time
}

// OTPConfig holds the code lifetimes.
type OTPConfig struct {
	TTL      time.Duration
	Cooldown time.Duration
}

// OTPService manages email one-time codes for verification and password reset.
type OTPService struct {
	store     storage.Store
	mailer    Mailer
	templates *EmailTemplates
	tokens    TokenIssuer
	cfg       OTPConfig
	generate  CodeGenerator
	now       Clock
	log       *zap.Logger
}

// NewOTPService constructs an OTPService.
func NewOTPService(store storage.Store, mailer Mailer, templates *EmailTemplates, tokens TokenIssuer, cfg OTPConfig, log *zap.Logger) *OTPService {
	return &OTPService{
		store:     store,
		mailer:    mailer,
		templates: templates,
		tokens:    tokens,
		cfg:       cfg,
		generate:  GenerateOTP,
		now:       time.Now,
		log:       log,
	}
}

// WithClock replaces the time source.
func (s *OTPService) WithClock(now Clock) *OTPService {
	s.now = clockOrNow(now)
	return s
}

// WithGenerator replaces the code generator.
func (s *OTPService) WithGenerator(gen CodeGenerator) *OTPService {
	s.generate = gen
	return s
}

func (s *OTPService) lookup(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Issue stores a fresh code on user, replacing any previous one, and emails it.
func (s *OTPService) Issue(ctx context.Context, user *models.User, purpose OTPPurpose) (IssueResult, error) {
	code, err := s.generate()
	if err != nil {
		return IssueResult{}, fmt.Errorf("generate otp: %w", err)
	}

	issued := s.now()
	user.SetOTP(code, issued, s.cfg.TTL)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return IssueResult{}, fmt.Errorf("store otp: %w", err)
	}

	result := IssueResult{ExpiresAt: *user.EmailOTPExpiresAt}
	result.DispatchErr = s.dispatch(ctx, user, code, purpose)
	result.Dispatched = result.DispatchErr == nil
	metrics.RecordOTPIssued(string(purpose), result.Dispatched)

	if result.Dispatched {
		s.log.Info("otp email sent", zap.String("user_id", user.ID.String()), zap.String("purpose", string(purpose)))
	} else {
		s.log.Error("otp email failed",
			zap.String("user_id", user.ID.String()),
			zap.String("purpose", string(purpose)),
			zap.Error(result.DispatchErr),
		)
	}
	return result, nil
}

func (s *OTPService) dispatch(ctx context.Context, user *models.User, code string, purpose OTPPurpose) error {
	msg, err := s.templates.OTP(user, code, purpose, s.cfg.TTL)
	if err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}
	return s.mailer.Send(ctx, msg)
}

// cooldown fails with ErrOTPTooSoon while the last code is younger than the
// resend cooldown.
func (s *OTPService) cooldown(user *models.User) error {
	if user.EmailOTPCreatedAt == nil {
		return nil
	}
	next := user.EmailOTPCreatedAt.Add(s.cfg.Cooldown)
	now := s.now()
	if now.Before(next) {
		remaining := int(math.Ceil(next.Sub(now).Seconds()))
		return ErrOTPTooSoon.WithRetryAfter(remaining)
	}
	return nil
}

// Request issues a code for any account, verified or not. It backs both the
// password-reset flow and manual verification requests.
func (s *OTPService) Request(ctx context.Context, email string, purpose OTPPurpose) (IssueResult, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return IssueResult{}, err
	}
	if err := s.cooldown(user); err != nil {
		return IssueResult{}, err
	}
	return s.Issue(ctx, user, purpose)
}

// Resend reissues the verification code for an unverified account.
func (s *OTPService) Resend(ctx context.Context, email string) (ResendResult, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return ResendResult{}, err
	}
	if user.IsEmailVerified {
		return ResendResult{AlreadyVerified: true}, nil
	}
	if err := s.cooldown(user); err != nil {
		return ResendResult{}, err
	}
	res, err := s.Issue(ctx, user, PurposeVerifyEmail)
	if err != nil {
		return ResendResult{}, err
	}
	return ResendResult{IssueResult: res}, nil
}

// check matches code against the stored one.
func (s *OTPService) check(user *models.User, code string) error {
	if !user.HasPendingOTP() {
		return ErrNoOTPPending
	}
	if s.now().After(*user.EmailOTPExpiresAt) {
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(user.EmailOTP), []byte(strings.TrimSpace(code))) != 1 {
		return ErrOTPMismatch
	}
	return nil
}

func verificationOutcome(err error) string {
	if err == nil {
		return "success"
	}
	if appErr := apperr.From(err); appErr.Kind != apperr.KindInternal {
		return appErr.Code
	}
	return "error"
}

// VerifyEmail marks the account verified when code matches. Verifying an
// already verified account succeeds without changing anything; the boolean
// result reports that case.
func (s *OTPService) VerifyEmail(ctx context.Context, email, code string) (*models.User, bool, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		metrics.RecordOTPVerification(string(PurposeVerifyEmail), verificationOutcome(err))
		return nil, false, err
	}
	if user.IsEmailVerified {
		return user, true, nil
	}
	if err := s.check(user, code); err != nil {
		metrics.RecordOTPVerification(string(PurposeVerifyEmail), verificationOutcome(err))
		return nil, false, err
	}

	user.ClearOTP()
	user.IsEmailVerified = true
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("mark verified: %w", err)
	}
	metrics.RecordOTPVerification(string(PurposeVerifyEmail), "success")
	s.log.Info("email verified", zap.String("user_id", user.ID.String()))
	return user, false, nil
}

// VerifyPasswordReset consumes a matching code and returns a short-lived
// token that authorizes one password reset.
func (s *OTPService) VerifyPasswordReset(ctx context.Context, email, code string) (ResetGrant, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		metrics.RecordOTPVerification(string(PurposePasswordReset), verificationOutcome(err))
		return ResetGrant{}, err
	}
	if err := s.check(user, code); err != nil {
		metrics.RecordOTPVerification(string(PurposePasswordReset), verificationOutcome(err))
		return ResetGrant{}, err
	}

	user.ClearOTP()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return ResetGrant{}, fmt.Errorf("clear otp: %w", err)
	}

	token, expires, err := s.tokens.IssueReset(user.ID)
	if err != nil {
		return ResetGrant{}, fmt.Errorf("issue reset token: %w", err)
	}
	metrics.RecordOTPVerification(string(PurposePasswordReset), "success")
	return ResetGrant{Token: token, ExpiresAt: expires}, nil
}
