package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/couture/internal/middleware"
	"github.com/example/couture/internal/services"
)

// AuthHandler bundles dependencies for account and email verification endpoints.
type AuthHandler struct {
	accounts *services.AccountService
	otp      *services.OTPService
	otpTTL   time.Duration
	debug    bool
	log      *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts *services.AccountService, otp *services.OTPService, otpTTL time.Duration, debug bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, otp: otp, otpTTL: otpTTL, debug: debug, log: log}
}

type registerRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Register creates an unverified account and emails a verification code.
// The account is kept when the email cannot be sent.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.Register(c.UserContext(), services.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	body := fiber.Map{
		"user":                    userJSON(res.User),
		"message":                 "User registered successfully",
		"verification_email_sent": res.Dispatched,
	}
	if res.Dispatched {
		body["verification_message"] = "A verification code has been sent to your email."
		body["otp_expires_in_minutes"] = int(h.otpTTL.Minutes())
	} else {
		body["verification_error"] = "We could not send the verification email. Please request a new code."
		if h.debug && res.DispatchErr != nil {
			body["email_error_details"] = res.DispatchErr.Error()
		}
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// dispatchFailed reports a code that was stored but could not be emailed.
func (h *AuthHandler) dispatchFailed(c *fiber.Ctx, res services.IssueResult) error {
	h.log.Warn("otp email not sent", zap.String("path", c.Path()), zap.Error(res.DispatchErr))
	body := fiber.Map{
		"success": false,
		"message": "Failed to send verification email",
	}
	if h.debug && res.DispatchErr != nil {
		body["error"] = res.DispatchErr.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// SendOTP emails a code to any account; it starts the password reset flow.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req emailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("email", req.Email)); err != nil {
		return err
	}

	res, err := h.otp.Request(c.UserContext(), req.Email, services.PurposePasswordReset)
	if err != nil {
		return err
	}
	if !res.Dispatched {
		return h.dispatchFailed(c, res)
	}
	return c.JSON(fiber.Map{
		"success":                true,
		"message":                "Verification code sent to your email",
		"otp_expires_in_minutes": int(h.otpTTL.Minutes()),
	})
}

// ResendOTP reissues the verification code of an unverified account.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req emailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("email", req.Email)); err != nil {
		return err
	}

	res, err := h.otp.Resend(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	if res.AlreadyVerified {
		return c.JSON(fiber.Map{"success": true, "message": "Email is already verified"})
	}
	if !res.Dispatched {
		return h.dispatchFailed(c, res.IssueResult)
	}
	return c.JSON(fiber.Map{
		"success":                true,
		"message":                "A new verification code has been sent to your email",
		"otp_expires_in_minutes": int(h.otpTTL.Minutes()),
	})
}

// VerifyEmail activates an account with the emailed code.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req otpRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("email", req.Email), field("otp", req.OTP)); err != nil {
		return err
	}

	user, already, err := h.otp.VerifyEmail(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	message := "Email verified successfully"
	if already {
		message = "Email is already verified"
	}
	return c.JSON(fiber.Map{
		"message":           message,
		"user":              userJSON(user),
		"is_email_verified": true,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a verified user and returns a token pair.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"access":  res.Tokens.Access,
		"refresh": res.Tokens.Refresh,
		"user":    userJSON(res.User),
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("refresh", req.Refresh)); err != nil {
		return err
	}

	pair, err := h.accounts.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Token refreshed successfully",
		"access":  pair.Access,
		"refresh": pair.Refresh,
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword replaces the password of the signed-in user.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	err := h.accounts.ChangePassword(c.UserContext(), middleware.CurrentActor(c), req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.accounts.Me(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.JSON(userJSON(user))
}
