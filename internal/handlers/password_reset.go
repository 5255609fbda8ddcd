package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/couture/internal/services"
)

// PasswordResetHandler manages forgot-password endpoints. The code itself is
// requested through AuthHandler.SendOTP.
type PasswordResetHandler struct {
	accounts *services.AccountService
	otp      *services.OTPService
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(accounts *services.AccountService, otp *services.OTPService) *PasswordResetHandler {
	return &PasswordResetHandler{accounts: accounts, otp: otp}
}

// VerifyOTP checks the emailed code and returns a short-lived reset token.
func (h *PasswordResetHandler) VerifyOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := required(field("email", req.Email), field("otp", req.OTP)); err != nil {
		return err
	}

	grant, err := h.otp.VerifyPasswordReset(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "OTP verified. You can now reset your password.",
		"reset_token": grant.Token,
		"expires_at":  grant.ExpiresAt,
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword sets a new password using a reset token.
func (h *PasswordResetHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.accounts.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password changed successfully"})
}
