package services

import "github.com/example/couture/internal/apperr"

var (
	ErrCartNotFound     = apperr.NotFound("cart_not_found", "Cart not found")
	ErrItemNotFound     = apperr.NotFound("item_not_found", "Item not found in cart")
	ErrProductNotFound  = apperr.NotFound("product_not_found", "Product not found")
	ErrCategoryNotFound = apperr.NotFound("category_not_found", "Category not found")
	ErrOrderNotFound    = apperr.NotFound("order_not_found", "Custom order not found")
	ErrUserNotFound     = apperr.NotFound("user_not_found", "User with this email does not exist")

	ErrNoOTPPending = apperr.New(apperr.KindValidation, "otp_not_found", "No OTP found for this email. Please request a new verification code.")
	ErrOTPExpired   = apperr.New(apperr.KindValidation, "otp_expired", "OTP has expired. Please request a new verification code.")
	ErrOTPMismatch  = apperr.New(apperr.KindValidation, "otp_mismatch", "Invalid OTP. Please check your email and try again.")
	ErrOTPTooSoon   = apperr.New(apperr.KindRateLimited, "otp_too_soon", "Please wait before requesting a new OTP")

	ErrInvalidTransition = apperr.New(apperr.KindInvalidTransition, "invalid_transition", "Status transition is not allowed")
	ErrStaffOnly         = apperr.Forbidden("staff_only", "Only staff members may perform this action")
	ErrOrderLocked       = apperr.Forbidden("order_locked", "Completed or cancelled orders can no longer be changed")
	ErrNotOrderOwner     = apperr.Forbidden("not_order_owner", "You do not have access to this order")

	ErrInvalidCredentials = apperr.Unauthorized("invalid_credentials", "Invalid email or password")
	ErrAccountInactive    = apperr.Unauthorized("account_inactive", "Your account has been deactivated. Please contact support.")
	ErrEmailNotVerified   = apperr.Forbidden("email_not_verified", "Please verify your email address before logging in")
	ErrInvalidToken       = apperr.Unauthorized("invalid_token", "Invalid or expired token")
	ErrAuthRequired       = apperr.Unauthorized("authentication_required", "Authentication credentials were not provided")
)
