package models

import (
	"time"
)

// User represents a registered customer or a staff member.
type User struct {
	BaseModel
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	PasswordHash      string     `json:"-"`
	IsActive          bool       `gorm:"default:true" json:"is_active"`
	IsStaff           bool       `json:"is_staff"`
	IsEmailVerified   bool       `json:"is_email_verified"`
	PasswordChangedAt *time.Time `json:"-"`

	// One-time code state. The three fields are written and cleared together.
	EmailOTP          string     `gorm:"column:email_otp" json:"-"`
	EmailOTPCreatedAt *time.Time `gorm:"column:email_otp_created_at" json:"-"`
	EmailOTPExpiresAt *time.Time `gorm:"column:email_otp_expires_at" json:"-"`
}

// HasPendingOTP reports whether a code is currently stored for the user.
func (u *User) HasPendingOTP() bool {
	return u.EmailOTP != "" && u.EmailOTPCreatedAt != nil && u.EmailOTPExpiresAt != nil
}

// SetOTP stores a code with its issuance and expiry times.
func (u *User) SetOTP(code string, issuedAt time.Time, ttl time.Duration) {
	expires := issuedAt.Add(ttl)
	u.EmailOTP = code
	u.EmailOTPCreatedAt = &issuedAt
	u.EmailOTPExpiresAt = &expires
}

// ClearOTP removes the stored code and both timestamps.
func (u *User) ClearOTP() {
	u.EmailOTP = ""
	u.EmailOTPCreatedAt = nil
	u.EmailOTPExpiresAt = nil
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
