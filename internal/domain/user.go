package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// User is the persistent identity record. PasswordHash and the reset fields
// never appear in any serialized representation.
type User struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	Photo               string     `json:"photo,omitempty"`
	PasswordHash        string     `json:"-"`
	PasswordChangedAt   *time.Time `json:"-"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	Active              bool       `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// PasswordChangedAfter reports whether the password changed after the given
// instant. Token issue times carry second resolution, so the stored timestamp
// is truncated before comparing.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Before(u.PasswordChangedAt.Truncate(time.Second))
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Role            string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UpdateMeRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	// Password updates must go through /update-password; presence of either
	// field is rejected outright.
	Password        *string `json:"password,omitempty"`
	PasswordConfirm *string `json:"passwordConfirm,omitempty"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role"`
}

// Valid user roles.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

var validRoles = map[string]bool{
	RoleUser:      true,
	RoleGuide:     true,
	RoleLeadGuide: true,
	RoleAdmin:     true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

const MinPasswordLength = 8

func (r *SignupRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	if r.Role == "" {
		r.Role = RoleUser
	}
}

func (r *SignupRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if err := validateNewPassword(r.Password, r.PasswordConfirm); err != nil {
		return err
	}
	if !validRoles[r.Role] {
		return fmt.Errorf("%w: invalid role", ErrValidation)
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	return nil
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *ForgotPasswordRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	return nil
}

func (r *ResetPasswordRequest) Validate() error {
	return validateNewPassword(r.Password, r.PasswordConfirm)
}

func (r *UpdatePasswordRequest) Validate() error {
	if r.PasswordCurrent == "" {
		return fmt.Errorf("%w: current password is required", ErrValidation)
	}
	return validateNewPassword(r.Password, r.PasswordConfirm)
}

func (r *UpdateMeRequest) Validate() error {
	if r.Password != nil || r.PasswordConfirm != nil {
		return fmt.Errorf("%w: this route is not for password updates, use /update-password", ErrValidation)
	}
	if r.Email != nil && !isValidEmail(strings.ToLower(strings.TrimSpace(*r.Email))) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrWeakPassword, MinPasswordLength)
	}
	if password != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrPasswordMismatch)
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
