package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/bacaltosclinic/portal-api/internal/models"
)

// MinPasswordLength is the minimum accepted password length. The provider
// enforces its own policy as well; this check runs before any network call.
const MinPasswordLength = 6

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	// Stricter than the builtin "email" tag: the domain must contain a dot,
	// matching what the frontend enforces.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func init() {
	Validate = validator.New()

	// Register custom validators for the role enum and email format
	if err := Validate.RegisterValidation("user_role", validateUserRole); err != nil {
		panic(fmt.Sprintf("failed to register user_role validator: %v", err))
	}
	if err := Validate.RegisterValidation("portal_email", validatePortalEmail); err != nil {
		panic(fmt.Sprintf("failed to register portal_email validator: %v", err))
	}
}

// validateUserRole validates that a string is a valid Role enum value
func validateUserRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

// validatePortalEmail validates an email address against the portal's format rule
func validatePortalEmail(fl validator.FieldLevel) bool {
	return emailPattern.MatchString(fl.Field().String())
}

// ParseRole validates a role string and returns the typed Role
func ParseRole(s string) (models.Role, error) {
	if err := Validate.Var(s, "required,user_role"); err != nil {
		return "", fmt.Errorf("invalid role: %s (must be 'admin', 'doctor', 'receptionist', or 'patient')", s)
	}
	return models.Role(s), nil
}

// NormalizeEmail sanitizes and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(SanitizeText(email))
}

// ValidateEmail checks email presence and format
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if err := Validate.Var(email, "portal_email"); err != nil {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword checks password presence and minimum length
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if err := Validate.Var(password, fmt.Sprintf("min=%d", MinPasswordLength)); err != nil {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
