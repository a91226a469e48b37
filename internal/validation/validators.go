package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/go-playground/validator/v10"
)

// MaxTagNameLength bounds a tag name after normalization
const MaxTagNameLength = 100

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails on a programming error.
	if err := Validate.RegisterValidation("user_status", validateUserStatus); err != nil {
		panic(fmt.Sprintf("failed to register user_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("tag_name", validateTagName); err != nil {
		panic(fmt.Sprintf("failed to register tag_name validator: %v", err))
	}
	if err := Validate.RegisterValidation("http_url", validateHTTPURL); err != nil {
		panic(fmt.Sprintf("failed to register http_url validator: %v", err))
	}
}

func validateUserStatus(fl validator.FieldLevel) bool {
	return models.UserStatus(fl.Field().String()).Valid()
}

func validateTagName(fl validator.FieldLevel) bool {
	return ValidateTagName(fl.Field().String()) == nil
}

func validateHTTPURL(fl validator.FieldLevel) bool {
	return ValidateHTTPURL(fl.Field().String()) == nil
}

// SanitizeText trims whitespace and removes control characters except newline and tab
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

// ValidateUserStatus validates a UserStatus string value
func ValidateUserStatus(value string) error {
	if !models.UserStatus(value).Valid() {
		return fmt.Errorf("invalid status: %s (must be ACTIVE, INACTIVE, PENDING or BLOCKED)", value)
	}
	return nil
}

// ValidateTagName checks a tag name as it will be stored
func ValidateTagName(value string) error {
	name := models.NormalizeTagName(value)
	switch {
	case name == "":
		return fmt.Errorf("tag name must not be empty")
	case utf8.RuneCountInString(name) > MaxTagNameLength:
		return fmt.Errorf("tag name must be at most %d characters", MaxTagNameLength)
	case strings.ContainsFunc(name, unicode.IsControl):
		return fmt.Errorf("tag name must not contain control characters")
	}
	return nil
}

// ValidateHTTPURL accepts absolute http and https URLs with a host
func ValidateHTTPURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url must include a host")
	}
	return nil
}
