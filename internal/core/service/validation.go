package service

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/amy/portal-client/internal/core/domain"
)

const (
	codeMinLen = 6
	codeMaxLen = 12
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the portal rules registered:
// nickname, sentences=<n> and https_url. Field names in errors are the JSON
// names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
			return nicknamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("sentences", func(fl validator.FieldLevel) bool {
			min, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			text := fl.Field().String()
			return strings.Count(text, ".")+strings.Count(text, "!")+strings.Count(text, "?") >= min
		})
		_ = v.RegisterValidation("https_url", func(fl validator.FieldLevel) bool {
			u, err := url.Parse(fl.Field().String())
			return err == nil && u.Scheme == "https" && u.Host != ""
		})
		validate = v
	})
	return validate
}

// ValidateNickname trims s and checks it against the nickname rule.
func ValidateNickname(s string) (string, error) {
	s = strings.TrimSpace(s)
	if err := Validator().Var(s, "required,nickname"); err != nil {
		return "", toValidationError("nickname", err)
	}
	return s, nil
}

// NormalizeCode trims and upper-cases a verification code.
func NormalizeCode(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n := len(s); n < codeMinLen || n > codeMaxLen {
		return "", &domain.ValidationError{
			Field:  "code",
			Reason: fmt.Sprintf("must be %d to %d characters", codeMinLen, codeMaxLen),
		}
	}
	return s, nil
}

// ValidatePathID checks an id before it becomes a path segment. field names
// the id in the returned ValidationError.
func ValidatePathID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return "", &domain.ValidationError{Field: field, Reason: "is required"}
	case strings.ContainsAny(id, "/?#"):
		return "", &domain.ValidationError{Field: field, Reason: "must be a single path segment"}
	}
	return id, nil
}

// ValidateApplication normalizes p and checks every field rule.
func ValidateApplication(p domain.ApplicationPayload) (domain.ApplicationPayload, error) {
	p.Normalize()
	if err := Validator().Struct(p); err != nil {
		return p, toValidationError("", err)
	}
	return p, nil
}

// toValidationError reports the first failing field as *domain.ValidationError.
func toValidationError(field string, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return &domain.ValidationError{Field: field, Reason: err.Error()}
	}
	fe := ve[0]
	if field == "" {
		field = fe.Field()
	}
	return &domain.ValidationError{Field: field, Reason: fieldReason(fe)}
}

func fieldReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "nickname":
		return "must be 3 to 16 letters, digits or underscores"
	case "sentences":
		return fmt.Sprintf("must contain at least %s sentences", fe.Param())
	case "https_url":
		return "must be an https URL"
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}
