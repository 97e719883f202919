package common

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var requestValidator = newRequestValidator()

// draftMessages overrides the generic message for post draft rules
var draftMessages = map[string]string{
	"CreatePostRequest.Title.required":         "Title and content are required",
	"CreatePostRequest.Content.required":       "Title and content are required",
	"CreatePostRequest.Title.max":              "Title must be at most %s characters",
	"CreatePostRequest.Content.max":            "Content must be at most %s characters",
	"CreatePostRequest.CoverImageURL.coverurl": "Cover image must be an http(s) URL",
	"CreatePostRequest.TagNames.max":           "At most %s tags are allowed",
}

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "coverurl", func(fl validator.FieldLevel) bool {
		return validCoverURL(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// ValidateRequest 요청 구조체의 validate 태그 검증.
// The first failing field becomes the AppError message.
func ValidateRequest(req any) *AppError {
	err := requestValidator.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return invalid(fieldMessage(fieldErrs[0]))
	}
	return invalid(MsgBadRequest)
}

func fieldMessage(fe validator.FieldError) string {
	if format, ok := draftMessages[fe.StructNamespace()+"."+fe.Tag()]; ok {
		if strings.Contains(format, "%s") {
			return fmt.Sprintf(format, fe.Param())
		}
		return format
	}
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// validCoverURL absolute http(s) URL or a server-relative upload path
func validCoverURL(raw string) bool {
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func invalid(msg string) *AppError {
	return &AppError{Category: CategoryError, Message: msg, Err: ErrInvalidInput}
}
