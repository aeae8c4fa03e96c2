package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"medicare-server/internal/apperror"
)

// ValidationSources turns validator errors into per-field error sources.
func ValidationSources(err error) []apperror.Source {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []apperror.Source{{Path: "", Message: err.Error()}}
	}
	sources := make([]apperror.Source, 0, len(errs))
	for _, e := range errs {
		sources = append(sources, apperror.Source{
			Path:    lowerFirst(e.Field()),
			Message: fieldMessage(e),
		})
	}
	return sources
}

func fieldMessage(e validator.FieldError) string {
	field := lowerFirst(e.Field())
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, e.Param())
	case "uuid", "uuid4":
		return field + " must be a valid id"
	}
	return fmt.Sprintf("%s failed on %s", field, e.Tag())
}

// BindJSON binds and validates a JSON request body.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return bindError(err)
	}
	return nil
}

// BindQuery binds and validates query parameters.
func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		return bindError(err)
	}
	return nil
}

// BindMultipartData decodes the JSON carried in the "data" form field of a
// multipart request, then validates it.
func BindMultipartData(c *gin.Context, obj interface{}) error {
	raw := c.PostForm("data")
	if raw == "" {
		return BindJSON(c, obj)
	}
	if err := json.Unmarshal([]byte(raw), obj); err != nil {
		return apperror.Wrap(400, "Invalid request payload", err)
	}
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return bindError(err)
	}
	return nil
}

func bindError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return apperror.Validation(ValidationSources(err))
	}
	return apperror.Wrap(400, "Invalid request payload", err)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
