package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by their query or json name so that errors
// match what the client sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ReadAndValidateRequest binds query parameters into req, fills defaults
// for anything left empty and validates the result. It returns nil on
// success or the validation errors to render.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var fes validator.ValidationErrors
	if errors.As(err, &fes) {
		out := make([]ValidationError, 0, len(fes))
		for _, fe := range fes {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_BIND", Message: msg}}
}

func fieldMessage(fe validator.FieldError) string {
	f, p := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, strings.Join(strings.Fields(p), ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", f, p)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", f, p)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, p)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", f, p)
	}
	return fmt.Sprintf("%s failed %s validation", f, fe.Tag())
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "oneof":
		return map[string]interface{}{"options": strings.Fields(fe.Param())}
	case "min", "gte", "gt":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte", "lt":
		return map[string]interface{}{"max": fe.Param()}
	}
	return nil
}
