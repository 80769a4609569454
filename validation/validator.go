package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"civicsync-api/apperrors"
	"civicsync-api/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Validator returns the shared validator with the project's custom tags
// registered. Field names in errors follow the json tags.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return ""
			case "":
				return fld.Name
			}
			return name
		})
		mustRegister(v, "issue_category", func(fl validator.FieldLevel) bool {
			return models.IsValidCategory(fl.Field().String())
		})
		mustRegister(v, "role", func(fl validator.FieldLevel) bool {
			return models.IsValidRole(fl.Field().String())
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Struct runs a full validation pass over s and returns every failing field.
// A nil result means s is valid.
func Struct(s any) []apperrors.FieldError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperrors.FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

// Coordinates checks a [longitude, latitude] pair.
func Coordinates(field string, coords []float64) []apperrors.FieldError {
	if len(coords) != 2 {
		return []apperrors.FieldError{{Field: field, Message: "Coordinates must be an array of [longitude, latitude]"}}
	}
	return Point(field, coords[0], coords[1])
}

// Point checks longitude and latitude bounds. NaN and infinities are
// rejected.
func Point(field string, lng, lat float64) []apperrors.FieldError {
	var out []apperrors.FieldError
	if !finite(lng) || lng < -180 || lng > 180 {
		out = append(out, apperrors.FieldError{Field: field, Message: "Longitude must be between -180 and 180"})
	}
	if !finite(lat) || lat < -90 || lat > 90 {
		out = append(out, apperrors.FieldError{Field: field, Message: "Latitude must be between -90 and 90"})
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// fieldPath drops the root struct name from the namespace,
// e.g. "CreateIssueInput.location.address" -> "location.address".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", name)
	case "min":
		if isText {
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		if isText {
			return fmt.Sprintf("%s cannot be more than %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "len":
		if isText {
			return fmt.Sprintf("%s must be exactly %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must have exactly %s elements", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("Invalid %s, must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "issue_category":
		return "Invalid category"
	case "role":
		return "Invalid role"
	case "email":
		return "Please provide a valid email"
	case "mongodb":
		return fmt.Sprintf("Invalid %s ID", name)
	case "numeric":
		return fmt.Sprintf("%s must be numeric", name)
	}
	return fmt.Sprintf("%s is invalid", name)
}
