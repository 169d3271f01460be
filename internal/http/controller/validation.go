package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/model"
)

// RegisterValidators installs the domain enum tags on gin's validator and makes field
// errors use json names.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	validators := map[string]validator.Func{
		"specialization": func(fl validator.FieldLevel) bool {
			return model.Specialization(fl.Field().String()).Valid()
		},
		"urgency": func(fl validator.FieldLevel) bool {
			return model.UrgencyLevel(strings.ToLower(fl.Field().String())).Valid()
		},
		"fuel_type": func(fl validator.FieldLevel) bool {
			return model.FuelType(fl.Field().String()).Valid()
		},
		"transmission": func(fl validator.FieldLevel) bool {
			return model.Transmission(fl.Field().String()).Valid()
		},
		"role": func(fl validator.FieldLevel) bool {
			return model.Role(fl.Field().String()).Valid()
		},
		"status": func(fl validator.FieldLevel) bool {
			return model.ServiceRequestStatus(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// bindingError converts a binding failure into a ValidationError keyed by field name.
func bindingError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fieldName(fe)] = fieldMessage(fe)
		}
		return &apperror.ValidationError{Message: "the given data was invalid", Fields: fields}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperror.NewFieldValidation(typeErr.Field, "must be a "+typeErr.Type.String())
	}
	return apperror.NewValidation("malformed request: %s", err.Error())
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "uuid":
		return "must be a valid id"
	case "latitude", "longitude":
		return "is out of range"
	default:
		return "is invalid"
	}
}
