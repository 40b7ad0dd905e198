package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var fieldLabels = map[string]string{
	"Email":        "email",
	"Password":     "password",
	"Name":         "first name",
	"Surname":      "last name",
	"Confirm":      "password confirmation",
	"Date":         "date",
	"Time":         "time",
	"LicensePlate": "licence plate",
	"Location":     "location",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label, ok := fieldLabels[field.Name]; ok {
			return label
		}
		return strings.ToLower(field.Name)
	})
	return v
}

// check runs struct validation and folds the first failure into one message.
func check(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrValidation, fe.Field())
	case "datetime":
		return fmt.Errorf("%w: %s must look like %s", ErrValidation, fe.Field(), layoutHint(fe.Param()))
	case "eqfield":
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	default:
		return fmt.Errorf("%w: %s is invalid", ErrValidation, fe.Field())
	}
}

func layoutHint(layout string) string {
	switch layout {
	case "2006-01-02":
		return "YYYY-MM-DD"
	case "15:04":
		return "HH:MM"
	}
	return layout
}
