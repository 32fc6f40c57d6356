package service

import (
	"errors"
	"fmt"

	"careshare-service/internal/apperr"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var fieldLabels = map[string]string{
	"ProductID":       "Product ID",
	"FullName":        "Full name",
	"Email":           "Email",
	"Phone":           "Phone number",
	"ShippingAddress": "Shipping address",
	"PaymentMethod":   "Payment method",
	"Password":        "Password",
	"FirstName":       "First name",
	"LastName":        "Last name",
}

// validate runs the binding tags of a request struct through gin's validator
func validate(obj interface{}) error {
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return ValidationError(err)
	}
	return nil
}

// ValidationError turns validator failures into a Validation error carrying
// the message of the first failed field. Other errors are returned unchanged.
func ValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return apperr.Validation("%s", fieldMessage(fieldErrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " should be valid"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s digits", label, fe.Param())
	case "numeric":
		return label + " must contain only digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	default:
		return label + " is invalid"
	}
}
