package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

var utoridPattern = regexp.MustCompile(`^[a-zA-Z0-9]{8}$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Institutional id: exactly 8 alphanumeric characters
	validate.RegisterValidation("utorid", func(fl validator.FieldLevel) bool {
		return utoridPattern.MatchString(fl.Field().String())
	})

	// Role validation
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		validRoles := []string{"regular", "cashier", "manager", "superuser"}
		for _, r := range validRoles {
			if role == r {
				return true
			}
		}
		return false
	})

	// Transaction type validation (creation endpoint accepts purchase/adjustment)
	validate.RegisterValidation("tx_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		validTypes := []string{"purchase", "adjustment"}
		for _, v := range validTypes {
			if t == v {
				return true
			}
		}
		return false
	})

	// Promotion type validation
	validate.RegisterValidation("promotion_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		return t == "automatic" || t == "one_time"
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "utorid":
			errors[field] = "Must be exactly 8 alphanumeric characters"
		case "role":
			errors[field] = "Invalid role. Must be: regular, cashier, manager, or superuser"
		case "tx_type":
			errors[field] = "Invalid transaction type. Must be: purchase or adjustment"
		case "promotion_type":
			errors[field] = "Invalid promotion type. Must be: automatic or one_time"
		case "endswith":
			errors[field] = "Must end with " + err.Param()
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
