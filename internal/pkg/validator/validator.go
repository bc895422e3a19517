package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

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

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Owner type validation
	validate.RegisterValidation("owner_type", func(fl validator.FieldLevel) bool {
		ownerType := fl.Field().String()
		validTypes := []string{"merchant", "admin", "platform"}
		for _, t := range validTypes {
			if ownerType == t {
				return true
			}
		}
		return false
	})

	// Credit type validation
	validate.RegisterValidation("credit_type", func(fl validator.FieldLevel) bool {
		creditType := fl.Field().String()
		validTypes := []string{"coupon", "message_ui", "message_bi", "paid_ad"}
		for _, t := range validTypes {
			if creditType == t {
				return true
			}
		}
		return false
	})

	// Merchant tier validation
	validate.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		tier := fl.Field().String()
		validTiers := []string{"temporary", "annual"}
		for _, t := range validTiers {
			if tier == t {
				return true
			}
		}
		return false
	})

	// Ad slot validation
	validate.RegisterValidation("ad_slot", func(fl validator.FieldLevel) bool {
		slot := fl.Field().String()
		validSlots := []string{"home_top", "home_bottom", "search_banner", "category_side"}
		for _, s := range validSlots {
			if slot == s {
				return true
			}
		}
		return false
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
		case "e164":
			errors[field] = "Invalid phone number format"
		case "owner_type":
			errors[field] = "Invalid owner type. Must be: merchant, admin, or platform"
		case "credit_type":
			errors[field] = "Invalid credit type. Must be: coupon, message_ui, message_bi, or paid_ad"
		case "tier":
			errors[field] = "Invalid tier. Must be: temporary or annual"
		case "ad_slot":
			errors[field] = "Invalid ad slot"
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
