package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs validator tags on a request body and folds the
// violations into one readable error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errors []string
	for _, err := range err.(validator.ValidationErrors) {
		field := strings.ToLower(err.Field())
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			errors = append(errors, field+" is required")
		case "min":
			errors = append(errors, field+" must have at least "+param+" entries")
		case "max":
			errors = append(errors, field+" must have at most "+param+" entries")
		case "email":
			errors = append(errors, field+" must be a valid email")
		case "url":
			errors = append(errors, field+" must be a valid URL")
		case "contains":
			errors = append(errors, field+" must contain "+param)
		default:
			errors = append(errors, field+" is invalid")
		}
	}

	return fmt.Errorf("%s", strings.Join(errors, ", "))
}
