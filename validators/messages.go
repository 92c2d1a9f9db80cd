package validators

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Message turns a binding error into the first human readable problem,
// in the wording the web client displays as is.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is a required field", field)
	case "email":
		return "Invalid email"
	case "alphanum":
		return fmt.Sprintf("%s must contain only alphanumeric characters", field)
	case "min":
		return fmt.Sprintf("Minimum character is %s", fe.Param())
	case "max":
		return fmt.Sprintf("Maximum character is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
