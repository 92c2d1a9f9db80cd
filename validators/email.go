// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// IsEmail reports whether s has the shape of an email address. It never
// touches the database, sign in uses it to pick the lookup column.
func IsEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}
