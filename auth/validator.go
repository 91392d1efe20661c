package auth

import (
	"unicode"

	"chatify/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Name     string `validate:"required,min=2,max=60"`
	Email    string `validate:"required,email"`
	Username string `validate:"required,alphanum,min=3,max=30"`
	Mobile   string `validate:"required,e164"`
	Password string `validate:"required,min=12,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.Validationf("%s", err)
	}
	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

// ValidateUsername checks the format only; uniqueness belongs to storage.
func ValidateUsername(username string) error {
	if err := validate.Var(username, "required,alphanum,min=3,max=30"); err != nil {
		return errors.Validationf("invalid username")
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
