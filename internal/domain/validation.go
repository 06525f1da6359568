package domain

import (
	"github.com/go-playground/validator/v10"
)

// EnumTag is the struct tag that restricts a field to its type's members.
const EnumTag = "enum"

type enumValue interface {
	Valid() bool
}

// RegisterEnumValidation adds the enum tag to v. Fields tagged enum must have
// a type with a Valid() bool method.
func RegisterEnumValidation(v *validator.Validate) error {
	return v.RegisterValidation(EnumTag, func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(enumValue)
		return ok && value.Valid()
	})
}

// NewRequestValidator returns a validator that reads the same binding tags
// the HTTP layer uses.
func NewRequestValidator() (*validator.Validate, error) {
	v := validator.New()
	v.SetTagName("binding")
	if err := RegisterEnumValidation(v); err != nil {
		return nil, err
	}
	return v, nil
}
