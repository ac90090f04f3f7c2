// Package validator wraps go-playground/validator behind a small struct
// so handlers take an injected dependency instead of a package global.
package validator

import "github.com/go-playground/validator/v10"

// Validator validates structs and single values against `validate` tags.
type Validator struct {
	v *validator.Validate
}

// New returns a ready-to-use Validator.
func New() *Validator {
	return &Validator{
		v: validator.New(),
	}
}

// Struct validates s against its field tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates one value against a tag expression.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation adds a custom validation under the given tag.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}
