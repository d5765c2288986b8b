package foundation

import (
	"fmt"
	"strings"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/util/sets"
)

// Validator checks one value.
type Validator[T any] func(T) ValidationResult

// ValidationResult collects field errors. The zero value is invalid with no
// errors; use Valid for success.
type ValidationResult struct {
	Valid  bool
	Errors []FieldError
}

// FieldError is one failed check on a config field, e.g. "materials[0].url".
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (fe FieldError) Error() string {
	if fe.Field == "" {
		return fe.Message
	}
	return fmt.Sprintf("field '%s': %s", fe.Field, fe.Message)
}

func Valid() ValidationResult { return ValidationResult{Valid: true} }

func Invalid(errs ...FieldError) ValidationResult {
	return ValidationResult{Errors: errs}
}

func NewValidationError(field, code, message string) FieldError {
	return FieldError{Field: field, Code: code, Message: message}
}

// Combine returns a result holding the errors of both.
func (vr ValidationResult) Combine(other ValidationResult) ValidationResult {
	if vr.Valid && other.Valid {
		return Valid()
	}
	return Invalid(append(append([]FieldError(nil), vr.Errors...), other.Errors...)...)
}

// ToError returns nil when valid, otherwise a validation ClassifiedError
// listing every field error.
func (vr ValidationResult) ToError() error {
	if vr.Valid {
		return nil
	}
	messages := make([]string, len(vr.Errors))
	for i, fe := range vr.Errors {
		messages[i] = fe.Error()
	}
	return errors.ValidationError(strings.Join(messages, "; ")).Build()
}

// ValidatorChain runs every validator and combines the results.
type ValidatorChain[T any] struct {
	validators []Validator[T]
}

func NewValidatorChain[T any](validators ...Validator[T]) *ValidatorChain[T] {
	return &ValidatorChain[T]{validators: validators}
}

func (vc *ValidatorChain[T]) Add(v Validator[T]) *ValidatorChain[T] {
	vc.validators = append(vc.validators, v)
	return vc
}

func (vc *ValidatorChain[T]) Validate(value T) ValidationResult {
	result := Valid()
	for _, v := range vc.validators {
		result = result.Combine(v(value))
	}
	return result
}

// OneOf accepts only the listed values.
func OneOf[T comparable](field string, allowed []T) Validator[T] {
	allowedSet := sets.New(allowed...)
	return func(value T) ValidationResult {
		if allowedSet.Has(value) {
			return Valid()
		}
		return Invalid(NewValidationError(field, "one_of", fmt.Sprintf("field must be one of: %v", allowed)))
	}
}
