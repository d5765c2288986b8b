package foundation

import (
	"strings"
	"testing"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
)

func TestValidation(t *testing.T) {
	t.Run("Combine", func(t *testing.T) {
		result := Valid().Combine(Valid())
		if !result.Valid || result.ToError() != nil {
			t.Fatal("Expected combined valid results to be valid")
		}

		result = result.Combine(Invalid(NewValidationError("workspace", "required", "workspace is required")))
		result = result.Combine(Invalid(NewValidationError("materials[0].url", "required", "url is required")))
		if result.Valid {
			t.Fatal("Expected invalid result")
		}
		if len(result.Errors) != 2 {
			t.Fatalf("Expected 2 errors, got %d", len(result.Errors))
		}
	})

	t.Run("ToError", func(t *testing.T) {
		err := Invalid(
			NewValidationError("workspace", "required", "workspace is required"),
			NewValidationError("", "invalid", "bad input"),
		).ToError()
		if err == nil {
			t.Fatal("Expected error")
		}
		if !errors.HasCategory(err, errors.CategoryValidation) {
			t.Errorf("Expected validation category, got %s", errors.GetCategory(err))
		}
		msg := err.Error()
		if !strings.Contains(msg, "field 'workspace': workspace is required") || !strings.Contains(msg, "bad input") {
			t.Errorf("Unexpected message: %s", msg)
		}
	})

	t.Run("Chain", func(t *testing.T) {
		notEmpty := func(s string) ValidationResult {
			if s == "" {
				return Invalid(NewValidationError("name", "required", "name is required"))
			}
			return Valid()
		}
		noSpaces := func(s string) ValidationResult {
			if strings.Contains(s, " ") {
				return Invalid(NewValidationError("name", "invalid", "name contains spaces"))
			}
			return Valid()
		}
		chain := NewValidatorChain(notEmpty).Add(noSpaces)

		if !chain.Validate("app").Valid {
			t.Error("Expected 'app' to be valid")
		}
		if chain.Validate("").Valid {
			t.Error("Expected empty name to be invalid")
		}
		if res := chain.Validate("my app"); res.Valid || res.Errors[0].Code != "invalid" {
			t.Errorf("Expected spaces to be rejected, got %+v", res)
		}
	})

	t.Run("OneOf", func(t *testing.T) {
		validator := OneOf("backend", []string{"cmd", "gogit"})

		if !validator("gogit").Valid {
			t.Error("Expected 'gogit' to be valid")
		}
		result := validator("jgit")
		if result.Valid {
			t.Error("Expected 'jgit' to be invalid")
		}
		if result.Errors[0].Code != "one_of" {
			t.Errorf("Expected one_of code, got %s", result.Errors[0].Code)
		}
	})
}
