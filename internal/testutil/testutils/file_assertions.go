package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WorkingCopyAssertions checks the on-disk state of a working copy.
type WorkingCopyAssertions struct {
	t       testing.TB
	baseDir string
}

// NewWorkingCopyAssertions creates assertions rooted at baseDir.
func NewWorkingCopyAssertions(t testing.TB, baseDir string) *WorkingCopyAssertions {
	return &WorkingCopyAssertions{
		t:       t,
		baseDir: baseDir,
	}
}

// Exists fails unless the path exists.
func (wa *WorkingCopyAssertions) Exists(relativePath string) *WorkingCopyAssertions {
	wa.t.Helper()
	fullPath := filepath.Join(wa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); err != nil {
		wa.t.Errorf("Expected %s to exist: %v", fullPath, err)
	}
	return wa
}

// Missing fails if the path exists.
func (wa *WorkingCopyAssertions) Missing(relativePath string) *WorkingCopyAssertions {
	wa.t.Helper()
	fullPath := filepath.Join(wa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); !errors.Is(err, os.ErrNotExist) {
		wa.t.Errorf("Expected %s to be absent", fullPath)
	}
	return wa
}

// IsRepository fails unless the path holds a .git directory or gitdir file.
func (wa *WorkingCopyAssertions) IsRepository(relativePath string) *WorkingCopyAssertions {
	wa.t.Helper()
	return wa.Exists(filepath.Join(relativePath, ".git"))
}

// FileContains fails unless the file contains expected.
func (wa *WorkingCopyAssertions) FileContains(relativePath, expected string) *WorkingCopyAssertions {
	wa.t.Helper()
	fullPath := filepath.Join(wa.baseDir, relativePath)

	// #nosec G304 - test helper, paths are controlled by test code
	content, err := os.ReadFile(fullPath)
	if err != nil {
		wa.t.Errorf("Failed to read file %s: %v", fullPath, err)
		return wa
	}
	if !strings.Contains(string(content), expected) {
		wa.t.Errorf("Expected %s to contain %q\nActual content:\n%s", relativePath, expected, string(content))
	}
	return wa
}

// FileNotContains fails if the file contains unexpected.
func (wa *WorkingCopyAssertions) FileNotContains(relativePath, unexpected string) *WorkingCopyAssertions {
	wa.t.Helper()
	fullPath := filepath.Join(wa.baseDir, relativePath)

	// #nosec G304 - test helper, paths are controlled by test code
	content, err := os.ReadFile(fullPath)
	if err != nil {
		wa.t.Errorf("Failed to read file %s: %v", fullPath, err)
		return wa
	}
	if strings.Contains(string(content), unexpected) {
		wa.t.Errorf("Expected %s not to contain %q", relativePath, unexpected)
	}
	return wa
}
