package config

import (
	"path/filepath"
	"strings"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/git"
)

// Material is one tracked repository.
type Material struct {
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Branch   string   `yaml:"branch,omitempty"`
	Paths    []string `yaml:"paths,omitempty"`
	RefSpec  string   `yaml:"refspec,omitempty"`

	NoCheckout               bool                `yaml:"no_checkout,omitempty"`
	RecursiveSubmoduleUpdate *bool               `yaml:"recursive_submodule_update,omitempty"`
	ShallowClone             *ShallowCloneConfig `yaml:"shallow_clone,omitempty"`
}

// ShallowCloneConfig mirrors git.ShallowClone in the file format.
type ShallowCloneConfig struct {
	DefaultDepth    int `yaml:"default_depth"`
	AdditionalDepth int `yaml:"additional_depth"`
}

// RepositoryConfig builds the engine configuration for the material. It fails
// with git.ErrInvalidShallowClone when the shallow clone depths are unusable.
func (m *Material) RepositoryConfig() (*git.RepositoryConfig, error) {
	rc := git.NewRepositoryConfig(m.URL)
	rc.Username = m.Username
	rc.Password = m.Password
	rc.Branch = m.Branch
	rc.NoCheckout = m.NoCheckout
	if m.RecursiveSubmoduleUpdate != nil {
		rc.RecursiveSubmoduleUpdate = *m.RecursiveSubmoduleUpdate
	}
	if m.ShallowClone != nil {
		sc, err := git.NewShallowClone(m.ShallowClone.DefaultDepth, m.ShallowClone.AdditionalDepth)
		if err != nil {
			return nil, err
		}
		rc.ShallowClone = sc
	}
	return rc, nil
}

// PathFilters returns the configured path filters with blanks removed.
func (m *Material) PathFilters() []string {
	var out []string
	for _, p := range m.Paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WorkDir is the material's working directory below workspace.
func (m *Material) WorkDir(workspace string) string {
	return filepath.Join(workspace, m.Name)
}

// WorkDir returns the working directory of material m.
func (c *Config) WorkDir(m *Material) string {
	return m.WorkDir(c.Workspace)
}
