package git

import (
	"fmt"
	"strings"
)

// Default shallow clone depths.
const (
	DefaultCloneDepth      = 2
	DefaultAdditionalDepth = 100
	// UnboundedDepth deepens a shallow working copy to its full history.
	UnboundedDepth = 2147483647
	DefaultBranch  = "master"
	RemoteName     = "origin"
)

// ShallowClone configures a shallow working copy: the initial clone depth and
// how much history one escalation step adds.
type ShallowClone struct {
	DefaultDepth    int
	AdditionalDepth int
}

// NewShallowClone validates that an escalation step can add history.
func NewShallowClone(defaultDepth, additionalDepth int) (*ShallowClone, error) {
	if defaultDepth <= 0 {
		return nil, fmt.Errorf("%w: default depth %d must be positive", ErrInvalidShallowClone, defaultDepth)
	}
	if additionalDepth <= defaultDepth {
		return nil, fmt.Errorf("%w: additional %d, default %d", ErrInvalidShallowClone, additionalDepth, defaultDepth)
	}
	return &ShallowClone{DefaultDepth: defaultDepth, AdditionalDepth: additionalDepth}, nil
}

// DefaultShallowClone returns the (2, 100) policy.
func DefaultShallowClone() *ShallowClone {
	return &ShallowClone{DefaultDepth: DefaultCloneDepth, AdditionalDepth: DefaultAdditionalDepth}
}

// RepositoryConfig holds connection parameters for one material. It is owned
// by the caller and must not change while an engine call is running.
type RepositoryConfig struct {
	URL      string
	Username string
	Password string
	Branch   string

	RecursiveSubmoduleUpdate bool
	NoCheckout               bool
	ShallowClone             *ShallowClone // nil disables shallow cloning
}

// NewRepositoryConfig returns a config for url with submodule updates enabled.
func NewRepositoryConfig(url string) *RepositoryConfig {
	return &RepositoryConfig{URL: url, RecursiveSubmoduleUpdate: true}
}

// IsRemoteURL reports whether the URL uses http or https.
func (c *RepositoryConfig) IsRemoteURL() bool {
	return strings.HasPrefix(c.URL, "http://") || strings.HasPrefix(c.URL, "https://")
}

// HasCredentials reports whether both URL and password are set.
func (c *RepositoryConfig) HasCredentials() bool {
	return !isBlank(c.URL) && !isBlank(c.Password)
}

// EffectiveURL injects credentials after the scheme of http(s) URLs. Any other
// specifier, including scp-style SSH remotes, is returned verbatim.
func (c *RepositoryConfig) EffectiveURL() string {
	if !c.IsRemoteURL() || !c.HasCredentials() {
		return c.URL
	}
	scheme, rest, _ := strings.Cut(c.URL, "://")
	return fmt.Sprintf("%s://%s:%s@%s", scheme, c.Username, c.Password, rest)
}

// EffectiveBranch is the configured branch, or "master" when blank.
func (c *RepositoryConfig) EffectiveBranch() string {
	if isBlank(c.Branch) {
		return DefaultBranch
	}
	return c.Branch
}

// RemoteBranch is the remote-tracking name of the effective branch.
func (c *RepositoryConfig) RemoteBranch() string {
	return RemoteName + "/" + c.EffectiveBranch()
}

// Redactables lists the secrets to mask, in the order they are applied.
func (c *RepositoryConfig) Redactables() []string {
	var out []string
	for _, s := range []string{c.Username, c.Password} {
		if !isBlank(s) {
			out = append(out, s)
		}
	}
	return out
}

// RedactedURL is the effective URL with secrets masked, for logs.
func (c *RepositoryConfig) RedactedURL() string {
	return Redact(c.EffectiveURL(), c.Redactables())
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
