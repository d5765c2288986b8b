// Package commands implements the gitpath command line.
package commands

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/config"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/git"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
)

// Global carries state shared by every subcommand.
type Global struct {
	// Out receives command results. Logs go to stderr.
	Out   io.Writer
	Level *slog.LevelVar
	// Context is the parent of every command's context; nil means
	// context.Background().
	Context context.Context
}

// commandContext returns the context a command runs under. It is cancelled
// on SIGINT or SIGTERM, which stops any running git process.
func (g *Global) commandContext() (context.Context, context.CancelFunc) {
	parent := g.Context
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// NewGlobal returns globals writing results to out.
func NewGlobal(out io.Writer) *Global {
	return &Global{Out: out, Level: new(slog.LevelVar)}
}

// CLI definition & global flags.
type CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"gitpath.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`
	Backend string `help:"Override the configured backend (cmd or gogit)"`

	Check      CheckCmd      `cmd:"" help:"Check that a material's repository can be reached"`
	Latest     LatestCmd     `cmd:"" help:"Print the newest revision touching a material's paths"`
	Since      SinceCmd      `cmd:"" help:"Print the revisions after a given one touching a material's paths"`
	Checkout   CheckoutCmd   `cmd:"" help:"Bring a working copy to a revision"`
	Branches   BranchesCmd   `cmd:"" help:"Print the remote branches of a material and their revisions"`
	Submodules SubmodulesCmd `cmd:"" help:"Print the submodules of a material"`
	Validate   ValidateCmd   `cmd:"" help:"Validate the configuration file"`
	Init       InitCmd       `cmd:"" help:"Initialize a new configuration file"`
	Daemon     DaemonCmd     `cmd:"" help:"Poll materials continuously and record new revisions"`
	Version    VersionCmd    `cmd:"" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	if c.Verbose {
		g.Level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: g.Level})))
	return nil
}

// loadConfig reads the configuration file and applies command line overrides.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Backend != "" {
		kind, err := config.NormalizeBackend(c.Backend)
		if err != nil {
			return nil, errors.ValidationError("invalid --backend").WithCause(err).UserAction().Build()
		}
		cfg.Backend = kind
	}
	if !c.Verbose {
		g.Level.Set(cfg.Logging.SlogLevel())
	}
	return cfg, nil
}

// materialRequest resolves name to a material of the configuration.
func (c *CLI) materialRequest(g *Global, name string) (*config.Config, *config.Material, material.Request, error) {
	cfg, err := c.loadConfig(g)
	if err != nil {
		return nil, nil, material.Request{}, err
	}
	m, ok := cfg.Material(name)
	if !ok {
		return nil, nil, material.Request{}, errors.NewError(errors.CategoryNotFound, "unknown material: "+name).
			WithContext("material", name).
			UserAction().
			Build()
	}
	repo, err := m.RepositoryConfig()
	if err != nil {
		return nil, nil, material.Request{}, errors.ConfigError("invalid material").WithCause(err).Build()
	}
	return cfg, m, material.Request{Config: repo, Paths: m.PathFilters(), WorkDir: cfg.WorkDir(m), RefSpec: m.RefSpec}, nil
}

func newService(cfg *config.Config) *material.Service {
	return material.NewService(cfg.Backend, git.BackendOptions{GitBinary: cfg.GitBinary})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
