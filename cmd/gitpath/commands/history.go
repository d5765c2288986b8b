package commands

import (
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Material string `arg:"" help:"Material name"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, _, req, err := root.materialRequest(g, c.Material)
	if err != nil {
		return err
	}
	ctx, cancel := g.commandContext()
	defer cancel()
	status := newService(cfg).CheckConnection(ctx, req.Config)
	if err := writeJSON(g.Out, status); err != nil {
		return err
	}
	if status.Status != material.StatusSuccess {
		return errors.NetworkError("connection check failed").WithContext("material", c.Material).Build()
	}
	return nil
}

// LatestCmd implements the 'latest' command.
type LatestCmd struct {
	Material string `arg:"" help:"Material name"`
}

func (c *LatestCmd) Run(g *Global, root *CLI) error {
	cfg, _, req, err := root.materialRequest(g, c.Material)
	if err != nil {
		return err
	}
	ctx, cancel := g.commandContext()
	defer cancel()
	rev, err := newService(cfg).LatestRevision(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(g.Out, material.NewLatestRevisionResponse(rev))
}

// SinceCmd implements the 'since' command.
type SinceCmd struct {
	Material string `arg:"" help:"Material name"`
	Revision string `arg:"" help:"Previously seen revision"`
}

func (c *SinceCmd) Run(g *Global, root *CLI) error {
	cfg, _, req, err := root.materialRequest(g, c.Material)
	if err != nil {
		return err
	}
	ctx, cancel := g.commandContext()
	defer cancel()
	revs, err := newService(cfg).LatestRevisionsSince(ctx, req, c.Revision)
	if err != nil {
		return err
	}
	return writeJSON(g.Out, material.NewRevisionsResponse(revs))
}

// BranchesCmd implements the 'branches' command.
type BranchesCmd struct {
	Material string `arg:"" help:"Material name"`
}

func (c *BranchesCmd) Run(g *Global, root *CLI) error {
	cfg, _, req, err := root.materialRequest(g, c.Material)
	if err != nil {
		return err
	}
	ctx, cancel := g.commandContext()
	defer cancel()
	branches, err := newService(cfg).BranchRevisions(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(g.Out, branches)
}

// SubmodulesCmd implements the 'submodules' command.
type SubmodulesCmd struct {
	Material string `arg:"" help:"Material name"`
}

func (c *SubmodulesCmd) Run(g *Global, root *CLI) error {
	cfg, _, req, err := root.materialRequest(g, c.Material)
	if err != nil {
		return err
	}
	ctx, cancel := g.commandContext()
	defer cancel()
	subs, err := newService(cfg).Submodules(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(g.Out, subs)
}
