package commands

import (
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
)

// CheckoutCmd implements the 'checkout' command.
type CheckoutCmd struct {
	Material string `arg:"" help:"Material name"`
	Revision string `arg:"" help:"Revision to check out"`
	Dest     string `short:"d" help:"Destination directory (defaults to the material's working directory)"`
}

func (c *CheckoutCmd) Run(g *Global, root *CLI) error {
	cfg, m, req, err := root.materialRequest(g, c.Material)
	if err != nil {
		return err
	}
	dest := c.Dest
	if dest == "" {
		dest = cfg.WorkDir(m)
	}
	ctx, cancel := g.commandContext()
	defer cancel()
	messages, err := newService(cfg).Checkout(ctx, req.Config, dest, c.Revision)
	resp := material.CheckoutResponse{Status: material.StatusSuccess, Messages: messages}
	if err != nil {
		resp.Status = material.StatusFailure
	}
	if werr := writeJSON(g.Out, resp); werr != nil && err == nil {
		return werr
	}
	return err
}
