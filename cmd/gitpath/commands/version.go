package commands

import (
	"fmt"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global) error {
	_, err := fmt.Fprintln(g.Out, version.String())
	return err
}
