package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/TWChennai/gocd-git-path-material-plugin/cmd/gitpath/commands"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
)

func main() {
	cli := &commands.CLI{}
	g := commands.NewGlobal(os.Stdout)
	ctx := kong.Parse(cli,
		kong.Name("gitpath"),
		kong.Description("Track the history of paths inside git repositories for CI."),
		kong.UsageOnError(),
		kong.Bind(g),
	)
	if err := ctx.Run(g, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}
