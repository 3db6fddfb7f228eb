package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/nblink/cmd/nblink/commands"
	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
	"git.home.luguber.info/inful/nblink/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("nblink"),
		kong.Description("Resolve .nblink notebook descriptors for documentation builds."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Out: os.Stdout}
	if err := parser.Run(global, &cli); err != nil {
		nberrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
