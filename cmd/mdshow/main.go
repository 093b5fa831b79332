package main

import (
	"fmt"
	"os"

	"github.com/connctd/mdshow"
	"github.com/urfave/cli"
)

var logLevel string

func main() {
	app := cli.NewApp()
	app.Name = "mdshow"
	app.Usage = "Serve Markdown files as live updating slide decks"
	app.Version = mdshow.Version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
	}
	app.Commands = []cli.Command{
		serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
