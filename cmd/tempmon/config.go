package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/tempmon/cmd/tempmon/console"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "print the effective configuration as YAML",
	Action: func(c *cli.Context) error {
		err := configFrom(c).Encode(console.Writer())
		if err != nil {
			return console.Exit(console.ExitFailure, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}
