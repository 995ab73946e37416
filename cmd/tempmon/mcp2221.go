package main

import (
	"context"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/tempmon/adapter"
	"github.com/mklimuk/tempmon/cmd/tempmon/console"
	"github.com/mklimuk/tempmon/snsctx"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 bridge maintenance",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

func newMCP2221(c *cli.Context) *adapter.MCP2221 {
	cfg := configFrom(c)
	if cfg.DeviceIndex >= 0 {
		return adapter.NewMCP2221(adapter.WithDeviceIndex(cfg.DeviceIndex))
	}
	return adapter.NewMCP2221()
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the bridge I2C engine status",
	Action: func(c *cli.Context) error {
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))
		status, err := newMCP2221(c).Status(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current I2C transfer and free the bus",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			ok, err := console.Confirm("cancel the current transfer and release the bus?")
			if err != nil {
				return console.Exit(console.ExitFailure, "prompt error: %s", console.Red(err))
			}
			if !ok {
				console.Infof("aborted")
				return nil
			}
		}
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))
		status, err := newMCP2221(c).ReleaseBus(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

func printYAML(v interface{}) error {
	enc := yaml.NewEncoder(console.Writer())
	err := enc.Encode(v)
	if err != nil {
		return console.Exit(console.ExitFailure, "encoding error: %s", console.Red(err))
	}
	return enc.Close()
}
