package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/tempmon"
	"github.com/mklimuk/tempmon/cmd/tempmon/console"
	"github.com/mklimuk/tempmon/environment"
	"github.com/mklimuk/tempmon/monitor"
	"github.com/mklimuk/tempmon/snsctx"
)

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"temp"},
	Usage:   "take a single temperature reading",
	Action: func(c *cli.Context) error {
		cfg := configFrom(c)
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))

		ctrl, release, err := openController(cfg)
		if err != nil {
			return console.Exit(console.ExitFailure, "%s", console.Red(err))
		}
		defer release()

		err = monitor.Prepare(ctx, ctrl, cfg.Frequency())
		if err != nil {
			return prepareExit(err)
		}
		temp, err := environment.NewTMP102(ctrl).Read(ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "error getting temperature read: %s", console.Red(err))
		}
		slog.DebugContext(ctx, "temperature read", "millicelsius", int32(temp), "physic", temp.Physic().String())
		console.PInfof(console.PictoThermometer, "%s", console.White(temp))
		return nil
	},
}

func prepareExit(err error) cli.ExitCoder {
	if errors.Is(err, tempmon.ErrDeviceNotReady) {
		return console.Exit(console.ExitFailure, "%s %s", console.PictoStop, console.Red("I2C bus not ready"))
	}
	return console.Exit(console.ExitFailure, "%s", console.Red(err))
}
