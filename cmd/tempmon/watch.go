package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/tempmon/cmd/tempmon/console"
	"github.com/mklimuk/tempmon/environment"
	"github.com/mklimuk/tempmon/monitor"
	"github.com/mklimuk/tempmon/snsctx"
)

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "poll the sensor at the configured interval and log every reading",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Usage: "stop after this many readings (0 runs until interrupted)",
		},
	},
	Action: func(c *cli.Context) error {
		cfg := configFrom(c)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = snsctx.SetVerbose(ctx, c.Bool("verbose"))

		ctrl, release, err := openController(cfg)
		if err != nil {
			return console.Exit(console.ExitFailure, "%s", console.Red(err))
		}
		defer release()

		err = monitor.Prepare(ctx, ctrl, cfg.Frequency())
		if err != nil {
			return prepareExit(err)
		}

		m := monitor.New(environment.NewTMP102(ctrl),
			monitor.WithInterval(cfg.Interval),
			monitor.WithCount(c.Int("count")),
		)
		stats, err := m.Run(ctx)
		slog.Info("monitor stopped", "polls", stats.Polls, "failures", stats.Failures, "last", stats.Last)
		if err != nil && !errors.Is(err, context.Canceled) {
			return console.Exit(console.ExitFailure, "%s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "done")
		return nil
	},
}
