package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/tempmon/cmd/tempmon/console"
	"github.com/mklimuk/tempmon/config"
)

const configKey = "config"

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := cli.NewApp()
	app.Name = "tempmon"
	app.EnableBashCompletion = true
	app.Version = config.BuildVersion()
	app.Usage = "TMP102 temperature monitor"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and adapter frame dumps",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML configuration file",
			EnvVars: []string{"TEMPMON_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Usage:   "bus adapter: generic|mcp2221|nanopi|sim",
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "bus name for the generic adapter (e.g. /dev/i2c-1)",
		},
		&cli.IntFlag{
			Name:  "bus",
			Usage: "bus number for the nanopi adapter",
		},
		&cli.IntFlag{
			Name:  "device-index",
			Usage: "MCP2221 to use when several are attached",
		},
		&cli.Int64Flag{
			Name:  "speed",
			Usage: "bus speed in Hz",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "polling interval",
		},
	}
	app.Before = func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(console.ExitUsage, "configuration error: %s", console.Red(err))
		}
		setupLogging(cfg.LogLevel)
		c.App.Metadata = map[string]interface{}{configKey: cfg}
		slog.Debug("configuration loaded", "adapter", cfg.Adapter, "speed", cfg.Speed, "interval", cfg.Interval)
		return nil
	}
	// exit codes are mapped below
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Commands = cli.Commands{
		&readCmd,
		&watchCmd,
		&configCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("%v", err)
			return exerr.ExitCode()
		}
		console.Errorf("%s", err)
		return 1
	}
	return 0
}

// loadConfig reads the configuration file and applies the flags that were set.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.Int("bus")
	}
	if c.IsSet("device-index") {
		cfg.DeviceIndex = c.Int("device-index")
	}
	if c.IsSet("speed") {
		cfg.Speed = c.Int64("speed")
	}
	if c.IsSet("interval") {
		cfg.Interval = c.Duration("interval")
	}
	if c.Bool("verbose") {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func setupLogging(level string) {
	charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	charm.SetColorProfile(termenv.TrueColor)
	lvl, err := chlog.ParseLevel(level)
	if err != nil {
		lvl = chlog.InfoLevel
	}
	charm.SetLevel(lvl)
	slog.SetDefault(slog.New(charm))
}

func configFrom(c *cli.Context) config.Config {
	cfg, ok := c.App.Metadata[configKey].(config.Config)
	if !ok {
		return config.Default()
	}
	return cfg
}
