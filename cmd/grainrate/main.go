package main

import (
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"grainrate/pkg/calibration"
)

const version = "v1.0.0"

func init() {
	log.SetFormatter(&log.TextFormatter{
		ForceQuote:      true,
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	log.SetOutput(os.Stdout)
}

func main() {
	frameFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "images",
			Aliases: []string{"i"},
			Usage:   "directory holding the time series frames",
		},
		&cli.StringFlag{
			Name:    "mag",
			Aliases: []string{"m"},
			Usage:   "objective magnification label (" + strings.Join(calibration.Default().Labels(), ", ") + ")",
		},
		&cli.StringFlag{
			Name:    "time-source",
			Aliases: []string{"t"},
			Usage:   "where acquisition times come from (modtime, filename)",
		},
		&cli.StringFlag{
			Name:  "lower",
			Usage: "comma separated lower threshold bounds",
		},
		&cli.StringFlag{
			Name:  "upper",
			Usage: "comma separated upper threshold bounds",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "directory for CSV files and plots (default <images>/analysis_results)",
		},
	}

	app := &cli.App{
		Name:    "grainrate",
		Usage:   "measure grain growth rates from time series microscope images",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "loglevel",
				Aliases:     []string{"l"},
				Usage:       "log level (debug, info, warn, error)",
				Value:       "info",
				DefaultText: "info",
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "session file",
				Value:       "grainrate.yaml",
				DefaultText: "grainrate.yaml",
			},
		},

		Before: func(c *cli.Context) error {
			level, err := log.ParseLevel(c.String("loglevel"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},

		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "write a default session file",
				Action: initAction,
			},
			{
				Name:    "extract",
				Aliases: []string{"x"},
				Usage:   "measure growth fronts on every frame and fit growth rates",
				Flags: append(append([]cli.Flag{}, frameFlags...),
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "frames processed in parallel (default from session)",
					},
					&cli.StringFlag{
						Name:    "sqlitefile",
						Aliases: []string{"f"},
						Usage:   "sqlite results database (default from session)",
					},
					&cli.StringFlag{
						Name:    "postgres-dsn",
						Aliases: []string{"p"},
						Usage:   "postgres results database",
					},
					&cli.BoolFlag{
						Name:    "nowritedb",
						Aliases: []string{"n"},
						Usage:   "do not write results to any database",
					},
				),
				Action: extractAction,
			},
			{
				Name:   "check-threshold",
				Usage:  "write threshold preview images for the latest frame",
				Flags:  frameFlags,
				Action: checkThresholdAction,
			},
			{
				Name:   "check-edge",
				Usage:  "write the edge profile and line overlay for the latest frame",
				Flags:  frameFlags,
				Action: checkEdgeAction,
			},
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
