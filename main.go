package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	exportcmd "github.com/dtnitsch/druxit/internal/export"
	"github.com/dtnitsch/druxit/internal/inspect"
	"github.com/dtnitsch/druxit/internal/setup"
	"github.com/dtnitsch/druxit/models"
)

func main() {
	app := &cli.App{
		Name:  "druxit",
		Usage: "export Drupal 9 content to normalized JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "settings", Value: models.DefaultSettingsFile, Usage: "settings file path"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		},
		// No subcommand: the interactive run the original script offered.
		Action: exportcmd.InteractiveAction,
		Commands: []*cli.Command{
			{
				Name:   "export",
				Usage:  "export nodes in batch",
				Action: exportcmd.Action,
				Flags: append(connFlags(),
					&cli.StringSliceFlag{Name: "types", Usage: "content types to export"},
					&cli.StringSliceFlag{Name: "nids", Usage: "export exactly these node ids"},
					&cli.StringFlag{Name: "out", Usage: "output directory"},
					&cli.IntFlag{Name: "workers", Usage: "parallel assembly workers"},
					&cli.StringFlag{Name: "on-error", Usage: "abort or skip on per-node failure"},
					&cli.BoolFlag{Name: "pretty", Usage: "indent JSON output"},
					&cli.BoolFlag{Name: "plaintext", Usage: "add plain-text renderings of HTML values"},
				),
			},
			{
				Name:      "node",
				Usage:     "export a single node to stdout",
				ArgsUsage: "<nid>",
				Action:    exportcmd.NodeAction,
				Flags: append(connFlags(),
					&cli.BoolFlag{Name: "plaintext", Usage: "add plain-text renderings of HTML values"},
				),
			},
			{
				Name:      "fields",
				Usage:     "show discovered field storage for a bundle",
				ArgsUsage: "<bundle>",
				Action:    inspect.FieldsAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "entity", Value: "node", Usage: "entity type: node, paragraph or taxonomy_term"},
				},
			},
			{
				Name:   "init",
				Usage:  "create or update the settings file",
				Action: setup.InitAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func connFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "driver", Usage: "mysql or sqlite"},
		&cli.StringFlag{Name: "host", Usage: "database host"},
		&cli.StringFlag{Name: "database", Usage: "database name (or sqlite file path)"},
		&cli.StringFlag{Name: "user", Usage: "database user"},
		&cli.StringFlag{Name: "password", Usage: "database password"},
	}
}
