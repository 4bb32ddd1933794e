package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/eventledger/cmd/app/commands"
	"github.com/allisson/eventledger/internal/app"
	"github.com/allisson/eventledger/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server and the outbox dispatcher",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "no-dispatcher",
					Value: false,
					Usage: "Serve the API without running the outbox dispatcher",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version, !cmd.Bool("no-dispatcher"))
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				db, err := container.DB()
				if err != nil {
					return err
				}

				return commands.RunMigrations(container.Logger(), db, cfg.DBDriver)
			},
		},
	}
}
