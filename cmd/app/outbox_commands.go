package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/eventledger/cmd/app/commands"
	"github.com/allisson/eventledger/internal/app"
	"github.com/allisson/eventledger/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getOutboxCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "dispatch",
			Usage: "Deliver unpublished outbox messages",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "once",
					Value: false,
					Usage: "Run a single dispatch cycle and exit",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				dispatcher, err := container.Dispatcher()
				if err != nil {
					return err
				}

				return commands.RunDispatch(
					ctx,
					dispatcher,
					container.Logger(),
					os.Stdout,
					cmd.Bool("once"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "purge-outbox",
			Usage: "Delete published outbox messages older than specified days",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Delete published messages older than this many days",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many messages would be deleted without deleting",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				outboxUseCase, err := container.OutboxUseCase()
				if err != nil {
					return err
				}

				return commands.RunPurgeOutbox(
					ctx,
					outboxUseCase,
					container.Logger(),
					os.Stdout,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-failed",
			Usage: "List unpublished outbox messages that reached the retry threshold",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "max-retries",
					Aliases: []string{"r"},
					Usage:   "Retry threshold (defaults to OUTBOX_MAX_RETRIES)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				outboxUseCase, err := container.OutboxUseCase()
				if err != nil {
					return err
				}

				maxRetries := int(cmd.Int("max-retries"))
				if maxRetries == 0 {
					maxRetries = cfg.OutboxMaxRetries
				}

				return commands.RunListFailed(
					ctx,
					outboxUseCase,
					os.Stdout,
					maxRetries,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "requeue",
			Usage: "Mark an outbox message unpublished so it is delivered again",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Outbox message ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				outboxUseCase, err := container.OutboxUseCase()
				if err != nil {
					return err
				}

				return commands.RunRequeue(
					ctx,
					outboxUseCase,
					container.Logger(),
					os.Stdout,
					cmd.String("id"),
				)
			},
		},
	}
}
