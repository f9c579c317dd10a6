package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/dainiki/internal"
	pkgconfig "github.com/starford/dainiki/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	if _, err := internal.Build(ctx, opts...); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return nil
}

func check(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	if _, err := internal.Check(ctx, opts...); err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	return nil
}

func watch(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	if err := internal.Watch(ctx, opts...); err != nil {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

func history(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	return internal.History(ctx, int(cmd.Int("limit")), opts...)
}

func main() {
	cmd := &cli.Command{
		Name:  "dainiki",
		Usage: "Build a static blog from YAML descriptors, markdown and HTML templates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "dainiki.yaml",
				Value:       "dainiki.yaml",
				Sources:     cli.EnvVars("DAINIKI_CONFIG"),
			},
		},
		Action: build,
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Validate descriptors, render every page and replace the output directory",
				Action: build,
			},
			{
				Name:   "check",
				Usage:  "Validate descriptors against their schemas without writing output",
				Action: check,
			},
			{
				Name:   "watch",
				Usage:  "Build, then rebuild whenever content, schemas or views change",
				Action: watch,
			},
			{
				Name:  "history",
				Usage: "List recent builds from the build manifest",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of builds to show",
						Value: 20,
					},
				},
				Action: history,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
