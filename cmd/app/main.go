package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	"github.com/starford/folio/internal/models"
	pkgconfig "github.com/starford/folio/pkg/config"
)

var version = "dev"

func options(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// printStatus writes st as indented JSON. Logs go to stderr so stdout holds
// only the result.
func printStatus(st models.Status) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func statusCommand(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	st, err := internal.Status(ctx, append(opts, internal.WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	return printStatus(st)
}

func grantCommand(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("grant: directory path is required")
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	st, err := internal.Grant(ctx, path, append(opts, internal.WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	return printStatus(st)
}

func restoreCommand(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	st, err := internal.Restore(ctx, append(opts, internal.WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	return printStatus(st)
}

func mcpCommand(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "folio",
		Usage:   "Local-first record and blob storage in a directory of your choice",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:      "grant",
				Usage:     "Select a directory for file-backed storage",
				ArgsUsage: "<path>",
				Action:    grantCommand,
			},
			{
				Name:   "restore",
				Usage:  "Try to restore the remembered directory",
				Action: restoreCommand,
			},
			{
				Name:   "status",
				Usage:  "Show storage settings and binding",
				Action: statusCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: mcpCommand,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
