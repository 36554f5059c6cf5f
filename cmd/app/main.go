package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/projectservice"
	pkgconfig "github.com/starford/folio/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.ExpandPaths(home)
	}
	return cfg, nil
}

// serviceAction is a subcommand body that returns a value to print.
type serviceAction func(ctx context.Context, cmd *cli.Command, cfg *internal.Config, svc *projectservice.Service) (any, error)

// withService runs fn against a project service built from the config and
// prints its result as indented JSON.
func withService(fn serviceAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		svc, closeIndex, err := internal.OpenService(cfg)
		if err != nil {
			return err
		}
		defer closeIndex()

		out, err := fn(ctx, cmd, cfg, svc)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

// createRequest builds the request for the create subcommand. New projects
// default to the workspace as parent; adopting an existing directory needs
// an explicit --dir.
func createRequest(dir, name string, existing bool, workspace string) (*models.CreateRequest, error) {
	req := &models.CreateRequest{Directory: dir, Name: name, Type: models.ProjectTypeNew}
	if existing {
		if dir == "" {
			return nil, errors.New("--dir is required with --existing")
		}
		req.Type = models.ProjectTypeExisting
		return req, nil
	}
	if req.Directory == "" {
		req.Directory = workspace
	}
	return req, nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	if cmd.Args().Len() < 1 {
		return "", fmt.Errorf("%s is required", name)
	}
	return cmd.Args().First(), nil
}

func main() {
	cmd := &cli.Command{
		Name:   "folio",
		Usage:  "Create, open and annotate project folders seeded from versioned templates",
		Action: serve,
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
				Usage:  "Run the HTTP API and workspace watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:  "templates",
				Usage: "List available templates",
				Action: withService(func(ctx context.Context, _ *cli.Command, _ *internal.Config, svc *projectservice.Service) (any, error) {
					return svc.Templates(ctx)
				}),
			},
			{
				Name:      "create",
				Usage:     "Create a project (or adopt an existing directory with --existing)",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "Parent directory (defaults to the workspace), or the project itself with --existing"},
					&cli.BoolFlag{Name: "existing", Usage: "Adopt --dir itself as the project"},
					&cli.StringFlag{Name: "template", Usage: "Template id"},
					&cli.StringFlag{Name: "version", Usage: "Template version"},
				},
				Action: withService(func(ctx context.Context, cmd *cli.Command, cfg *internal.Config, svc *projectservice.Service) (any, error) {
					req, err := createRequest(cmd.String("dir"), cmd.Args().First(), cmd.Bool("existing"), cfg.Workspace.Path)
					if err != nil {
						return nil, err
					}
					var tmpl *models.TemplateRef
					if id := cmd.String("template"); id != "" {
						tmpl = &models.TemplateRef{ID: id, Version: cmd.String("version")}
					}
					return svc.Create(ctx, req, tmpl)
				}),
			},
			{
				Name:      "open",
				Usage:     "Open a project directory and mark it as accessed",
				ArgsUsage: "<path>",
				Action: withService(func(ctx context.Context, cmd *cli.Command, _ *internal.Config, svc *projectservice.Service) (any, error) {
					path, err := requireArg(cmd, "path")
					if err != nil {
						return nil, err
					}
					return svc.Open(ctx, path)
				}),
			},
			{
				Name:      "assets",
				Usage:     "Print a project's asset tree with notes",
				ArgsUsage: "<project-id>",
				Action: withService(func(ctx context.Context, cmd *cli.Command, _ *internal.Config, svc *projectservice.Service) (any, error) {
					id, err := requireArg(cmd, "project id")
					if err != nil {
						return nil, err
					}
					return svc.Assets(ctx, id)
				}),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
