package main

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hfparse/internal/mcp"
	"hfparse/internal/store"
)

func serveCmd(a *app) *cobra.Command {
	var noLog bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(a, noLog)
		},
	}
	cmd.Flags().BoolVar(&noLog, "no-log", false, "Do not log turns to the configured database")
	return cmd
}

func runServe(a *app, noLog bool) error {
	ctx := context.Background()

	p, err := a.loadProject()
	if err != nil {
		return err
	}

	var db store.Store
	if !noLog && p.cfg.Database.DSN != "" {
		db, err = openDB(ctx, p.cfg)
		if err != nil {
			return err
		}
		defer db.Close(ctx)
	}

	a.logger.Info("serving over stdio", zap.String("project", p.cfg.Project), zap.Bool("turn_log", db != nil))
	server := mcp.NewServer(p.engine(a.logger), db, version, a.logger.Named("mcp"))
	return server.Run(ctx, &sdk.StdioTransport{})
}
