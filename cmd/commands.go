package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/progression-backend/internal/app"
	"github.com/yungbote/progression-backend/internal/modules/progression/catalog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Start(ctx); err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- a.Run() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	},
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the skill catalog from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := catalog.LoadFile(seedFile)
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Services.Seeder.Seed(cmd.Context(), f)
		if err != nil {
			return err
		}
		a.Log.Info("catalog seeded", "file", seedFile, "nodes", res.Nodes, "edges", res.Edges, "conditions", res.Conditions)
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var resyncUser string

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Recompute one user's streak snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(resyncUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.Services.Stats.Resync(cmd.Context(), userID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "configs/skill_catalog.yaml", "catalog YAML file")
	resyncCmd.Flags().StringVar(&resyncUser, "user", "", "user id")
	_ = resyncCmd.MarkFlagRequired("user")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
