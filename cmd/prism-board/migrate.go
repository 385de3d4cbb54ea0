package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prism-board/storage"
)

func migrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and create the activity export queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			version, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)

			if cfg.Export.QueueConnectionString != "" {
				if err := storage.EnsureQueue(cmd.Context(), cfg.Export.QueueConnectionString, cfg.Export.QueueName); err != nil {
					return fmt.Errorf("ensure queue %s: %w", cfg.Export.QueueName, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queue %s ready\n", cfg.Export.QueueName)
			}
			return nil
		},
	}
}
