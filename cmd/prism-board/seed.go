package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prism-board/storage"
)

func seedCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample launch project",
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

			if err := store.Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded project %s\n", storage.SampleProjectID)
			return nil
		},
	}
}
