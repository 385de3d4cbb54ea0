package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prism-board/api"
)

func tokenCmd(load configLoader) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed development token (auth.mode=hs256 only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Auth.Mode != "hs256" {
				return errors.New("token requires auth.mode=hs256")
			}
			tok, err := api.IssueToken(cfg.Auth.Secret, userID, cfg.Auth.Audience, ttl)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "subject of the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
