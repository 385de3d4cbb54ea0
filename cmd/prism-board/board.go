package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"prism-board/boardview"
	"prism-board/client"
	"prism-board/domain"
)

type remoteFlags struct {
	url     string
	token   string
	project string
}

func (f *remoteFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "http://localhost:8080", "board API base URL")
	cmd.Flags().StringVar(&f.token, "token", "", "bearer token")
	cmd.Flags().StringVar(&f.project, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
}

func watchCmd() *cobra.Command {
	var flags remoteFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a project board live",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := client.New(flags.url, flags.token)
			b := boardview.New(flags.project, c, c, log.StandardLogger())
			out := cmd.OutOrStdout()
			return c.Watch(ctx, flags.project, func(tasks []domain.TaskView) {
				if b.SetAuthoritative(tasks) {
					printBoard(out, b)
				}
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func moveCmd() *cobra.Command {
	var (
		flags remoteFlags
		task  string
		onto  string
	)
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Drop a task onto a column or another task",
		Long: "Moves --task onto --onto, which is either a column (BACKLOG, TODO, IN_PROGRESS,\n" +
			"IN_REVIEW, DONE) or the id of the task to take the place of.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(flags.url, flags.token)
			b := boardview.New(flags.project, c, c, log.StandardLogger())
			if err := b.Refresh(cmd.Context()); err != nil {
				return err
			}
			if !b.DragStart(task) {
				return fmt.Errorf("task %s is not on board %s", task, flags.project)
			}
			if err := b.DragEnd(cmd.Context(), onto); err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), b)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&task, "task", "", "task to move")
	cmd.Flags().StringVar(&onto, "onto", "", "target column or task")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("onto")
	return cmd
}

func printBoard(w io.Writer, b *boardview.Board) {
	for _, col := range b.Columns() {
		titles := make([]string, 0, len(col.Tasks))
		for _, t := range col.Tasks {
			titles = append(titles, t.Title)
		}
		fmt.Fprintf(w, "%-12s %d  %s\n", col.Status, len(col.Tasks), strings.Join(titles, " | "))
	}
	fmt.Fprintln(w)
}
