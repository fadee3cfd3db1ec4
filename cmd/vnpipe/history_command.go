package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vnpipe/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var project, entity string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent publish attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []history.Entry
			if strings.TrimSpace(entity) != "" {
				entries, err = store.ForEntity(cmd.Context(), project, entity)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No publishes recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				status := string(e.Status)
				if e.Error != "" {
					status += ": " + e.Error
				}
				rows = append(rows, []string{
					e.CreatedAt.Local().Format(time.DateTime),
					string(e.Kind),
					e.Project,
					e.Label,
					strconv.Itoa(e.VersionID),
					status,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When", "Kind", "Project", "Label", "Version", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project of --entity")
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "Show every attempt for one asset or task")
	cmd.MarkFlagsRequiredTogether("project", "entity")
	return cmd
}
