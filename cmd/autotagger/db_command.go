package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/autotagger/internal/maintenance"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the settings database",
	}
	cmd.AddCommand(newDBStatusCommand(ctx))
	cmd.AddCommand(newDBOptimizeCommand(ctx))
	cmd.AddCommand(newDBBackupCommand(ctx))
	return cmd
}

func newDBBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <file>",
		Short: "Write a consistent snapshot of the database to a new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				size, err := a.maint.Backup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", args[0], size)
				return err
			})
		},
	}
}

func newDBStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database size, schema version and last optimize time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				st, err := a.maint.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, st)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), statusTable(st))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newDBOptimizeCommand(ctx *commandContext) *cobra.Command {
	var vacuum bool
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Refresh query planner statistics and checkpoint the WAL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				if err := a.maint.Optimize(cmd.Context()); err != nil {
					return err
				}
				if vacuum {
					if err := a.maint.Vacuum(cmd.Context()); err != nil {
						return err
					}
				}
				st, err := a.maint.Status(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), statusTable(st))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "Also rebuild the database file")
	return cmd
}

func statusTable(st *maintenance.Status) string {
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	rows := [][]string{
		{"Path", st.Path},
		{"Schema version", strconv.FormatInt(st.SchemaVersion, 10)},
		{"File size", strconv.FormatInt(st.DBFileSize, 10)},
		{"WAL size", strconv.FormatInt(st.WALFileSize, 10)},
		{"Pages", fmt.Sprintf("%d x %d", st.PageCount, st.PageSize)},
		{"Last optimize", orDash(st.LastOptimizeAt)},
		{"Schedule", orDash(st.Interval)},
	}
	return renderTable([]string{"Property", "Value"}, rows)
}
