package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"soundtrip/cmd/soundtrip/ui"
)

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List, show and delete saved stories",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved stories, newest date first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.readableHistory(); err != nil {
				return err
			}

			dates := env.history.Dates()
			out := cmd.OutOrStdout()
			if len(dates) == 0 {
				fmt.Fprintln(out, "No saved stories.")
				return nil
			}
			rows := make([][]string, 0, len(dates))
			for _, d := range dates {
				e, _ := env.history.Get(d)
				rows = append(rows, []string{d, e.Form.City, e.Story.Title, e.SavedAt.Local().Format("2006-01-02 15:04")})
			}
			fmt.Fprintln(out, historyTable(ui.StylesFor(env.prefs.Dark()), rows).Render())
			return nil
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show <date>",
		Short: "Print a saved story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.readableHistory(); err != nil {
				return err
			}

			if err := env.session.Select(args[0]); err != nil {
				return err
			}
			st := env.session.State()
			resp := *st.Story
			fmt.Fprintf(cmd.ErrOrStderr(), "%s · %s · %s\n", st.Form.City, st.Form.Date, st.Form.TimeOfDay)
			return writeStory(cmd.OutOrStdout(), resp, env.client.AudioURL(resp.AudioURL), st.DarkMode, format)
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, markdown or json")

	deleteCmd := &cobra.Command{
		Use:   "delete <date>",
		Short: "Delete a saved story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.readableHistory(); err != nil {
				return err
			}

			if err := env.session.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	historyCmd.AddCommand(listCmd, showCmd, deleteCmd)
	return historyCmd
}

// historyTable lays out saved stories with the theme's styles.
func historyTable(s ui.Styles, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Muted).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Bold.Padding(0, 1)
			}
			return s.Body.Padding(0, 1)
		}).
		Headers("DATE", "CITY", "TITLE", "SAVED").
		Rows(rows...)
}
