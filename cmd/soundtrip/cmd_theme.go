package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newThemeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [show|toggle|dark|light]",
		Short:     "Show or change the light/dark theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"show", "toggle", "dark", "light"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			action := "show"
			if len(args) == 1 {
				action = args[0]
			}

			dark := env.prefs.Dark()
			switch action {
			case "toggle":
				dark, err = env.session.ToggleTheme(ctx)
			case "dark", "light":
				if want := action == "dark"; want != dark {
					dark, err = env.session.ToggleTheme(ctx)
				}
			}
			if err != nil {
				return fmt.Errorf("failed to save theme: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), themeName(dark))
			return nil
		},
	}
}

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}
