package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soundtrip/cmd/soundtrip/ui"
	"soundtrip/internal/app"
	"soundtrip/internal/logging"
	"soundtrip/internal/story"
)

const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"

	renderWidth = 80
)

func newCreateCmd() *cobra.Command {
	var (
		city, date, timeOfDay, comment string
		save                           bool
		format                         string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a story for a city, date and time of day",
		Long: `Sends the form to the story service and prints the result.
Fields that are not given keep their defaults (Kyoto, today, Evening).

Example:
  soundtrip create --city 京都 --time 夕方 --comment "雨でも歩きたい" --save`,
		Args: cobra.NoArgs,
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

			flags := cmd.Flags()
			for _, f := range []struct {
				name  string
				field app.Field
				value string
			}{
				{"city", app.FieldCity, city},
				{"date", app.FieldDate, date},
				{"time", app.FieldTimeOfDay, timeOfDay},
				{"comment", app.FieldComment, comment},
			} {
				if flags.Changed(f.name) {
					env.session.SetField(f.field, f.value)
				}
			}

			resp, err := env.session.Submit(ctx)
			if err != nil {
				return fmt.Errorf("%s (%w)", app.FailureMessage(err), err)
			}

			if err := writeStory(cmd.OutOrStdout(), *resp, env.client.AudioURL(resp.AudioURL), env.prefs.Dark(), format); err != nil {
				return err
			}

			if save {
				entry, err := env.session.Save(ctx)
				if err != nil {
					return fmt.Errorf("failed to save story: %w", err)
				}
				logging.Get(logging.CategoryHistory).Info("story saved", zap.String("date", entry.Date()))
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved under %s\n", entry.Date())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "Destination city")
	cmd.Flags().StringVar(&date, "date", "", "Travel date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "Time of day")
	cmd.Flags().StringVar(&comment, "comment", "", "Free-text wishes for the story")
	cmd.Flags().BoolVar(&save, "save", false, "Save the story under its date")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, markdown or json")
	return cmd
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatMarkdown, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q (valid: text, markdown, json)", format)
	}
}

// writeStory prints resp in the requested format. audioURL is the resolved
// audio link and may be empty.
func writeStory(w io.Writer, resp story.Response, audioURL string, dark bool, format string) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode story: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatMarkdown:
		out, err := ui.RenderMarkdown(resp, audioURL, dark, renderWidth)
		if err != nil {
			return fmt.Errorf("failed to render story: %w", err)
		}
		_, err = fmt.Fprint(w, out)
		return err
	default:
		_, err := fmt.Fprintln(w, ui.RenderStory(resp, ui.StylesFor(dark), audioURL, renderWidth))
		return err
	}
}
