package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soundtrip/internal/app"
	"soundtrip/internal/client"
	"soundtrip/internal/logging"
)

func newAudioCmd() *cobra.Command {
	audioCmd := &cobra.Command{
		Use:   "audio",
		Short: "Download or regenerate the narrated audio of a saved story",
	}

	var output string
	downloadCmd := &cobra.Command{
		Use:   "download <date>",
		Short: "Download the audio of a saved story to a file",
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

			date := args[0]
			entry, ok := env.history.Get(date)
			if !ok {
				return fmt.Errorf("%w: %s", app.ErrUnknownDate, date)
			}
			if entry.Story.AudioURL == "" {
				return fmt.Errorf("%w: story for %s has no audio (try 'soundtrip audio regen %s')", client.ErrAudioUnavailable, date, date)
			}

			path := output
			if path == "" {
				path = date + ".mp3"
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			n, err := env.client.DownloadAudio(ctx, entry.Story.AudioURL, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(path)
				return err
			}

			logging.Get(logging.CategoryAPI).Info("audio downloaded", zap.String("path", path), zap.Int64("bytes", n))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", n, path)
			return nil
		},
	}
	downloadCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <date>.mp3)")

	regenCmd := &cobra.Command{
		Use:   "regen <date>",
		Short: "Ask the service for new audio and update the saved story",
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

			if err := env.session.Select(args[0]); err != nil {
				return err
			}
			rel, err := env.session.RegenerateAudio(ctx)
			if err != nil {
				return fmt.Errorf("%s (%w)", app.FailureMessage(err), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), env.client.AudioURL(rel))
			return nil
		},
	}

	audioCmd.AddCommand(downloadCmd, regenCmd)
	return audioCmd
}
