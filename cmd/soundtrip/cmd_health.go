package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"soundtrip/internal/app"
	"soundtrip/internal/client"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the story service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			c := client.NewFromConfig(cfg)
			status, err := c.Health(ctx)
			if err != nil {
				return fmt.Errorf("%s: %s (%w)", c.BaseURL(), app.FailureMessage(err), err)
			}
			if !status.OK {
				return errors.New(c.BaseURL() + ": service reported not ok")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ok (%s)\n", c.BaseURL(), status.TS)
			return nil
		},
	}
}
