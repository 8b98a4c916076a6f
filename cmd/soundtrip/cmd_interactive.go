package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soundtrip/cmd/soundtrip/ui"
	"soundtrip/internal/client"
	"soundtrip/internal/config"
	"soundtrip/internal/logging"
)

// runInteractive starts the full-screen story UI and reloads the client when
// the config file changes.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	env, err := openEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	log := logging.Get(logging.CategoryUI)
	session := env.session

	model := ui.NewModel(ui.Options{
		Context:  ctx,
		Session:  session,
		AudioURL: env.client.AudioURL,
		Reload: func(next *config.Config) func(string) string {
			c := client.NewFromConfig(next)
			session.SetService(c)
			log.Info("story client reloaded", zap.String("api_base", c.BaseURL()))
			return c.AudioURL
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	cfgPath := config.Path(homeDir)
	watcher, err := config.Watch(cfgPath, func(next *config.Config, err error) {
		if err == nil {
			applyFlagOverrides(next)
			err = next.Validate()
		}
		if err != nil {
			logging.Get(logging.CategoryConfig).Warn("config reload failed", zap.Error(err))
			p.Send(ui.ConfigReloadedMsg{Err: err})
			return
		}
		p.Send(ui.ConfigReloadedMsg{Config: next})
	})
	if err != nil {
		// The UI still works without live reload.
		log.Warn("config watch unavailable", zap.String("path", cfgPath), zap.Error(err))
	} else {
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interactive UI failed: %w", err)
	}
	return nil
}
