package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikbrunner/pm/internal/logging"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/popular"
	"github.com/nikbrunner/pm/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			m, err := a.manager(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					logging.Error("final save failed", "error", err)
				}
			}()

			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			cache := a.cache()
			poller := popular.NewPoller(cache, func() int {
				return m.State().Settings.AutoSyncInterval
			})
			poller.OnRefresh(func(resp model.PromptsResponse) {
				logging.Info("popular prompts refreshed", "prompts", len(resp.Prompts))
			})
			poller.Start()
			defer poller.Stop()

			srv := server.New(m, cache, nil)
			errc := make(chan error, 1)
			go func() {
				errc <- srv.Start(addr)
			}()
			fmt.Printf("Listening on http://%s\n", addr)

			select {
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errc
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	return cmd
}
