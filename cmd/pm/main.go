package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nikbrunner/pm/internal/logging"
	"github.com/nikbrunner/pm/internal/popular"
	"github.com/nikbrunner/pm/internal/state"
	"github.com/nikbrunner/pm/internal/storage"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dataPath   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pm",
		Short:         "Prompt manager: folders of reusable AI prompts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/pm/config.json)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "data file, overrides the config's dataPath (\":memory:\" keeps nothing)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(foldersCmd())
	rootCmd.AddCommand(folderCmd())
	rootCmd.AddCommand(promptsCmd())
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(copyCmd())
	rootCmd.AddCommand(popularCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	return rootCmd
}

// app holds what every command opens: config, logging and storage.
type app struct {
	cfg   *storage.Config
	store storage.Storage
}

func openApp() (*app, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = storage.DefaultConfigFilePath()
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
	}

	cfg, err := storage.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	switch dataPath {
	case "":
	case ":memory:":
		cfg.Backend = storage.BackendMemory
	default:
		cfg.DataPath = dataPath
	}

	if err := logging.Init(logging.Config{
		Level: cfg.LogLevel,
		JSON:  cfg.LogJSON,
		File:  cfg.LogFile,
	}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	store, err := storage.OpenStorage(cfg)
	if err != nil {
		logging.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	return &app{cfg: cfg, store: store}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logging.Warn("close storage failed", "error", err)
	}
	logging.Close()
}

func (a *app) folders() *storage.FolderStore {
	return storage.NewFolderStore(a.store)
}

// manager loads the persisted state into a new Manager.
func (a *app) manager(ctx context.Context) (*state.Manager, error) {
	m := state.NewManager(a.store)
	if err := m.Load(ctx); err != nil {
		m.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	return m, nil
}

func (a *app) cache() *popular.Cache {
	return popular.NewCache(a.store, popular.WithDefaultURL(a.cfg.FeedURL))
}

// parseTags splits a comma separated tag list, dropping blanks.
func parseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
