package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikbrunner/pm/internal/exporter"
	"github.com/nikbrunner/pm/internal/importer"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/state"
	"github.com/spf13/cobra"
)

func settingsCmd() *cobra.Command {
	var theme, language string
	var autoSave bool
	var interval int

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			settings := m.State().Settings
			flags := cmd.Flags()
			changed := false
			if flags.Changed("theme") {
				settings.Theme, changed = theme, true
			}
			if flags.Changed("language") {
				settings.Language, changed = language, true
			}
			if flags.Changed("autosave") {
				settings.AutoSave, changed = autoSave, true
			}
			if flags.Changed("interval") {
				settings.AutoSyncInterval, changed = interval, true
			}

			if changed {
				next, err := m.Dispatch(state.UpdateSettings{Settings: settings})
				if err != nil {
					return err
				}
				if err := m.Save(cmd.Context()); err != nil {
					return fmt.Errorf("save settings: %w", err)
				}
				settings = next.Settings
			}

			fmt.Printf("theme:            %s\n", settings.Theme)
			fmt.Printf("language:         %s\n", settings.Language)
			fmt.Printf("autoSave:         %t\n", settings.AutoSave)
			fmt.Printf("autoSyncInterval: %d min\n", settings.AutoSyncInterval)
			return nil
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "light, dark or system")
	cmd.Flags().StringVar(&language, "language", "", "UI language, e.g. en or zh-CN")
	cmd.Flags().BoolVar(&autoSave, "autosave", true, "save after every change")
	cmd.Flags().IntVar(&interval, "interval", 0, "popular feed refresh interval in minutes (1-60)")
	return cmd
}

func exportCmd() *cobra.Command {
	var asHTML, foldersOnly bool

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export data as a JSON backup or an HTML page (\"-\" for stdout)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath := ""
			if len(args) == 1 {
				outputPath = args[0]
			}
			if outputPath == "" {
				var err error
				outputPath, err = exporter.DefaultBackupPath()
				if err != nil {
					return fmt.Errorf("default export path: %w", err)
				}
				if asHTML {
					outputPath = strings.TrimSuffix(outputPath, ".json") + ".html"
				}
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var data []byte
			switch {
			case asHTML:
				folders, err := a.folders().GetFolders(cmd.Context())
				if err != nil {
					return err
				}
				data = []byte(exporter.ExportHTML(folders))
			case foldersOnly:
				if data, err = a.folders().ExportData(cmd.Context()); err != nil {
					return err
				}
			default:
				m, err := a.manager(cmd.Context())
				if err != nil {
					return err
				}
				data, err = m.Export()
				m.Close()
				if err != nil {
					return err
				}
			}

			if outputPath == "-" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(outputPath, data, 0644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Printf("Exported to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "export folders as an HTML page")
	cmd.Flags().BoolVar(&foldersOnly, "folders", false, "export only the folders")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON backup (replaces data) or an HTML export (merges)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			if isHTML(path) {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open file: %w", err)
				}
				defer file.Close()

				incoming, err := importer.ParseHTML(file)
				if err != nil {
					return fmt.Errorf("parse HTML: %w", err)
				}

				merged, added, skipped := model.MergeFolders(m.State().Folders, incoming)
				if _, err := m.Dispatch(state.SetFolders{Folders: merged}); err != nil {
					return err
				}
				if err := m.Save(cmd.Context()); err != nil {
					return fmt.Errorf("save: %w", err)
				}

				fmt.Printf("Imported %d prompts, %d folders", added, len(incoming))
				if skipped > 0 {
					fmt.Printf(" (%d duplicates skipped)", skipped)
				}
				fmt.Println()
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			if err := m.Import(data); err != nil {
				return err
			}
			if err := m.Save(cmd.Context()); err != nil {
				return fmt.Errorf("save: %w", err)
			}

			s := m.State()
			fmt.Printf("Restored %d folders, %d prompts\n", len(s.Folders), s.PromptCount())
			return nil
		},
	}
}

func isHTML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}
