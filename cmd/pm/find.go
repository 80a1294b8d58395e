package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/picker"
	"github.com/nikbrunner/pm/internal/search"
	"github.com/spf13/cobra"
)

func findCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Fuzzy search prompts, pick one and copy it to the clipboard",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			folders, err := a.folders().GetFolders(cmd.Context())
			if err != nil {
				return err
			}

			results := search.FuzzySearchPrompts(folders, query)
			if len(results) == 0 {
				fmt.Printf("No prompts found for '%s'\n", query)
				return nil
			}

			var selected *model.Prompt
			if len(results) == 1 {
				// Single result - select it directly
				selected = results[0].Prompt
			} else {
				p := picker.New(results, query)
				finalModel, err := tea.NewProgram(p).Run()
				if err != nil {
					return fmt.Errorf("run picker: %w", err)
				}
				selected = finalModel.(picker.Picker).SelectedPrompt()
			}

			if selected == nil {
				return nil
			}
			return deliver(*selected, printOnly)
		},
	}

	cmd.Flags().BoolVarP(&printOnly, "print", "p", false, "print the prompt instead of copying it")
	return cmd
}

func copyCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "copy <promptID>",
		Short: "Copy a prompt's content to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			folders, err := a.folders().GetFolders(cmd.Context())
			if err != nil {
				return err
			}
			s := model.AppState{Folders: folders}
			_, p := s.PromptByID(args[0])
			if p == nil {
				return fmt.Errorf("%w: %s", model.ErrPromptNotFound, args[0])
			}
			return deliver(*p, printOnly)
		},
	}

	cmd.Flags().BoolVarP(&printOnly, "print", "p", false, "print the prompt instead of copying it")
	return cmd
}

// deliver copies the prompt content to the clipboard, or prints it.
func deliver(p model.Prompt, printOnly bool) error {
	if printOnly {
		fmt.Println(p.Content)
		return nil
	}
	if err := clipboard.WriteAll(p.Content); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Printf("Copied: %s\n", p.Title)
	return nil
}
