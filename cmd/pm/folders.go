package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nikbrunner/pm/internal/model"
	"github.com/spf13/cobra"
)

func foldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List folders",
		Args:  cobra.NoArgs,
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
			if len(folders) == 0 {
				fmt.Println("No folders yet. Create one with: pm folder add <name>")
				return nil
			}
			for _, f := range folders {
				fmt.Printf("%s  %s (%d prompts)\n", f.ID, f.Name, len(f.Prompts))
			}
			return nil
		},
	}
}

func folderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Create, rename and delete folders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			folder, err := a.folders().AddFolder(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Printf("Added folder %s (%s)\n", folder.Name, folder.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <folderID> <name>",
		Short: "Rename a folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			name := strings.Join(args[1:], " ")
			if err := a.folders().UpdateFolder(cmd.Context(), args[0], name); err != nil {
				return err
			}
			fmt.Printf("Renamed folder to %s\n", name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <folderID>",
		Short: "Delete a folder and its prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.folders().DeleteFolder(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted folder")
			return nil
		},
	})

	return cmd
}

func promptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompts [folderID]",
		Short: "List prompts, optionally of one folder",
		Args:  cobra.MaximumNArgs(1),
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
			if len(args) == 1 {
				i, err := model.FindFolder(folders, args[0])
				if err != nil {
					return err
				}
				folders = folders[i : i+1]
			}

			for _, f := range folders {
				fmt.Printf("%s\n", f.Name)
				if len(f.Prompts) == 0 {
					fmt.Println("  (empty)")
				}
				for _, p := range f.Prompts {
					line := fmt.Sprintf("  %s  %s  %s", p.ID, p.Title, truncate(p.Content, 50))
					if len(p.Tags) > 0 {
						line += "  #" + strings.Join(p.Tags, " #")
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}
}

func promptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Create, edit and delete prompts",
	}
	cmd.AddCommand(promptAddCmd())
	cmd.AddCommand(promptEditCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <folderID> <promptID>",
		Short: "Delete a prompt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.folders().DeletePrompt(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Deleted prompt")
			return nil
		},
	})
	return cmd
}

func promptAddCmd() *cobra.Command {
	var title, content, tags string

	cmd := &cobra.Command{
		Use:   "add <folderID>",
		Short: "Add a prompt to a folder (content \"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			text, err := readContent(content)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			prompt := model.NewPrompt(model.NewPromptParams{
				FolderID: args[0],
				Title:    title,
				Content:  text,
				Tags:     parseTags(tags),
			})
			if err := a.folders().AddPrompt(cmd.Context(), args[0], prompt); err != nil {
				return err
			}
			fmt.Printf("Added prompt %s (%s)\n", prompt.Title, prompt.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "prompt title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "prompt text, \"-\" for stdin")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags")
	return cmd
}

func promptEditCmd() *cobra.Command {
	var title, content, tags string

	cmd := &cobra.Command{
		Use:   "edit <promptID>",
		Short: "Edit a prompt's title, content or tags",
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
			folder, found := s.PromptByID(args[0])
			if found == nil {
				return fmt.Errorf("%w: %s", model.ErrPromptNotFound, args[0])
			}

			prompt := found.Clone()
			prompt.FolderID = folder.ID
			flags := cmd.Flags()
			if flags.Changed("title") {
				prompt.Title = title
			}
			if flags.Changed("content") {
				if prompt.Content, err = readContent(content); err != nil {
					return err
				}
			}
			if flags.Changed("tags") {
				prompt.Tags = parseTags(tags)
			}
			prompt.UpdatedAt = model.NowMillis()

			if err := a.folders().UpdatePrompt(cmd.Context(), prompt); err != nil {
				return err
			}
			fmt.Printf("Updated prompt %s\n", prompt.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "new text, \"-\" for stdin")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags, replaces existing")
	return cmd
}

// readContent returns s, or stdin when s is "-".
func readContent(s string) (string, error) {
	if s != "-" {
		return s, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
