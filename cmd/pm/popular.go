package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/nikbrunner/pm/internal/model"
	"github.com/nikbrunner/pm/internal/search"
	"github.com/spf13/cobra"
)

func popularCmd() *cobra.Command {
	var refresh bool
	var category, query string

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "Browse the curated prompt feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			cache := a.cache()
			feed := cache.Fetch(cmd.Context(), refresh)
			filtered := search.FilterPopular(feed, category, query)

			fmt.Printf("Categories: %s\n", strings.Join(feed.Categories, ", "))
			if last, ok := cache.LastUpdate(cmd.Context()); ok {
				fmt.Printf("Updated: %s\n", last.Format(time.DateTime))
			}
			fmt.Println()

			if len(filtered.Prompts) == 0 {
				fmt.Println("No matching prompts.")
				return nil
			}
			for _, p := range filtered.Prompts {
				fmt.Printf("%s  [%s] %s\n", p.ID, p.Category, p.Title)
				fmt.Printf("    %s\n", truncate(p.Content, 70))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "fetch from the network instead of the cache")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by title, content or tag")

	cmd.AddCommand(popularAddCmd())
	cmd.AddCommand(popularURLCmd())
	return cmd
}

func popularAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <popularID> <folderID>",
		Short: "Copy a curated prompt into one of your folders",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			feed := a.cache().Fetch(cmd.Context(), false)
			pp := feed.PopularByID(args[0])
			if pp == nil {
				return fmt.Errorf("popular prompt %s not found", args[0])
			}

			prompt := model.PromptFromPopular(*pp, args[1])
			if err := a.folders().AddPrompt(cmd.Context(), args[1], prompt); err != nil {
				return err
			}
			fmt.Printf("Added %s to folder (%s)\n", prompt.Title, prompt.ID)
			return nil
		},
	}
}

func popularURLCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "url [url]",
		Short: "Show or override the feed URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			cache := a.cache()
			switch {
			case reset:
				if err := cache.SetCustomURL(cmd.Context(), ""); err != nil {
					return err
				}
			case len(args) == 1:
				if err := cache.SetCustomURL(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			fmt.Println(cache.FeedURL(cmd.Context()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "go back to the default feed")
	return cmd
}
