package importer

import (
	"io"
	"strconv"
	"strings"

	"github.com/nikbrunner/pm/internal/model"
	"golang.org/x/net/html"
)

// ParseHTML parses a prompt HTML export and returns its folders.
// Folders and prompts get fresh IDs; data-created timestamps are kept.
func ParseHTML(r io.Reader) ([]model.Folder, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	folders := []model.Folder{}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "section" {
			folders = append(folders, parseSection(n))
			return // Sections don't nest
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return folders, nil
}

// parseSection turns a <section> into a folder with its <article> prompts.
func parseSection(n *html.Node) model.Folder {
	folder := model.NewFolder(model.NewFolderParams{})
	if ts := parseMillis(getAttr(n, "data-created")); ts > 0 {
		folder.CreatedAt = ts
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h2":
				if folder.Name == "" {
					folder.Name = getTextContent(n)
				}
				return
			case "article":
				folder.Prompts = append(folder.Prompts, parseArticle(n, folder.ID))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}

	if folder.Name == "" {
		folder.Name = "Imported"
	}
	return folder
}

// parseArticle turns an <article> into a prompt.
func parseArticle(n *html.Node, folderID string) model.Prompt {
	prompt := model.NewPrompt(model.NewPromptParams{FolderID: folderID})
	if ts := parseMillis(getAttr(n, "data-created")); ts > 0 {
		prompt.CreatedAt = ts
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h3":
				prompt.Title = getTextContent(n)
				return
			case "li":
				if tag := getTextContent(n); tag != "" {
					prompt.Tags = append(prompt.Tags, tag)
				}
				return
			case "pre":
				// Whitespace is significant in prompt content
				prompt.Content = getRawText(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return prompt
}

func parseMillis(s string) int64 {
	if s == "" {
		return 0
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// getRawText returns the untrimmed text content of a node.
func getRawText(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return text.String()
}

// getTextContent returns the trimmed text content of a node.
func getTextContent(n *html.Node) string {
	return strings.TrimSpace(getRawText(n))
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
