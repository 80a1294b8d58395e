package exporter

import (
	"fmt"
	"html"
	"strings"

	"github.com/nikbrunner/pm/internal/model"
)

// ExportHTML exports folders to a standalone HTML document.
// Each folder becomes a <section>, each prompt an <article> with its
// content in a <pre> block.
func ExportHTML(folders []model.Folder) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString("<html>\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<title>Prompts</title>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<h1>Prompts</h1>\n")

	for _, folder := range folders {
		writeFolder(&b, folder)
	}

	// Footer
	b.WriteString("</body>\n</html>\n")

	return b.String()
}

// writeFolder writes one folder section with its prompts.
func writeFolder(b *strings.Builder, folder model.Folder) {
	fmt.Fprintf(b, "<section data-folder-id=\"%s\" data-created=\"%d\">\n",
		html.EscapeString(folder.ID), folder.CreatedAt)
	fmt.Fprintf(b, "    <h2>%s</h2>\n", html.EscapeString(folder.Name))

	for _, prompt := range folder.Prompts {
		fmt.Fprintf(b, "    <article data-prompt-id=\"%s\" data-created=\"%d\">\n",
			html.EscapeString(prompt.ID), prompt.CreatedAt)
		fmt.Fprintf(b, "        <h3>%s</h3>\n", html.EscapeString(prompt.Title))

		if len(prompt.Tags) > 0 {
			b.WriteString("        <ul class=\"tags\">")
			for _, tag := range prompt.Tags {
				fmt.Fprintf(b, "<li>%s</li>", html.EscapeString(tag))
			}
			b.WriteString("</ul>\n")
		}

		// The parser drops one newline directly after <pre>, so content
		// starting with a newline survives a round trip.
		fmt.Fprintf(b, "        <pre>\n%s</pre>\n", html.EscapeString(prompt.Content))
		b.WriteString("    </article>\n")
	}

	b.WriteString("</section>\n")
}
