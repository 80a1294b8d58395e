package exporter

import (
	"strings"
	"testing"

	"github.com/nikbrunner/pm/internal/model"
	"gotest.tools/v3/golden"
)

func TestExportHTML_Empty(t *testing.T) {
	html := ExportHTML(nil)

	// Should have basic structure even when empty
	if !strings.Contains(html, "<!DOCTYPE html>") {
		t.Error("expected DOCTYPE declaration")
	}
	if !strings.Contains(html, "<title>Prompts</title>") {
		t.Error("expected title element")
	}
	if strings.Contains(html, "<section") {
		t.Error("expected no sections")
	}
}

func TestExportHTML_Golden(t *testing.T) {
	folders := []model.Folder{
		{
			ID:        "f1",
			Name:      "Writing",
			CreatedAt: 1700000000000,
			Prompts: []model.Prompt{
				{
					ID:        "p1",
					FolderID:  "f1",
					Title:     "Fix <grammar>",
					Content:   "Fix this & that",
					Tags:      []string{"edit", "en"},
					CreatedAt: 1700000001000,
				},
			},
		},
		{ID: "f2", Name: "Empty", CreatedAt: 1700000002000},
	}

	golden.Assert(t, ExportHTML(folders), "golden/export_html.golden")
}

func TestExportHTML_NoTagList(t *testing.T) {
	folders := []model.Folder{{
		ID:      "f1",
		Name:    "Misc",
		Prompts: []model.Prompt{{ID: "p1", Title: "Untagged", Content: "x"}},
	}}

	html := ExportHTML(folders)

	if strings.Contains(html, `class="tags"`) {
		t.Error("expected no tag list for untagged prompt")
	}
	if !strings.Contains(html, "<h3>Untagged</h3>") {
		t.Error("expected prompt title")
	}
}
