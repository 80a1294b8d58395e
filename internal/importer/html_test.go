package importer_test

import (
	"strings"
	"testing"

	"github.com/nikbrunner/pm/internal/exporter"
	"github.com/nikbrunner/pm/internal/importer"
	"github.com/nikbrunner/pm/internal/model"
)

func TestParseHTML_SingleFolder(t *testing.T) {
	html := `<!DOCTYPE html>
<html><body>
<h1>Prompts</h1>
<section data-folder-id="f1" data-created="1700000000000">
    <h2>Writing</h2>
    <article data-prompt-id="p1" data-created="1700000001000">
        <h3>Summarize</h3>
        <ul class="tags"><li>summary</li><li>short</li></ul>
        <pre>
Summarize the text below.</pre>
    </article>
</section>
</body></html>`

	folders, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(folders) != 1 {
		t.Fatalf("expected 1 folder, got %d", len(folders))
	}

	f := folders[0]
	if f.Name != "Writing" {
		t.Errorf("expected name 'Writing', got %q", f.Name)
	}
	if f.ID == "" || f.ID == "f1" {
		t.Errorf("expected fresh folder ID, got %q", f.ID)
	}
	if f.CreatedAt != 1700000000000 {
		t.Errorf("expected CreatedAt 1700000000000, got %d", f.CreatedAt)
	}

	if len(f.Prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(f.Prompts))
	}

	p := f.Prompts[0]
	if p.Title != "Summarize" {
		t.Errorf("expected title 'Summarize', got %q", p.Title)
	}
	if p.Content != "Summarize the text below." {
		t.Errorf("unexpected content %q", p.Content)
	}
	if p.FolderID != f.ID {
		t.Errorf("expected FolderID %q, got %q", f.ID, p.FolderID)
	}
	if p.ID == "" || p.ID == "p1" {
		t.Errorf("expected fresh prompt ID, got %q", p.ID)
	}
	if p.CreatedAt != 1700000001000 {
		t.Errorf("expected CreatedAt 1700000001000, got %d", p.CreatedAt)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "summary" || p.Tags[1] != "short" {
		t.Errorf("unexpected tags %v", p.Tags)
	}
}

func TestParseHTML_NoSections(t *testing.T) {
	folders, err := importer.ParseHTML(strings.NewReader("<html><body><p>nothing</p></body></html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(folders) != 0 {
		t.Errorf("expected 0 folders, got %d", len(folders))
	}
}

func TestParseHTML_UnnamedSection(t *testing.T) {
	html := `<section><article><h3>A</h3><pre>x</pre></article></section>`

	folders, err := importer.ParseHTML(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(folders) != 1 {
		t.Fatalf("expected 1 folder, got %d", len(folders))
	}
	if folders[0].Name != "Imported" {
		t.Errorf("expected fallback name 'Imported', got %q", folders[0].Name)
	}
}

func TestParseHTML_RoundTrip(t *testing.T) {
	folders := []model.Folder{
		{
			ID:        "f1",
			Name:      "Code & Review",
			CreatedAt: 1700000000000,
			Prompts: []model.Prompt{
				{
					ID:        "p1",
					FolderID:  "f1",
					Title:     "Review <diff>",
					Content:   "\n  Review this:\n\tif a < b && c > d {}\n",
					Tags:      []string{"code"},
					CreatedAt: 1700000001000,
				},
				{
					ID:        "p2",
					FolderID:  "f1",
					Title:     "Plain",
					Content:   "no tags",
					CreatedAt: 1700000002000,
				},
			},
		},
		{ID: "f2", Name: "Empty", CreatedAt: 1700000003000},
	}

	out := exporter.ExportHTML(folders)

	got, err := importer.ParseHTML(strings.NewReader(out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 folders, got %d", len(got))
	}

	if got[0].Name != "Code & Review" {
		t.Errorf("expected name 'Code & Review', got %q", got[0].Name)
	}
	if len(got[0].Prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(got[0].Prompts))
	}

	for i, want := range folders[0].Prompts {
		p := got[0].Prompts[i]
		if p.Title != want.Title {
			t.Errorf("prompt %d: expected title %q, got %q", i, want.Title, p.Title)
		}
		if p.Content != want.Content {
			t.Errorf("prompt %d: expected content %q, got %q", i, want.Content, p.Content)
		}
		if len(p.Tags) != len(want.Tags) {
			t.Errorf("prompt %d: expected tags %v, got %v", i, want.Tags, p.Tags)
		}
		if p.CreatedAt != want.CreatedAt {
			t.Errorf("prompt %d: expected CreatedAt %d, got %d", i, want.CreatedAt, p.CreatedAt)
		}
	}

	if got[1].Name != "Empty" || len(got[1].Prompts) != 0 {
		t.Errorf("expected empty folder 'Empty', got %q with %d prompts", got[1].Name, len(got[1].Prompts))
	}
}
