package model

// MergeFolders merges incoming folders into a copy of existing ones.
// Incoming folders reuse an existing folder with the same name; prompts whose
// title and content already exist in the target folder are skipped.
// Returns the merged slice plus added and skipped prompt counts.
func MergeFolders(existing, incoming []Folder) ([]Folder, int, int) {
	merged := CloneFolders(existing)
	added, skipped := 0, 0
	now := NowMillis()

	for _, in := range incoming {
		target := -1
		for i := range merged {
			if merged[i].Name == in.Name {
				target = i
				break
			}
		}

		if target < 0 {
			folder := in.Clone()
			if folder.ID == "" || FolderIndex(merged, folder.ID) >= 0 {
				folder.ID = GenerateID()
			}
			folder.Prompts = []Prompt{}
			if folder.CreatedAt == 0 {
				folder.CreatedAt = now
			}
			folder.UpdatedAt = now
			merged = append(merged, folder)
			target = len(merged) - 1
		}

		f := &merged[target]
		for _, p := range in.Prompts {
			if hasPrompt(f, p) {
				skipped++
				continue
			}
			p = p.Clone()
			if p.ID == "" || f.PromptIndex(p.ID) >= 0 {
				p.ID = GenerateID()
			}
			p.FolderID = f.ID
			f.Prompts = append(f.Prompts, p)
			f.UpdatedAt = now
			added++
		}
	}

	return merged, added, skipped
}

func hasPrompt(f *Folder, p Prompt) bool {
	for _, existing := range f.Prompts {
		if existing.Title == p.Title && existing.Content == p.Content {
			return true
		}
	}
	return false
}
