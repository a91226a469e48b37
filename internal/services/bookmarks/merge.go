package bookmarks

import "github.com/benvon/smart-bookmarks/internal/models"

// MergedTag is a normalized tag name and the source it will be linked with
type MergedTag struct {
	Name   string
	Source models.TagSource
}

// MergeTags normalizes auto and user tags, drops empties and dedupes in first-seen order
// (auto candidates first). A name the user supplied is linked with source user.
func MergeTags(auto, user []string) []MergedTag {
	index := make(map[string]int, len(auto)+len(user))
	merged := make([]MergedTag, 0, len(auto)+len(user))

	add := func(raw string, source models.TagSource) {
		name := models.NormalizeTagName(raw)
		if name == "" {
			return
		}
		if i, ok := index[name]; ok {
			if source == models.TagSourceUser {
				merged[i].Source = models.TagSourceUser
			}
			return
		}
		index[name] = len(merged)
		merged = append(merged, MergedTag{Name: name, Source: source})
	}

	for _, t := range auto {
		add(t, models.TagSourceAuto)
	}
	for _, t := range user {
		add(t, models.TagSourceUser)
	}
	return merged
}
