package vault

import (
	"fmt"
	"strings"

	"github.com/skridlevsky/linkattrs/types"
)

// GetAllTags aggregates a note's tags: frontmatter "tags"/"tag" first, then
// inline #tags in document order. Tags are returned without '#' and each
// appears once, at its first position.
func GetAllTags(cache *types.FileCache) []string {
	if cache == nil {
		return nil
	}
	var tags []string
	seen := make(map[string]bool)
	add := func(t string) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		tags = append(tags, t)
	}

	for _, t := range frontmatterList(cache.Frontmatter, "tags", "tag") {
		add(t)
	}
	for _, t := range cache.Tags {
		add(t.Tag)
	}
	return tags
}

// frontmatterList reads the first present key as a list of strings.
// Scalar strings are split on commas and whitespace ("a, b c").
func frontmatterList(fm map[string]any, keys ...string) []string {
	if fm == nil {
		return nil
	}
	for _, key := range keys {
		v, ok := fm[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case []any:
			out := make([]string, 0, len(val))
			for _, item := range val {
				if item == nil {
					continue
				}
				out = append(out, fmt.Sprint(item))
			}
			return out
		case string:
			if key == "aliases" || key == "alias" {
				return splitList(val, ",")
			}
			return splitList(val, ", \t")
		default:
			return []string{fmt.Sprint(val)}
		}
	}
	return nil
}

func splitList(s, seps string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	}) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
