package vault

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// parseFrontmatter extracts YAML frontmatter from markdown content.
// Returns the parsed properties and the byte offset where the body starts.
// If no valid frontmatter is found, returns nil properties and offset 0.
func parseFrontmatter(content string) (map[string]any, int) {
	if !strings.HasPrefix(content, "---") {
		return nil, 0
	}

	// The opening delimiter must be alone on its line.
	rest := content[3:]
	switch {
	case strings.HasPrefix(rest, "\r\n"):
		rest = rest[2:]
	case strings.HasPrefix(rest, "\n"):
		rest = rest[1:]
	default:
		return nil, 0
	}
	yamlStart := len(content) - len(rest)

	// Find the closing "---" at the start of a line.
	var yamlBlock string
	bodyStart := -1
	if strings.HasPrefix(rest, "---") {
		bodyStart = yamlStart + 3
	} else if i := strings.Index(rest, "\n---"); i >= 0 {
		yamlBlock = rest[:i]
		bodyStart = yamlStart + i + len("\n---")
	}
	if bodyStart < 0 {
		return nil, 0
	}
	// Consume the rest of the closing delimiter line.
	if nl := strings.IndexByte(content[bodyStart:], '\n'); nl >= 0 {
		if strings.TrimSpace(content[bodyStart:bodyStart+nl]) != "" {
			return nil, 0
		}
		bodyStart += nl + 1
	} else {
		if strings.TrimSpace(content[bodyStart:]) != "" {
			return nil, 0
		}
		bodyStart = len(content)
	}

	var props map[string]any
	if err := yaml.Unmarshal([]byte(yamlBlock), &props); err != nil {
		return nil, 0
	}

	return props, bodyStart
}

// BodyOffset returns the byte offset where a note's body starts, after any
// frontmatter block. It is 0 when the note has no valid frontmatter.
func BodyOffset(content string) int {
	_, off := parseFrontmatter(content)
	return off
}
