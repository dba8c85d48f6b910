package parser

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/skridlevsky/linkattrs/types"
)

var (
	// [[target]] or [[target|alias]]; a leading '!' makes it an embed.
	wikiLinkPattern = regexp.MustCompile(`(!?)\[\[([^\[\]\n]+)\]\]`)

	// [text](target "title") or [text](<target with spaces>). Internal only
	// when target has no scheme.
	mdLinkPattern = regexp.MustCompile(`(!?)\[([^\[\]\n]*)\]\(\s*(?:<([^<>\n]+)>|([^()\s<>]+))` +
		`(?:\s+(?:"[^"\n]*"|'[^'\n]*'|\([^()\n]*\)))?\s*\)`)

	// #tag, #nested/tag. Must be preceded by start of line or whitespace.
	tagPattern = regexp.MustCompile(`(?:^|[\s(])(#[\p{L}\p{N}_/-]+)`)

	schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
	fencePattern  = regexp.MustCompile("^\\s{0,3}(```|~~~)")
)

// ParseLinks returns every internal link in content[start:] in document
// order, duplicates included. Offsets are reported relative to content so
// callers can pass the whole file with start set past the frontmatter.
// Embeds (![[...]]) and links inside code are skipped.
func ParseLinks(content string, start int) []types.LinkCache {
	if start < 0 || start > len(content) {
		return nil
	}
	body := content[start:]
	code := codeRanges(body)
	idx := newLineIndex(content)

	var links []types.LinkCache

	for _, m := range wikiLinkPattern.FindAllStringSubmatchIndex(body, -1) {
		if m[3] > m[2] || inRanges(code, m[0]) {
			continue
		}
		inner := body[m[4]:m[5]]
		target, alias, hasAlias := strings.Cut(inner, "|")
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		display := target
		if hasAlias && strings.TrimSpace(alias) != "" {
			display = strings.TrimSpace(alias)
		}
		links = append(links, types.LinkCache{
			Link:        target,
			Original:    body[m[0]:m[1]],
			DisplayText: display,
			Position:    idx.position(start+m[0], start+m[1]),
		})
	}

	for _, m := range mdLinkPattern.FindAllStringSubmatchIndex(body, -1) {
		if m[3] > m[2] || inRanges(code, m[0]) {
			continue
		}
		var raw string
		if m[6] >= 0 {
			raw = body[m[6]:m[7]]
		} else {
			raw = body[m[8]:m[9]]
		}
		if schemePattern.MatchString(raw) || strings.HasPrefix(raw, "#") {
			continue
		}
		target, err := url.PathUnescape(raw)
		if err != nil {
			target = raw
		}
		display := body[m[4]:m[5]]
		if display == "" {
			display = target
		}
		links = append(links, types.LinkCache{
			Link:        target,
			Original:    body[m[0]:m[1]],
			DisplayText: display,
			Position:    idx.position(start+m[0], start+m[1]),
		})
	}

	sort.SliceStable(links, func(i, j int) bool {
		return links[i].Position.Start.Offset < links[j].Position.Start.Offset
	})
	return links
}

// ParseTags returns every inline #tag in content[start:], in document order.
// Purely numeric tags and tags inside code are skipped.
func ParseTags(content string, start int) []types.TagCache {
	if start < 0 || start > len(content) {
		return nil
	}
	body := content[start:]
	code := codeRanges(body)
	idx := newLineIndex(content)

	var tags []types.TagCache
	for _, m := range tagPattern.FindAllStringSubmatchIndex(body, -1) {
		if inRanges(code, m[2]) {
			continue
		}
		tag := body[m[2]:m[3]]
		if strings.Trim(tag[1:], "0123456789") == "" {
			continue
		}
		tags = append(tags, types.TagCache{
			Tag:      tag,
			Position: idx.position(start+m[2], start+m[3]),
		})
	}
	return tags
}

var (
	fieldPatternsMu sync.Mutex
	fieldPatterns   = map[string]*regexp.Regexp{}
)

// InlineFieldPattern builds the single alternation "(a|b)::(.+)?" used to
// find inline fields. Names are matched literally. Returns nil for no names.
func InlineFieldPattern(names []string) *regexp.Regexp {
	if len(names) == 0 {
		return nil
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	expr := `(` + strings.Join(quoted, "|") + `)::(.+)?`

	fieldPatternsMu.Lock()
	defer fieldPatternsMu.Unlock()
	if re, ok := fieldPatterns[expr]; ok {
		return re
	}
	re := regexp.MustCompile(expr)
	fieldPatterns[expr] = re
	return re
}

// InlineFields scans raw note text for "name:: value" fields. The last
// occurrence of a name wins. A field with nothing after "::" on its line
// is ignored.
func InlineFields(content string, names []string) map[string]string {
	re := InlineFieldPattern(names)
	if re == nil {
		return nil
	}
	fields := make(map[string]string)
	for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
		if m[4] < 0 {
			continue
		}
		fields[content[m[2]:m[3]]] = CleanFieldValue(content[m[4]:m[5]])
	}
	return fields
}

// CleanFieldValue trims a raw inline field value and strips one layer of
// surrounding square brackets: "[[Done]]" becomes "[Done]".
func CleanFieldValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '[' && v[len(v)-1] == ']' {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}

// LinkPath drops any "#heading" or "#^block" subpath from link text.
func LinkPath(linktext string) string {
	p, _, _ := strings.Cut(linktext, "#")
	return p
}

// EditorLinkText reduces the raw text of a live-preview link span
// ("target#heading|alias") to its link path.
func EditorLinkText(text string) string {
	target, _, _ := strings.Cut(text, "|")
	return LinkPath(target)
}

// codeRanges returns [start, end) byte ranges of fenced code blocks and
// inline code spans.
func codeRanges(content string) [][2]int {
	var ranges [][2]int
	offset := 0
	fenceStart := -1
	fence := ""
	for _, line := range strings.SplitAfter(content, "\n") {
		if m := fencePattern.FindStringSubmatch(line); m != nil {
			switch {
			case fenceStart < 0:
				fenceStart, fence = offset, m[1]
			case m[1] == fence:
				ranges = append(ranges, [2]int{fenceStart, offset + len(line)})
				fenceStart = -1
			}
		} else if fenceStart < 0 {
			ranges = append(ranges, inlineCode(line, offset)...)
		}
		offset += len(line)
	}
	if fenceStart >= 0 {
		ranges = append(ranges, [2]int{fenceStart, len(content)})
	}
	return ranges
}

// inlineCode finds `code` spans on a single line.
func inlineCode(line string, base int) [][2]int {
	var ranges [][2]int
	open := -1
	for i := 0; i < len(line); i++ {
		if line[i] != '`' {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		ranges = append(ranges, [2]int{base + open, base + i + 1})
		open = -1
	}
	return ranges
}

func inRanges(ranges [][2]int, off int) bool {
	for _, r := range ranges {
		if off >= r[0] && off < r[1] {
			return true
		}
	}
	return false
}

// lineIndex maps byte offsets to line/column positions.
type lineIndex []int

func newLineIndex(content string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (li lineIndex) loc(off int) types.Loc {
	line := sort.Search(len(li), func(i int) bool { return li[i] > off }) - 1
	if line < 0 {
		line = 0
	}
	return types.Loc{Line: line, Col: off - li[line], Offset: off}
}

func (li lineIndex) position(start, end int) types.Position {
	return types.Position{Start: li.loc(start), End: li.loc(end)}
}
