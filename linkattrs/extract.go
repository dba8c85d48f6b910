package linkattrs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skridlevsky/linkattrs/backend"
	"github.com/skridlevsky/linkattrs/parser"
	"github.com/skridlevsky/linkattrs/types"
	"github.com/skridlevsky/linkattrs/vault"
)

// Props maps attribute keys to values. Each key becomes a data-link-<key>
// attribute.
type Props map[string]string

// Synthetic keys added next to the configured attributes.
const (
	TagsKey     = "tags"
	DataHrefKey = "data-href"
)

// FetchTargetAttributes builds the metadata mapping of dest. Frontmatter
// values of the configured attributes are read first; inline "name:: value"
// fields override them when enabled. TagsKey holds the space-joined tags
// when enabled. DataHrefKey holds dest's basename when addDataHref is set,
// for surfaces whose text is a file name rather than a link path.
//
// A note without cached metadata yields an empty mapping. Reading the raw
// note text is the only step that can fail.
func FetchTargetAttributes(ctx context.Context, v backend.Vault, s types.Settings, dest types.File, addDataHref bool) (Props, error) {
	props := make(Props)
	cache := v.GetFileCache(dest)
	if cache == nil {
		return props, nil
	}

	for _, name := range s.TargetAttributes {
		if val, ok := cache.Frontmatter[name]; ok {
			props[name] = stringify(val)
		}
	}

	if s.GetFromInlineField && len(s.TargetAttributes) > 0 {
		text, err := v.CachedRead(ctx, dest)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dest.Path, err)
		}
		for name, val := range parser.InlineFields(text, s.TargetAttributes) {
			props[name] = val
		}
	}

	if s.TargetTags {
		props[TagsKey] = strings.Join(vault.GetAllTags(cache), " ")
	}

	if addDataHref {
		props[DataHrefKey] = dest.Basename
	}
	return props, nil
}

// stringify renders a frontmatter value as an attribute value. Lists are
// joined with commas, dates are written as YYYY-MM-DD and objects as JSON.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			if item != nil {
				parts[i] = stringify(item)
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}
