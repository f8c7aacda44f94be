// Package cli implements the cobra command tree that fronts the stash
// engine: flag/environment resolution, backend selection, and the
// human-readable and JSON output formats.
package cli

import (
	"fmt"
	"sort"
	"strings"
)

// prettifyField renders one labeled field as a key/value dump: labels
// are Title_Cased on underscore boundaries, left-justified to four past
// the longest label in the record, followed by the rendered value.
func prettifyField(label string, value string, width int) string {
	return fmt.Sprintf("%s%s", padLabel(label, width), value)
}

func padLabel(key string, width int) string {
	label := titleizeKey(key) + ":"
	if len(label) >= width {
		return label + " "
	}
	return label + strings.Repeat(" ", width-len(label))
}

func titleizeKey(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "_")
}

func renderMapping(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
		b.WriteByte(';')
	}
	return b.String()
}

// prettifyDict renders an ordered set of named fields as a dict dump.
// fields must be supplied in display order; mapping-valued fields are
// pre-rendered with renderMapping by the caller.
func prettifyDict(fields []fieldEntry) string {
	width := 0
	for _, f := range fields {
		if l := len(f.Key); l > width {
			width = l
		}
	}
	width += 4

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(prettifyField(f.Key, f.Value, width))
	}
	return b.String()
}

type fieldEntry struct {
	Key   string
	Value string
}

// prettifyList renders a list of names as a bulleted block, one line
// per entry.
func prettifyList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  - ")
		b.WriteString(item)
	}
	return b.String()
}
