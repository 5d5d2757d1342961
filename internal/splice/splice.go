// Package splice inserts planned templates into a file's line sequence.
package splice

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/origadmin/annotgen/internal/model"
)

// ReasonMalformedIndex is recorded for annotations whose target index falls outside the file.
const ReasonMalformedIndex = "malformed insertion index"

// Dropped captures an annotation that could not be inserted.
type Dropped struct {
	Owner    string
	Position int
	Index    int
	Reason   string
}

// Result holds the spliced lines. Each inserted template occupies exactly one entry,
// which may itself contain newlines.
type Result struct {
	Lines   []string
	Applied int
	Dropped []Dropped
}

// Splice inserts every annotation of set before its target line. Annotations are applied
// in ascending position; each insertion shifts the following original lines by one, and
// later indices are compensated accordingly. The input slice is not modified.
func Splice(lines []string, set *model.AnnotationSet, indentUnit string) *Result {
	out := make([]string, len(lines), len(lines)+set.Len())
	copy(out, lines)

	res := &Result{}
	offset := 0
	for _, a := range set.Sorted() {
		idx := a.Position + offset
		if a.Position < 0 || idx > len(out) {
			slog.Warn("dropping annotation with out-of-range position",
				"owner", a.Owner, "position", a.Position, "lines", len(lines))
			res.Dropped = append(res.Dropped, Dropped{
				Owner:    a.Owner,
				Position: a.Position,
				Index:    idx,
				Reason:   ReasonMalformedIndex,
			})
			continue
		}
		out = slices.Insert(out, idx, Indent(a.Text, indentUnit, a.Indent))
		offset++
		res.Applied++
	}

	res.Lines = out
	return res
}

// Indent prefixes every non-empty line of text with level copies of unit.
func Indent(text, unit string, level int) string {
	if level <= 0 || unit == "" {
		return text
	}
	prefix := strings.Repeat(unit, level)
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
