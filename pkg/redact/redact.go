package redact

import (
	"regexp"
	"sort"
	"strings"

	"github.com/musterhq/muster/pkg/pii"
	"github.com/musterhq/muster/pkg/types"
)

// PlaceholderText is written in place of the body when the source text
// cannot be obtained.
const PlaceholderText = "Unable to retrieve document text for redaction"

// Marker is the replacement token for a removed value.
func Marker(kind types.FindingKind) string {
	return "[REDACTED-" + string(kind) + "]"
}

// Result is the outcome of one redaction pass.
type Result struct {
	Text          string
	ItemsRedacted int
}

// Apply redacts text using the findings list. Already-framed input is
// unwrapped first so a second pass yields an equivalent body.
//
// Span findings carry offsets into the input text, so they go first,
// in reverse start order, before anything shifts the buffer. Label
// rules and the general shapes are position-independent and run after.
func Apply(text string, findings []types.Finding) Result {
	if body, framed := unwrap(text); framed {
		text = body
	}

	var count int

	spans := spanFindings(findings)
	sort.Slice(spans, func(i, j int) bool { return spans[i].Span.Start > spans[j].Span.Start })
	prevEnd := len(text) + 1
	for _, f := range spans {
		s := f.Span
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End || s.End > prevEnd {
			continue
		}
		if strings.Contains(text[s.Start:s.End], "[REDACTED") {
			continue
		}
		text = text[:s.Start] + Marker(f.Kind) + text[s.End:]
		count++
		prevEnd = s.Start
	}

	for _, rule := range pii.LabelRules() {
		var n int
		text, n = replaceCaptured(text, rule.Re, Marker(rule.Kind))
		count += n
	}

	for _, f := range findings {
		if f.FieldName == "" {
			continue
		}
		var n int
		text, n = replaceCaptured(text, fieldRe(f.FieldName), Marker(f.Kind))
		count += n
	}

	for _, rule := range pii.GeneralRules() {
		marker := Marker(rule.Kind)
		text = rule.Re.ReplaceAllStringFunc(text, func(string) string {
			count++
			return marker
		})
	}

	return Result{Text: text, ItemsRedacted: count}
}

func spanFindings(findings []types.Finding) []types.Finding {
	var out []types.Finding
	for _, f := range findings {
		if f.Span != nil {
			out = append(out, f)
		}
	}
	return out
}

// replaceCaptured substitutes capture group 1 of every match with
// marker, walking matches in reverse so offsets stay valid. Values
// that are already nothing but markers are left alone.
func replaceCaptured(text string, re *regexp.Regexp, marker string) (string, int) {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	var count int
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if len(m) < 4 || m[2] < 0 {
			continue
		}
		if fullyRedacted(text[m[2]:m[3]]) {
			continue
		}
		text = text[:m[2]] + marker + text[m[3]:]
		count++
	}
	return text, count
}

var markerRe = regexp.MustCompile(`\[REDACTED-[A-Z_]+\]`)

func fullyRedacted(val string) bool {
	return strings.TrimSpace(markerRe.ReplaceAllString(val, "")) == ""
}

// fieldRe anchors a label so it never matches the kind suffix inside
// a replacement marker (the char before must not be a word char or -).
func fieldRe(field string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\w-])` + regexp.QuoteMeta(field) + `\b[:\s]*([^\n]+)`)
}
