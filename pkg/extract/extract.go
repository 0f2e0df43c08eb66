package extract

import (
	"regexp"
	"strings"

	"github.com/musterhq/muster/pkg/ocr"
	"github.com/musterhq/muster/pkg/types"
)

// fieldRule is one target field with its ordered pattern list. The
// first pattern whose first capture group matches wins.
type fieldRule struct {
	field    string
	patterns []*regexp.Regexp
}

// Patterns are label-anchored against the newline-joined LINE buffer.
// OCR output puts a value either after the label on the same line
// (separated by a colon) or alone on the following line, so most
// fields carry both variants. Same-line patterns require the colon;
// without it the tail of a long label would be captured as the value.
var fieldRules = []fieldRule{
	{"name", []*regexp.Regexp{
		regexp.MustCompile(`(?im)^1?\.?\s*NAME\b[^\n]*?:\s*([A-Z][A-Za-z ,.'-]+?)\s*$`),
		regexp.MustCompile(`(?im)NAME \(Last, First, Middle\)[^\n]*\n([A-Z][A-Za-z ,.'-]+)`),
	}},
	{"ssn", []*regexp.Regexp{
		regexp.MustCompile(`(?im)SOCIAL SECURITY NUM[A-Z]*[^\n]*?(\d{3}[-\s]?\d{2}[-\s]?\d{4})`),
		regexp.MustCompile(`(?im)SOCIAL SECURITY NUM[A-Z]*[^\n]*\n[^\n]*?(\d{3}[-\s]?\d{2}[-\s]?\d{4})`),
		regexp.MustCompile(`(?im)\bSSN\b[^\n]*?(\d{3}[-\s]?\d{2}[-\s]?\d{4})`),
	}},
	{"branch", []*regexp.Regexp{
		regexp.MustCompile(`(?im)BRANCH OF SERVICE[^\n]*?:\s*([A-Za-z ]+?)\s*$`),
		regexp.MustCompile(`(?im)BRANCH OF SERVICE[^\n]*\n([A-Za-z ]+?)\s*$`),
	}},
	{"grade_rate_rank", []*regexp.Regexp{
		regexp.MustCompile(`(?im)GRADE,?\s*RATE OR RANK[^\n]*?:\s*([A-Z0-9 -]+?)\s*$`),
		regexp.MustCompile(`(?im)GRADE,?\s*RATE OR RANK[^\n]*\n([A-Z0-9 -]+?)\s*$`),
	}},
	{"pay_grade", []*regexp.Regexp{
		regexp.MustCompile(`(?im)PAY GRADE[^\n]*?\b([EWO]-?\d{1,2})\b`),
		regexp.MustCompile(`(?im)PAY GRADE[^\n]*\n[^\n]*?\b([EWO]-?\d{1,2})\b`),
		regexp.MustCompile(`\b([EWO]-\d{1,2})\b`),
	}},
	{"home_of_record", []*regexp.Regexp{
		regexp.MustCompile(`(?im)HOME OF RECORD[^\n]*?:\s*([^\n]+?)\s*$`),
		regexp.MustCompile(`(?im)HOME OF RECORD[^\n]*\n([^\n]+?)\s*$`),
	}},
	{"last_duty", []*regexp.Regexp{
		regexp.MustCompile(`(?im)LAST DUTY ASSIGNMENT[^\n]*?:\s*([^\n]+?)\s*$`),
		regexp.MustCompile(`(?im)LAST DUTY ASSIGNMENT[^\n]*\n([^\n]+?)\s*$`),
	}},
	{"primary_specialty", []*regexp.Regexp{
		regexp.MustCompile(`(?im)PRIMARY SPECIALTY[^\n]*?:\s*([^\n]+?)\s*$`),
		regexp.MustCompile(`(?im)PRIMARY SPECIALTY[^\n]*\n([^\n]+?)\s*$`),
	}},
	{"service_start", []*regexp.Regexp{
		regexp.MustCompile(`(?im)DATE ENTERED (?:AD|ACTIVE DUTY)[^\n]*?:?\s*([0-9]{2,4}[ /-][A-Za-z0-9]{2,3}[ /-][0-9]{2,4})`),
		regexp.MustCompile(`(?im)DATE ENTERED (?:AD|ACTIVE DUTY)[^\n]*\n([0-9]{2,4}[ /-][A-Za-z0-9]{2,3}[ /-][0-9]{2,4})`),
	}},
	{"service_end", []*regexp.Regexp{
		regexp.MustCompile(`(?im)SEPARATION DATE[^\n]*?:?\s*([0-9]{2,4}[ /-][A-Za-z0-9]{2,3}[ /-][0-9]{2,4})`),
		regexp.MustCompile(`(?im)DATE OF SEPARATION[^\n]*?:?\s*([0-9]{2,4}[ /-][A-Za-z0-9]{2,3}[ /-][0-9]{2,4})`),
		regexp.MustCompile(`(?im)SEPARATION DATE[^\n]*\n([0-9]{2,4}[ /-][A-Za-z0-9]{2,3}[ /-][0-9]{2,4})`),
	}},
	{"foreign_service", []*regexp.Regexp{
		regexp.MustCompile(`(?im)FOREIGN SERVICE[^\n]*?:\s*([0-9 ]+?)\s*$`),
		regexp.MustCompile(`(?im)FOREIGN SERVICE[^\n]*\n([0-9 ]+?)\s*$`),
	}},
	{"decorations", []*regexp.Regexp{
		regexp.MustCompile(`(?im)DECORATIONS,?\s*MEDALS[^\n]*?:\s*([^\n]+?)\s*$`),
		regexp.MustCompile(`(?im)DECORATIONS,?\s*MEDALS[^\n]*\n([^\n]+?)\s*$`),
	}},
	{"education", []*regexp.Regexp{
		regexp.MustCompile(`(?im)^(?:14\.?\s*)?(?:MILITARY )?EDUCATION[^\n]*?:\s*([^\n]+?)\s*$`),
	}},
	{"military_education", []*regexp.Regexp{
		regexp.MustCompile(`(?im)MILITARY EDUCATION[^\n]*?:\s*([^\n]+?)\s*$`),
		regexp.MustCompile(`(?im)MILITARY EDUCATION[^\n]*\n([^\n]+?)\s*$`),
	}},
	{"discharge_type", []*regexp.Regexp{
		regexp.MustCompile(`(?im)TYPE OF SEPARATION[^\n]*?:\s*([^\n]+?)\s*$`),
		regexp.MustCompile(`(?im)TYPE OF SEPARATION[^\n]*\n([^\n]+?)\s*$`),
	}},
	{"character_of_service", []*regexp.Regexp{
		regexp.MustCompile(`(?im)CHARACTER OF SERVICE[^\n]*?:\s*([^\n]+?)\s*$`),
		regexp.MustCompile(`(?im)CHARACTER OF SERVICE[^\n]*\n([^\n]+?)\s*$`),
	}},
	{"separation_code", []*regexp.Regexp{
		regexp.MustCompile(`(?im)SEPARATION CODE[^\n]*?:\s*([A-Z0-9]{2,4})\b`),
		regexp.MustCompile(`(?im)SEPARATION CODE[^\n]*\n([A-Z0-9]{2,4})\b`),
	}},
	{"reentry_code", []*regexp.Regexp{
		regexp.MustCompile(`(?im)RE(?:ENTRY)? CODE[^\n]*?:\s*([A-Z0-9-]{1,4})\b`),
		regexp.MustCompile(`(?im)RE(?:ENTRY)? CODE[^\n]*\n([A-Z0-9-]{1,4})\b`),
	}},
}

// serviceBranchRe is the closed vocabulary match for service_branch.
var serviceBranchRe = regexp.MustCompile(`(?i)\b(ARMY|NAVY|AIR FORCE|MARINE CORPS|COAST GUARD|SPACE FORCE)\b`)

// rankRe matches enlisted and officer rank abbreviations.
var rankRe = regexp.MustCompile(`\b(PVT|PV2|PFC|SPC|CPL|SGT|SSG|SFC|MSG|1SG|SGM|CSM|SMA|` +
	`2LT|1LT|CPT|MAJ|LTC|COL|BG|MG|LTG|GEN|` +
	`WO1|CW2|CW3|CW4|CW5|` +
	`SR|SA|SN|PO3|PO2|PO1|CPO|SCPO|MCPO|` +
	`AB|AMN|A1C|SRA|SSGT|TSGT|MSGT|SMSGT|CMSGT|` +
	`PVT|LCPL|GYSGT|MSGT|MGYSGT|SGTMAJ)\b`)

// MOS code shapes, tried in order: Army (11B, 68W, 25B2), special
// operations series (18D), AFSC (1N071 falls to the numeric rule 3D1X2
// style is covered by armyMOSRe), bare 4-digit officer codes, and
// two-letter Navy rates.
var (
	armyMOSRe   = regexp.MustCompile(`\b(\d{2}[A-Z]\d*)\b`)
	seriesMOSRe = regexp.MustCompile(`\b(\d[A-Z]\d[A-Z]\d)\b`)
	afscMOSRe   = regexp.MustCompile(`\b(\d{4})\b`)
	navyRateRe  = regexp.MustCompile(`\b([A-Z]{2})\b`)
)

// Fields runs the extraction table over the ordered LINE blocks.
// It never fails: unmatched fields are simply absent.
func Fields(blocks []types.Block) map[string]string {
	return FromText(ocr.PlainText(blocks))
}

// FromText runs the extraction table over an already-joined buffer.
// Repeated invocations on the same buffer return identical maps.
func FromText(text string) map[string]string {
	fields := make(map[string]string)

	for _, rule := range fieldRules {
		for _, p := range rule.patterns {
			m := p.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			v := strings.TrimSpace(m[1])
			if v == "" {
				continue
			}
			fields[rule.field] = v
			break
		}
	}

	if m := serviceBranchRe.FindStringSubmatch(text); m != nil {
		fields["service_branch"] = strings.ToUpper(m[1])
	}
	if m := rankRe.FindStringSubmatch(text); m != nil {
		fields["rank"] = m[1]
	}
	if mos := matchMOS(text); mos != "" {
		fields["mos"] = mos
	}

	return fields
}

// matchMOS tries the specialty code shapes in declared order. The
// two-letter Navy rate shape is suppressed whenever an Army-style
// code is present in the buffer, so a stray letter pair cannot shadow
// a correct specialty.
func matchMOS(text string) string {
	if m := armyMOSRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := seriesMOSRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := afscMOSRe.FindStringSubmatch(text); m != nil {
		// Reject shapes that are really years or ZIP fragments.
		if !looksLikeYear(m[1]) {
			return m[1]
		}
	}
	if m := navyRateRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func looksLikeYear(s string) bool {
	return len(s) == 4 && (strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20"))
}
