package pii

import (
	"regexp"

	"github.com/musterhq/muster/pkg/types"
)

// General PII shapes. SSN_PLAIN and DOD_ID rely on non-digit
// boundaries so a longer digit run is not carved up.
var generalPatterns = []struct {
	kind types.FindingKind
	re   *regexp.Regexp
}{
	{types.FindingSSN, regexp.MustCompile(`\b\d{3}[-\s]\d{2}[-\s]\d{4}\b`)},
	{types.FindingSSN, regexp.MustCompile(`\b\d{9}\b`)},
	{types.FindingDODID, regexp.MustCompile(`\b\d{10}\b`)},
	{types.FindingPhone, regexp.MustCompile(`\b\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{types.FindingEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{types.FindingOther, regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)},
}

// Structural DD214 patterns, keyed off the field labels the OCR
// stream carries. Each replaces the labelled value, not the label.
var structuralPatterns = []struct {
	kind  types.FindingKind
	field string
	re    *regexp.Regexp
}{
	{types.FindingSSN, "Social Security Number",
		regexp.MustCompile(`(?is)3\.\s*SOCIAL SECURITY NUMBER[:\s]*([^\n]+)`)},
	{types.FindingDateOfBirth, "Date of Birth",
		regexp.MustCompile(`(?is)5\.\s*DATE OF BIRTH[:\s]*([^\n]+)`)},
	{types.FindingAddress, "Home of Record",
		regexp.MustCompile(`(?is)b\.\s*HOME OF RECORD[^\n]*[:\s]*\n?([^\n]+)`)},
	{types.FindingAddress, "Mailing Address After Separation",
		regexp.MustCompile(`(?is)19a\.\s*MAILING ADDRESS AFTER SEPARATION[^\n]*[:\s]*\n?([^\n]+)`)},
	{types.FindingName, "Nearest Relative",
		regexp.MustCompile(`(?is)b\.\s*NEAREST RELATIVE[^\n]*[:\s]*\n?([^\n]+)`)},
}

// alwaysRedactFields are marked as findings even when no pattern
// inside them matched, to guarantee coverage of the sensitive DD214
// boxes.
var alwaysRedactFields = []struct {
	field string
	kind  types.FindingKind
}{
	{"social security number", types.FindingSSN},
	{"ssn", types.FindingSSN},
	{"home of record", types.FindingAddress},
	{"address", types.FindingAddress},
	{"date of birth", types.FindingDateOfBirth},
	{"dob", types.FindingDateOfBirth},
	{"place of birth", types.FindingAddress},
}

// GeneralRule is a free-floating PII shape.
type GeneralRule struct {
	Kind types.FindingKind
	Re   *regexp.Regexp
}

// GeneralRules returns the general shapes in application order.
func GeneralRules() []GeneralRule {
	rules := make([]GeneralRule, 0, len(generalPatterns))
	for _, p := range generalPatterns {
		rules = append(rules, GeneralRule{Kind: p.kind, Re: p.re})
	}
	return rules
}

// LabelRule is a label-anchored rule whose first capture group is the
// value that follows a DD214 field label.
type LabelRule struct {
	Kind  types.FindingKind
	Field string
	Re    *regexp.Regexp
}

// LabelRules returns the DD214 structural rules in application order.
func LabelRules() []LabelRule {
	rules := make([]LabelRule, 0, len(structuralPatterns))
	for _, p := range structuralPatterns {
		rules = append(rules, LabelRule{Kind: p.kind, Field: p.field, Re: p.re})
	}
	return rules
}

// PatternFindings scans text with the general shapes and returns span
// findings in ascending start order.
func PatternFindings(text string) []types.Finding {
	var findings []types.Finding
	for _, p := range generalPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			findings = append(findings, types.Finding{
				Kind:   p.kind,
				Span:   &types.Span{Start: loc[0], End: loc[1]},
				Source: types.SourcePattern,
			})
		}
	}
	return findings
}

// AlwaysRedactFindings is the deterministic default set.
func AlwaysRedactFindings() []types.Finding {
	findings := make([]types.Finding, 0, len(alwaysRedactFields))
	for _, f := range alwaysRedactFields {
		findings = append(findings, types.Finding{
			Kind:      f.kind,
			FieldName: f.field,
			Source:    types.SourceAlwaysRedact,
		})
	}
	return findings
}
