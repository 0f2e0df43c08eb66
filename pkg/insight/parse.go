package insight

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GuaranteedSections are always present in a parsed artifact. Missing
// ones are created as empty objects so readers never branch on key
// existence.
var GuaranteedSections = []string{
	"executive_intelligence_summary",
	"extracted_profile",
	"market_intelligence",
	"career_recommendations",
	"hidden_strengths_analysis",
	"psychological_preparation",
	"compensation_intelligence",
	"action_oriented_deliverables",
	"transition_timeline",
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	return s
}

// parseArtifact parses raw model output into a JSON object. When a
// straight parse fails it makes one salvage attempt on the substring
// between the first { and the last }.
func parseArtifact(raw string) (map[string]any, error) {
	cleaned := stripFences(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		return obj, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("response carries no JSON object")
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("salvage parse failed: %w", err)
	}
	return obj, nil
}

// normalizeSections fills in any guaranteed section that the model
// left out.
func normalizeSections(artifact map[string]any) {
	for _, section := range GuaranteedSections {
		if _, ok := artifact[section]; !ok {
			if section == "career_recommendations" {
				artifact[section] = []any{}
			} else {
				artifact[section] = map[string]any{}
			}
		}
	}
}
