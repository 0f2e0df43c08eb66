package prompt

import (
	"fmt"
	"strings"
)

type variantSpec struct {
	params Params
	build  func(c *Composer, in Input) (system, user string)
}

var variants = map[string]variantSpec{
	VariantComprehensive: {
		params: Params{MaxOutputTokens: 8000, Temperature: 0.8, TopP: 0.95},
		build:  buildComprehensive,
	},
	VariantLegacyReport: {
		params: Params{MaxOutputTokens: 5000, Temperature: 0.9, TopP: 0.95},
		build:  buildLegacyReport,
	},
	VariantMeta: {
		params: Params{MaxOutputTokens: 4000, Temperature: 0.8, TopP: 0.9},
		build:  buildMeta,
	},
	VariantInterviewPrep: {
		params: Params{MaxOutputTokens: 4000, Temperature: 0.7, TopP: 0.9},
		build:  buildInterviewPrep,
	},
	VariantSalary: {
		params: Params{MaxOutputTokens: 3000, Temperature: 0.6, TopP: 0.9},
		build:  buildSalaryNegotiation,
	},
}

func buildComprehensive(c *Composer, in Input) (string, string) {
	p := c.pickPerspective()
	style := c.pick(narrativeStyles)
	conditions := c.pick(marketConditions)
	path := c.pickCareerPath()
	focus := c.sample(focusAreas, 3)
	tech := c.sample(techCompanies, 3)
	defense := c.sample(defenseContractors, 3)
	consulting := c.sample(consultingFirms, 2)

	system := fmt.Sprintf(`%s.

Your analysis should reflect a %s tone and focus on %s.
Respond with a single JSON object and nothing else.`, p.style, p.tone, p.focus)

	var b strings.Builder
	fmt.Fprintf(&b, `ANALYSIS CONTEXT:
- Date: %s
- Market Quarter: %s
- Current Conditions: %s
- Analysis Perspective: %s
- Narrative Style: %s
- Career Path Focus: %s path (risk: %s, timeline: %s, reward: %s)

PRIMARY FOCUS AREAS FOR THIS ANALYSIS:
1. %s
2. %s
3. %s

REDACTED DD214:
%s

Generate insights that are %s in nature. Recommendations must be
distinctly different from standard transition advice.

MARKET INTELLIGENCE: instead of generic company lists, recommend
specific teams or programs at %s, %s, and %s, plus one veteran-founded
startup.

Position the candidate with the "%s" angle.

Return a JSON object with these top-level sections:
executive_intelligence_summary, extracted_profile, market_intelligence,
career_recommendations, hidden_strengths_analysis,
psychological_preparation, compensation_intelligence,
action_oriented_deliverables, transition_timeline.
`,
		c.analysisDate(), c.quarter(), conditions, p.name, style,
		path.name, path.risk, path.timeline, path.reward,
		focus[0], focus[1], focus[2],
		in.RedactedText, style,
		tech[0], defense[0], consulting[0],
		c.pick(uniqueAngles))
	return system, b.String()
}

func buildLegacyReport(c *Composer, in Input) (string, string) {
	system := "You are a career advisor specializing in military-to-civilian transitions. " +
		"Analyze this veteran's profile and provide actionable career insights. " +
		"Format your response as structured JSON for easy parsing."

	var b strings.Builder
	b.WriteString("VETERAN PROFILE:\n")
	fmt.Fprintf(&b, "- Branch: %s\n", profileLine(in.Profile, "service_branch", "Unknown"))
	fmt.Fprintf(&b, "- Rank: %s\n", profileLine(in.Profile, "rank", "Unknown"))
	fmt.Fprintf(&b, "- MOS/Specialty: %s\n", profileLine(in.Profile, "mos", "Unknown"))
	fmt.Fprintf(&b, "- Pay Grade: %s\n", profileLine(in.Profile, "pay_grade", "Unknown"))
	fmt.Fprintf(&b, "- Character of Service: %s\n", profileLine(in.Profile, "character_of_service", "Unknown"))
	fmt.Fprintf(&b, "- Decorations: %s\n", profileLine(in.Profile, "decorations", "None listed"))
	fmt.Fprintf(&b, "- Military Education: %s\n", profileLine(in.Profile, "military_education", "None listed"))
	b.WriteString(`
Please provide:

1. TOP 5 CIVILIAN CAREER RECOMMENDATIONS
   - Job title, why it's a good match, required additional training,
     expected salary range, growth outlook

2. TRANSFERABLE SKILLS ANALYSIS
   - Top 5 transferable skills and how to translate military
     experience to civilian terms

3. IMMEDIATE ACTION STEPS
   - 3 specific actions to take within 30 days

4. EDUCATION/CERTIFICATION PRIORITIES
   - Most valuable certifications and GI Bill optimization strategy

5. NETWORKING STRATEGY
   - Key industries, professional associations, veteran-friendly
     companies
`)
	return system, b.String()
}

func buildMeta(c *Composer, in Input) (string, string) {
	system := "You are a career strategy reviewer. Given a veteran's profile and " +
		"redacted record, rank which analysis angles would produce the most value " +
		"for them next, and say why. Respond with a single JSON object."

	var b strings.Builder
	fmt.Fprintf(&b, "PROFILE SNAPSHOT:\n- Branch: %s\n- MOS: %s\n- Pay Grade: %s\n\n",
		profileLine(in.Profile, "service_branch", "Unknown"),
		profileLine(in.Profile, "mos", "Unknown"),
		profileLine(in.Profile, "pay_grade", "Unknown"))
	fmt.Fprintf(&b, "REDACTED DD214:\n%s\n\n", in.RedactedText)
	b.WriteString(`Rank the following follow-up analyses for this veteran from most
to least valuable, with a one-paragraph rationale each:
interview preparation, salary negotiation, clearance monetization,
geographic arbitrage, entrepreneurship readiness.

Return JSON: {"recommended_analyses": [{"name", "rank", "rationale"}]}.
`)
	return system, b.String()
}

func buildInterviewPrep(c *Composer, in Input) (string, string) {
	style := c.pick(interviewStyles)

	system := fmt.Sprintf("You are preparing this veteran for interviews using the %s approach. "+
		"Make this feel like insider intelligence, not generic interview prep. "+
		"Respond with a single JSON object.", style)

	var b strings.Builder
	fmt.Fprintf(&b, "TARGET COMPANY: %s\nTARGET ROLE: %s\n\n",
		orUnknown(in.TargetCompany), orUnknown(in.TargetRole))
	fmt.Fprintf(&b, "PROFILE:\n- Branch: %s\n- Rank: %s\n- MOS: %s\n\n",
		profileLine(in.Profile, "service_branch", "Unknown"),
		profileLine(in.Profile, "rank", "Unknown"),
		profileLine(in.Profile, "mos", "Unknown"))
	b.WriteString(`Create a unique interview preparation guide that includes:

1. UNEXPECTED QUESTIONS THEY'LL FACE
   - Questions specific to current market conditions
   - Questions that test for military stereotypes

2. POWER STORIES
   Five versions of their best story, each emphasizing a different
   aspect: leadership under pressure, innovation and adaptation,
   cross-functional collaboration, data-driven decision making,
   ethical dilemma resolution.

3. NEGOTIATION PSYCHOLOGY
   - How to read the room, when to be aggressive vs collaborative.
`)
	return system, b.String()
}

func buildSalaryNegotiation(c *Composer, in Input) (string, string) {
	system := "You are a compensation strategist for transitioning veterans. " +
		"Build a concrete negotiation plan grounded in the profile below. " +
		"Respond with a single JSON object."

	var b strings.Builder
	fmt.Fprintf(&b, "PROFILE:\n- Branch: %s\n- Pay Grade: %s\n- MOS: %s\n- Target Role: %s\n\n",
		profileLine(in.Profile, "service_branch", "Unknown"),
		profileLine(in.Profile, "pay_grade", "Unknown"),
		profileLine(in.Profile, "mos", "Unknown"),
		orUnknown(in.TargetRole))
	b.WriteString(`Provide:
- Market rate bands for their clearance level and specialty
- Total compensation levers beyond base salary
- Three scripted counter-offer responses
- Walk-away criteria
`)
	return system, b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
