package prompt

import "fmt"

// Rotation pools. Sampling is confined to this file so every other
// stage of the pipeline stays deterministic under test.

type perspective struct {
	name  string
	style string
	focus string
	tone  string
}

var perspectives = []perspective{
	{
		name:  "Executive Strategist",
		style: "You are a former Fortune 500 CEO who now specializes in placing veterans in C-suite roles",
		focus: "executive potential, leadership transformation, board-level thinking",
		tone:  "authoritative, strategic, visionary",
	},
	{
		name:  "Tech Innovator",
		style: "You are a Silicon Valley veteran entrepreneur who's built 3 unicorns with military co-founders",
		focus: "startup opportunities, tech transformation, innovation potential",
		tone:  "energetic, disruptive, future-focused",
	},
	{
		name:  "Compensation Architect",
		style: "You are a compensation specialist who's negotiated $500M in veteran packages",
		focus: "maximizing total compensation, hidden benefits, wealth building",
		tone:  "analytical, precise, wealth-focused",
	},
	{
		name:  "Network Orchestrator",
		style: "You are a master networker who connects veterans to power brokers",
		focus: "relationship building, hidden opportunities, insider connections",
		tone:  "connected, insider-knowledge, relationship-focused",
	},
	{
		name:  "Risk Analyst",
		style: "You are a career risk analyst who helps veterans avoid transition pitfalls",
		focus: "avoiding career mistakes, risk mitigation, future-proofing",
		tone:  "cautious, analytical, protective",
	},
}

var narrativeStyles = []string{
	"data-driven", "story-based", "motivational", "tactical", "strategic",
	"cautionary", "aggressive", "conservative", "entrepreneurial", "analytical",
}

var marketConditions = []string{
	"Hot market: Defense tech funding at all-time high with $15B invested last quarter",
	"Cooling market: Big Tech hiring freezes creating opportunities in mid-market",
	"Transitional period: Traditional contractors losing talent to startups",
	"Boom cycle: Cybersecurity roles up 45% due to recent breaches",
	"Competitive landscape: Average time-to-hire down to 21 days - move fast",
	"Talent shortage: Companies dropping degree requirements for cleared professionals",
}

type careerPath struct {
	name     string
	timeline string
	risk     string
	reward   string
}

var careerPaths = []careerPath{
	{"traditional", "2-3 years to senior role", "Low", "Steady growth, good benefits"},
	{"aggressive", "6-12 months to leadership", "High", "Equity upside, rapid advancement"},
	{"entrepreneurial", "Immediate start, 18-month runway", "Very High", "Unlimited potential, full control"},
	{"hybrid", "Dual track from day one", "Medium", "Multiple income streams"},
	{"contract", "Immediate high income", "Medium", "$200-400/hour potential"},
}

var focusAreas = []string{
	"compensation optimization", "rapid career acceleration", "executive track positioning",
	"entrepreneurial opportunities", "work-life balance", "geographic arbitrage",
	"clearance monetization", "skill gap analysis", "network building", "personal branding",
}

var techCompanies = []string{
	"Microsoft", "Amazon", "Google", "Palantir", "Anduril", "Shield AI",
	"Scale AI", "Snowflake", "Databricks", "GitLab", "Cloudflare",
}

var defenseContractors = []string{
	"Lockheed Martin", "Raytheon", "Northrop Grumman", "General Dynamics",
	"L3Harris", "CACI", "Booz Allen Hamilton", "Leidos", "Peraton", "BAE Systems",
}

var consultingFirms = []string{
	"McKinsey", "BCG", "Bain", "Deloitte", "Accenture", "PwC", "EY", "KPMG",
}

var uniqueAngles = []string{
	"Combat-tested innovation catalyst",
	"Classified-to-commercial translator",
	"Operational excellence architect",
	"Crisis leadership specialist",
	"Global security strategist",
	"Resilience engineering expert",
	"High-stakes decision authority",
	"Cross-cultural operations master",
	"Rapid deployment specialist",
	"Zero-failure systems designer",
}

var interviewStyles = []string{
	"STAR method", "Case study approach", "Behavioral deep dive",
	"Technical assessment prep", "Executive presence coaching",
}

func (c *Composer) pick(pool []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pool[c.rng.Intn(len(pool))]
}

func (c *Composer) pickPerspective() perspective {
	c.mu.Lock()
	defer c.mu.Unlock()
	return perspectives[c.rng.Intn(len(perspectives))]
}

func (c *Composer) pickCareerPath() careerPath {
	c.mu.Lock()
	defer c.mu.Unlock()
	return careerPaths[c.rng.Intn(len(careerPaths))]
}

// sample draws n distinct entries from pool.
func (c *Composer) sample(pool []string, n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.rng.Perm(len(pool))
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = pool[idx[i]]
	}
	return out
}

func (c *Composer) quarter() string {
	now := c.now()
	return fmt.Sprintf("Q%d %d", (int(now.Month())-1)/3+1, now.Year())
}

func (c *Composer) analysisDate() string {
	return c.now().Format("January 2, 2006")
}
