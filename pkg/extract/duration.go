package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// ExperienceTier buckets total months of service.
type ExperienceTier string

const (
	TierEntry  ExperienceTier = "entry"
	TierJunior ExperienceTier = "junior"
	TierMid    ExperienceTier = "mid-level"
	TierSenior ExperienceTier = "senior"
	TierExpert ExperienceTier = "expert"
)

var (
	yearsRe  = regexp.MustCompile(`(?i)(\d+)\s*year`)
	monthsRe = regexp.MustCompile(`(?i)(\d+)\s*month`)
)

// ServiceMonths parses a concatenated duration string ("4 years, 3
// months") into total months. An absent group contributes zero.
func ServiceMonths(duration string) int {
	total := 0
	if m := yearsRe.FindStringSubmatch(duration); m != nil {
		years, _ := strconv.Atoi(m[1])
		total += years * 12
	}
	if m := monthsRe.FindStringSubmatch(duration); m != nil {
		months, _ := strconv.Atoi(m[1])
		total += months
	}
	return total
}

// TierForMonths classifies total service months.
func TierForMonths(months int) ExperienceTier {
	switch {
	case months < 24:
		return TierEntry
	case months < 48:
		return TierJunior
	case months < 96:
		return TierMid
	case months < 144:
		return TierSenior
	default:
		return TierExpert
	}
}

// LeadershipTier maps a pay grade to the civilian-facing leadership
// band used in prompt context and the fallback profile.
func LeadershipTier(payGrade string) string {
	grade := strings.ToUpper(strings.ReplaceAll(payGrade, "-", ""))
	switch {
	case grade == "":
		return ""
	case grade >= "E1" && grade <= "E4":
		return "individual contributor"
	case grade == "E5" || grade == "E6":
		return "team leader"
	case grade >= "E7" && grade <= "E9":
		return "senior leader"
	case strings.HasPrefix(grade, "W"):
		return "technical expert"
	case grade == "O1" || grade == "O2" || grade == "O3":
		return "junior officer"
	case strings.HasPrefix(grade, "O"):
		return "senior officer"
	default:
		return ""
	}
}

// InferClearance guesses a likely security clearance from the
// specialty code and free text. Intelligence and special operations
// codes imply Top Secret work; signal codes imply Secret.
func InferClearance(mos, text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "ts/sci"):
		return "TS/SCI"
	case strings.Contains(lower, "top secret"):
		return "Top Secret"
	case strings.Contains(lower, "secret"):
		return "Secret"
	}
	switch {
	case strings.HasPrefix(mos, "18"), strings.HasPrefix(mos, "35"):
		return "Top Secret likely"
	case strings.HasPrefix(mos, "25"):
		return "Secret likely"
	}
	return ""
}
