package prompt

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComposer(seed int64) *Composer {
	c := NewComposer("us.anthropic.claude-sonnet-4-20250514-v1:0", rand.New(rand.NewSource(seed)))
	c.now = func() time.Time { return time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestComposeUnknownVariant(t *testing.T) {
	c := newTestComposer(1)
	_, err := c.Compose("no_such_variant", Input{})
	assert.ErrorContains(t, err, "unknown prompt variant")
}

func TestComposePinnedParams(t *testing.T) {
	c := newTestComposer(1)
	cases := map[string]Params{
		VariantComprehensive: {MaxOutputTokens: 8000, Temperature: 0.8, TopP: 0.95},
		VariantLegacyReport:  {MaxOutputTokens: 5000, Temperature: 0.9, TopP: 0.95},
		VariantMeta:          {MaxOutputTokens: 4000, Temperature: 0.8, TopP: 0.9},
		VariantInterviewPrep: {MaxOutputTokens: 4000, Temperature: 0.7, TopP: 0.9},
		VariantSalary:        {MaxOutputTokens: 3000, Temperature: 0.6, TopP: 0.9},
	}
	for name, want := range cases {
		b, err := c.Compose(name, Input{RedactedText: "TEXT"})
		require.NoError(t, err, name)
		assert.Equal(t, want, b.Params, name)
		assert.Equal(t, "us.anthropic.claude-sonnet-4-20250514-v1:0", b.ModelID)
	}
}

func TestComposeComprehensiveCarriesDocument(t *testing.T) {
	c := newTestComposer(7)
	b, err := c.Compose(VariantComprehensive, Input{RedactedText: "BRANCH OF SERVICE: ARMY\n[REDACTED-SSN]"})
	require.NoError(t, err)

	assert.Contains(t, b.UserText, "BRANCH OF SERVICE: ARMY")
	assert.Contains(t, b.UserText, "Q2 2026")
	assert.Contains(t, b.UserText, "May 20, 2026")
	assert.Contains(t, b.UserText, "executive_intelligence_summary")
	assert.NotEmpty(t, b.SystemText)
	assert.False(t, b.Truncated)
}

func TestComposeSeedDeterminism(t *testing.T) {
	in := Input{RedactedText: "SOME TEXT"}

	a1, err := newTestComposer(42).Compose(VariantComprehensive, in)
	require.NoError(t, err)
	a2, err := newTestComposer(42).Compose(VariantComprehensive, in)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestComposeTruncation(t *testing.T) {
	c := newTestComposer(3)
	long := strings.Repeat("A", InputCharLimit+500)

	b, err := c.Compose(VariantComprehensive, Input{RedactedText: long})
	require.NoError(t, err)
	assert.True(t, b.Truncated)
	assert.Contains(t, b.UserText, TruncationNote)
	assert.NotContains(t, b.UserText, strings.Repeat("A", InputCharLimit+1))
}

func TestComposeLegacyUsesProfile(t *testing.T) {
	c := newTestComposer(5)
	b, err := c.Compose(VariantLegacyReport, Input{Profile: map[string]string{
		"service_branch": "ARMY",
		"pay_grade":      "E-6",
		"mos":            "68W",
	}})
	require.NoError(t, err)

	assert.Contains(t, b.UserText, "- Branch: ARMY")
	assert.Contains(t, b.UserText, "- MOS/Specialty: 68W")
	assert.Contains(t, b.UserText, "- Decorations: None listed")
	assert.Contains(t, b.SystemText, "career advisor")
}

func TestComposeInterviewPrepTargets(t *testing.T) {
	c := newTestComposer(9)
	b, err := c.Compose(VariantInterviewPrep, Input{TargetCompany: "Anduril", TargetRole: "Program Manager"})
	require.NoError(t, err)

	assert.Contains(t, b.UserText, "TARGET COMPANY: Anduril")
	assert.Contains(t, b.UserText, "TARGET ROLE: Program Manager")
}

func TestVariantsStableOrder(t *testing.T) {
	assert.Equal(t, []string{
		VariantComprehensive, VariantLegacyReport, VariantMeta,
		VariantInterviewPrep, VariantSalary,
	}, Variants())
}
