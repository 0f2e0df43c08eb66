package insight

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/musterhq/muster/pkg/prompt"
	"github.com/musterhq/muster/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConverser struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubConverser) Converse(ctx context.Context, b prompt.Bundle) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return s.responses[len(s.responses)-1], nil
}

func newTestGenerator(t *testing.T, conv Converser, extras []string, retryable func(error) bool) (*Generator, store.Store) {
	t.Helper()
	st, err := store.NewBoltStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	composer := prompt.NewComposer("test-model", rand.New(rand.NewSource(1)))
	g := NewGenerator(composer, conv, st, "test-model", extras, retryable)
	g.backoff = time.Millisecond
	g.callTimeout = time.Second
	return g, st
}

const goodResponse = "```json\n" + `{
  "executive_intelligence_summary": {"one_line_positioning": "proven medic leader"},
  "career_recommendations": [{"title": "Physician Assistant"}]
}` + "\n```"

func TestGenerateSuccess(t *testing.T) {
	conv := &stubConverser{responses: []string{goodResponse}}
	g, st := newTestGenerator(t, conv, nil, nil)

	artifact, fallback, err := g.Generate(context.Background(), "doc-1", "BRANCH OF SERVICE: ARMY", nil)
	require.NoError(t, err)
	assert.False(t, fallback)

	for _, section := range GuaranteedSections {
		assert.Contains(t, artifact, section)
	}
	assert.Equal(t, "enhanced_comprehensive", artifact["analysis_method"])
	assert.Equal(t, "test-model", artifact["model_version"])
	assert.NotEmpty(t, artifact["generated_at"])

	stored, err := st.GetInsights("doc-1")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(stored, &decoded))
	assert.Equal(t, "enhanced_comprehensive", decoded["analysis_method"])
}

func TestGenerateSalvagesWrappedJSON(t *testing.T) {
	conv := &stubConverser{responses: []string{
		`Here is the analysis you asked for: {"market_intelligence": {"hot": true}} Hope it helps!`,
	}}
	g, _ := newTestGenerator(t, conv, nil, nil)

	artifact, fallback, err := g.Generate(context.Background(), "doc-2", "TEXT", nil)
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, map[string]any{"hot": true}, artifact["market_intelligence"])
}

func TestGenerateFallbackOnGarbage(t *testing.T) {
	conv := &stubConverser{responses: []string{"I am sorry, I cannot produce JSON today."}}
	g, _ := newTestGenerator(t, conv, nil, nil)

	redacted := "BRANCH OF SERVICE: ARMY\nGRADE, RATE OR RANK: SSG\nPRIMARY SPECIALTY: 68W MEDICAL"
	artifact, fallback, err := g.Generate(context.Background(), "doc-3", redacted, nil)
	require.NoError(t, err)
	assert.True(t, fallback)

	assert.Equal(t, "fallback", artifact["analysis_method"])
	profile, ok := artifact["extracted_profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ARMY", profile["branch"])
	assert.Equal(t, []any{}, artifact["career_recommendations"])
}

func TestGenerateFallbackOnPermanentError(t *testing.T) {
	conv := &stubConverser{errs: []error{errors.New("access denied")}, responses: []string{""}}
	g, _ := newTestGenerator(t, conv, nil, nil)

	_, fallback, err := g.Generate(context.Background(), "doc-4", "TEXT", nil)
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Equal(t, 1, conv.calls, "permanent errors must not be retried")
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	transient := errors.New("throttled")
	conv := &stubConverser{
		errs:      []error{transient, transient, nil},
		responses: []string{"", "", goodResponse},
	}
	g, _ := newTestGenerator(t, conv, nil, func(err error) bool { return errors.Is(err, transient) })

	_, fallback, err := g.Generate(context.Background(), "doc-5", "TEXT", nil)
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, 3, conv.calls)
}

func TestGenerateRetryExhaustionFallsBack(t *testing.T) {
	transient := errors.New("throttled")
	conv := &stubConverser{errs: []error{transient, transient, transient}, responses: []string{""}}
	g, _ := newTestGenerator(t, conv, nil, func(err error) bool { return errors.Is(err, transient) })

	_, fallback, err := g.Generate(context.Background(), "doc-6", "TEXT", nil)
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Equal(t, 3, conv.calls, "two retries after the initial attempt")
}

func TestGenerateExtensionVariants(t *testing.T) {
	conv := &stubConverser{responses: []string{
		goodResponse,
		`{"recommended_analyses": [{"name": "interview preparation", "rank": 1}]}`,
	}}
	g, _ := newTestGenerator(t, conv, []string{prompt.VariantMeta}, nil)

	artifact, _, err := g.Generate(context.Background(), "doc-7", "TEXT", nil)
	require.NoError(t, err)

	ext, ok := artifact["extensions"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, ext, prompt.VariantMeta)
}

func TestGenerateExtensionFailureDoesNotFailStage(t *testing.T) {
	conv := &stubConverser{
		responses: []string{goodResponse, "not json at all"},
	}
	g, _ := newTestGenerator(t, conv, []string{prompt.VariantMeta}, nil)

	artifact, fallback, err := g.Generate(context.Background(), "doc-8", "TEXT", nil)
	require.NoError(t, err)
	assert.False(t, fallback)
	_, hasExt := artifact["extensions"]
	assert.False(t, hasExt)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

func TestParseArtifactRejectsNonObjects(t *testing.T) {
	_, err := parseArtifact("no braces anywhere")
	assert.Error(t, err)

	_, err = parseArtifact("prefix { not json } suffix")
	assert.Error(t, err)
}
