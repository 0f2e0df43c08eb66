package prompt

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Canonical variant names. Callers select by name; unknown names are
// an error, never a silent default.
const (
	VariantComprehensive = "dd214_comprehensive"
	VariantLegacyReport  = "legacy_report"
	VariantMeta          = "meta_recommendations"
	VariantInterviewPrep = "interview_prep"
	VariantSalary        = "salary_negotiation"
)

// InputCharLimit caps how much redacted text is interpolated into a
// prompt. Text beyond the cap is cut and the prompt carries
// TruncationNote so the model knows the document is partial.
const (
	InputCharLimit = 20000
	TruncationNote = "[DOCUMENT TRUNCATED FOR LENGTH]"
)

// Params are the pinned inference parameters for one variant.
type Params struct {
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
}

// Input is everything a variant may draw on. Profile holds the
// extracted DD214 fields; Target* feed the coaching variants.
type Input struct {
	RedactedText  string
	Profile       map[string]string
	TargetCompany string
	TargetRole    string
}

// Bundle is a fully composed prompt ready for the transport layer.
type Bundle struct {
	Variant    string
	ModelID    string
	SystemText string
	UserText   string
	Params     Params
	Truncated  bool
}

// Composer builds prompt bundles. It performs no I/O: the only
// non-pure inputs are the clock and the rotation source, both
// injectable for tests.
type Composer struct {
	modelID string
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewComposer builds a composer for modelID. A nil rng gets a
// time-seeded source; tests pass a fixed seed for reproducibility.
func NewComposer(modelID string, rng *rand.Rand) *Composer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Composer{modelID: modelID, now: time.Now, rng: rng}
}

// Compose selects the named variant and builds its bundle.
func (c *Composer) Compose(variant string, in Input) (Bundle, error) {
	v, ok := variants[variant]
	if !ok {
		return Bundle{}, fmt.Errorf("unknown prompt variant %q", variant)
	}

	truncated := false
	if len(in.RedactedText) > InputCharLimit {
		in.RedactedText = in.RedactedText[:InputCharLimit] + "\n" + TruncationNote
		truncated = true
	}

	system, user := v.build(c, in)
	return Bundle{
		Variant:    variant,
		ModelID:    c.modelID,
		SystemText: system,
		UserText:   user,
		Params:     v.params,
		Truncated:  truncated,
	}, nil
}

// Variants lists the registered variant names in stable order.
func Variants() []string {
	return []string{
		VariantComprehensive,
		VariantLegacyReport,
		VariantMeta,
		VariantInterviewPrep,
		VariantSalary,
	}
}

func profileLine(p map[string]string, key, fallback string) string {
	if v, ok := p[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
