package pii

import (
	"context"
	"time"

	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/types"
)

// Detector combines pattern rules, the always-redact defaults, and an
// optional external classifier into one findings list.
type Detector struct {
	classifier Classifier
	timeout    time.Duration
}

// NewDetector builds a detector. classifier may be nil when the
// feature flag is off; timeout bounds the wait on the classifier.
func NewDetector(classifier Classifier, timeout time.Duration) *Detector {
	return &Detector{classifier: classifier, timeout: timeout}
}

// Detect produces the findings for text. degraded reports that the
// classifier was wanted but timed out or failed; the stage still
// completes with the pattern and always-redact findings.
func (d *Detector) Detect(ctx context.Context, text string) (findings []types.Finding, degraded bool) {
	findings = PatternFindings(text)
	findings = append(findings, AlwaysRedactFindings()...)

	if d.classifier != nil {
		extra, err := d.classify(ctx, text)
		if err != nil {
			// Hard classifier failure and timeout take the same
			// path: complete with the defaults and mark the record.
			logger := log.WithComponent("pii")
			logger.Warn().Err(err).Msg("classifier unavailable, using default findings")
			degraded = true
		} else {
			findings = append(findings, extra...)
		}
	}

	for _, f := range findings {
		metrics.PIIFindingsTotal.WithLabelValues(string(f.Source)).Inc()
	}
	return findings, degraded
}

func (d *Detector) classify(ctx context.Context, text string) ([]types.Finding, error) {
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.classifier.DetectEntities(cctx, text)
}
