package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/musterhq/muster/pkg/extract"
	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/prompt"
	"github.com/musterhq/muster/pkg/store"
)

const (
	maxRetries      = 2
	initialBackoff  = 2 * time.Second
	defaultCallTime = 120 * time.Second
)

// Generator runs the insight stage: compose, invoke, parse, persist.
type Generator struct {
	composer  *prompt.Composer
	converser Converser
	store     store.Store
	modelID   string

	// extraVariants run after the primary analysis; their output
	// attaches under extensions.<variant>. Failures there never fail
	// the stage.
	extraVariants []string
	callTimeout   time.Duration
	backoff       time.Duration
	retryable     func(error) bool
	now           func() time.Time
}

// NewGenerator wires the stage. retryable classifies provider errors;
// pass RetryableBedrock or RetryableAnthropic to match the transport.
func NewGenerator(composer *prompt.Composer, converser Converser, st store.Store, modelID string, extraVariants []string, retryable func(error) bool) *Generator {
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &Generator{
		composer:      composer,
		converser:     converser,
		store:         st,
		modelID:       modelID,
		extraVariants: extraVariants,
		callTimeout:   defaultCallTime,
		backoff:       initialBackoff,
		retryable:     retryable,
		now:           time.Now,
	}
}

// RetryableBedrock and RetryableAnthropic classify transient provider
// errors for the retry envelope.
var (
	RetryableBedrock   = retryableBedrock
	RetryableAnthropic = retryableAnthropic
)

// Generate produces and persists the insight artifact for documentID.
// fallback reports that the primary analysis could not be obtained
// and a static artifact was written instead; that is a successful
// stage outcome.
func (g *Generator) Generate(ctx context.Context, documentID, redactedText string, profile map[string]string) (artifact map[string]any, fallback bool, err error) {
	logger := log.WithDocumentID(documentID)
	in := prompt.Input{RedactedText: redactedText, Profile: profile}

	artifact, genErr := g.runVariant(ctx, prompt.VariantComprehensive, in)
	if genErr != nil {
		logger.Warn().Err(genErr).Msg("primary analysis failed, building fallback artifact")
		metrics.FallbackInsights.Inc()
		artifact = g.fallbackArtifact(redactedText, profile)
		fallback = true
	} else {
		normalizeSections(artifact)
		g.attachMetadata(artifact, "enhanced_comprehensive", "comprehensive")
	}

	for _, variant := range g.extraVariants {
		extra, exErr := g.runVariant(ctx, variant, in)
		if exErr != nil {
			logger.Warn().Err(exErr).Str("variant", variant).Msg("extension variant failed, skipping")
			continue
		}
		attachExtension(artifact, variant, extra)
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode insight artifact: %w", err)
	}
	if err := g.store.PutInsights(documentID, data); err != nil {
		return nil, false, fmt.Errorf("failed to persist insight artifact: %w", err)
	}

	logger.Info().Bool("fallback", fallback).Msg("insight artifact persisted")
	return artifact, fallback, nil
}

// runVariant composes one variant and invokes the LLM inside the
// retry envelope: a per-call deadline, at most two retries, and
// exponential backoff between attempts.
func (g *Generator) runVariant(ctx context.Context, variant string, in prompt.Input) (map[string]any, error) {
	bundle, err := g.composer.Compose(variant, in)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			metrics.StageRetries.WithLabelValues("insights").Inc()
			backoff := g.backoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, callErr := g.call(ctx, bundle)
		if callErr == nil {
			parsed, parseErr := parseArtifact(raw)
			if parseErr != nil {
				metrics.LLMInvocations.WithLabelValues(variant, "unparseable").Inc()
				return nil, parseErr
			}
			metrics.LLMInvocations.WithLabelValues(variant, "success").Inc()
			return parsed, nil
		}

		lastErr = callErr
		if ctx.Err() != nil {
			metrics.LLMInvocations.WithLabelValues(variant, "canceled").Inc()
			return nil, ctx.Err()
		}
		if !g.retryableErr(callErr) {
			metrics.LLMInvocations.WithLabelValues(variant, "error").Inc()
			return nil, callErr
		}
	}

	metrics.LLMInvocations.WithLabelValues(variant, "exhausted").Inc()
	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (g *Generator) call(ctx context.Context, bundle prompt.Bundle) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	raw, err := g.converser.Converse(cctx, bundle)
	timer.ObserveDurationVec(metrics.LLMInvocationDuration, bundle.Variant)
	return raw, err
}

// retryableErr treats a per-call deadline expiry as transient; the
// parent context staying live is checked by the caller.
func (g *Generator) retryableErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return g.retryable(err)
}

func (g *Generator) attachMetadata(artifact map[string]any, method, depth string) {
	artifact["generated_at"] = g.now().UTC().Format(time.RFC3339)
	artifact["model_version"] = g.modelID
	artifact["analysis_method"] = method
	artifact["analysis_depth"] = depth
}

func attachExtension(artifact map[string]any, variant string, extra map[string]any) {
	ext, _ := artifact["extensions"].(map[string]any)
	if ext == nil {
		ext = map[string]any{}
		artifact["extensions"] = ext
	}
	ext[variant] = extra
}

// fallbackArtifact is the static analysis written when the model is
// unreachable or unparseable. The profile comes from plain scans of
// the redacted text so the stage still delivers something useful.
func (g *Generator) fallbackArtifact(redactedText string, profile map[string]string) map[string]any {
	if profile == nil {
		profile = extract.FromText(redactedText)
	}

	extracted := map[string]any{
		"branch":    profile["service_branch"],
		"rank":      profile["rank"],
		"mos":       profile["mos"],
		"pay_grade": profile["pay_grade"],
		"clearance": extract.InferClearance(profile["mos"], redactedText),
	}
	if tier := extract.LeadershipTier(profile["pay_grade"]); tier != "" {
		extracted["leadership_level"] = tier
	}

	artifact := map[string]any{
		"extracted_profile":       extracted,
		"career_recommendations":  []any{},
		"transferable_skills":     []any{"leadership", "teamwork", "discipline"},
		"action_oriented_deliverables": map[string]any{
			"action_steps": []any{
				"Update LinkedIn profile with military experience",
				"Research veteran job fairs in your area",
				"Connect with local veteran service organizations",
			},
		},
	}
	normalizeSections(artifact)
	g.attachMetadata(artifact, "fallback", "basic")
	return artifact
}
