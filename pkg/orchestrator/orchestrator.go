package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/events"
	"github.com/musterhq/muster/pkg/extract"
	"github.com/musterhq/muster/pkg/insight"
	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/ocr"
	"github.com/musterhq/muster/pkg/pii"
	"github.com/musterhq/muster/pkg/redact"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
	"github.com/rs/zerolog"
)

// Options bound the execution.
type Options struct {
	PollInterval    time.Duration
	OCRCeiling      time.Duration
	ExecutionBudget time.Duration
	MaxPages        int
	WarnPages       int
}

// Orchestrator drives one document through the pipeline: validation,
// OCR, PII detection, redaction, insights. Every step writes its
// record update before the execution moves on, so the record stays a
// correct progress reflection across crashes and reruns.
type Orchestrator struct {
	store     store.Store
	blobs     blob.Store
	ocr       ocr.Client
	artifacts *ocr.ArtifactWriter
	detector  *pii.Detector
	redactor  *redact.Redactor
	insights  *insight.Generator
	broker    *events.Broker
	opts      Options

	backoff time.Duration
	now     func() time.Time
}

func New(st store.Store, blobs blob.Store, client ocr.Client, artifacts *ocr.ArtifactWriter, detector *pii.Detector, redactor *redact.Redactor, insights *insight.Generator, broker *events.Broker, opts Options) *Orchestrator {
	return &Orchestrator{
		store:     st,
		blobs:     blobs,
		ocr:       client,
		artifacts: artifacts,
		detector:  detector,
		redactor:  redactor,
		insights:  insights,
		broker:    broker,
		opts:      opts,
		backoff:   retryBackoffBase,
		now:       time.Now,
	}
}

// execution carries the per-document flow state. The record store
// stays the source of truth; these fields are a cache between steps.
type execution struct {
	o      *Orchestrator
	id     string
	logger zerolog.Logger

	text     string
	fields   map[string]string
	findings []types.Finding
}

// Execute runs the pipeline for documentID under the wall-clock
// budget. A completed step with a valid artifact pointer is skipped,
// which makes executions resumable and reruns idempotent.
func (o *Orchestrator) Execute(ctx context.Context, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, o.opts.ExecutionBudget)
	defer cancel()

	metrics.ExecutionsStarted.Inc()
	e := &execution{o: o, id: documentID, logger: log.WithExecutionID("dd214-" + documentID)}
	o.publish(events.EventExecutionStarted, documentID, "")

	err := e.run(ctx)
	if err != nil {
		metrics.ExecutionsCompleted.WithLabelValues("error").Inc()
		o.publish(events.EventExecutionFailed, documentID, err.Error())
		e.logger.Error().Err(err).Msg("execution failed")
		return err
	}

	metrics.ExecutionsCompleted.WithLabelValues("success").Inc()
	o.publish(events.EventExecutionCompleted, documentID, "")
	e.logger.Info().Msg("execution complete")
	return nil
}

func (e *execution) run(ctx context.Context) error {
	rec, err := e.o.store.Get(e.id)
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}
	if err := e.ensureUploadComplete(rec); err != nil {
		return err
	}

	steps := []struct {
		name types.StepName
		skip func(*types.DocumentRecord) bool
		fn   func(context.Context, *types.DocumentRecord) error
	}{
		{types.StepValidation, e.skipValidation, e.validate},
		{types.StepOCR, e.skipOCR, e.runOCR},
		{types.StepPIIDetection, e.skipPII, e.detectPII},
		{types.StepRedaction, e.skipRedaction, e.redactText},
		{types.StepInsights, e.skipInsights, e.generateInsights},
	}

	for _, s := range steps {
		if err := e.runStep(ctx, s.name, s.skip, s.fn); err != nil {
			return err
		}
	}

	_, err = e.o.store.Mutate(e.id, func(rec *types.DocumentRecord) error {
		if rec.CompletedAt == nil {
			now := e.o.now().UTC()
			rec.CompletedAt = &now
		}
		return nil
	})
	return err
}

// runStep wraps one stage with the record protocol: skip when already
// complete, mark in_progress before the external work, and record the
// outcome before returning.
func (e *execution) runStep(ctx context.Context, name types.StepName, skip func(*types.DocumentRecord) bool, fn func(context.Context, *types.DocumentRecord) error) error {
	rec, err := e.o.store.Get(e.id)
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}

	if skip(rec) {
		e.logger.Debug().Str("step", string(name)).Msg("step already complete, skipping")
		return nil
	}

	if _, err := e.o.store.UpdateStep(e.id, name, types.StepInProgress, ""); err != nil {
		return fmt.Errorf("failed to mark step %s in progress: %w", name, err)
	}
	rec, err = e.o.store.Get(e.id)
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}

	timer := metrics.NewTimer()
	stepErr := fn(ctx, rec)
	timer.ObserveDurationVec(metrics.StageDuration, string(name))

	if stepErr != nil {
		msg := stepErr.Error()
		if errors.Is(stepErr, context.DeadlineExceeded) {
			msg = "timeout: " + msg
		}
		if _, uerr := e.o.store.UpdateStep(e.id, name, types.StepError, msg); uerr != nil {
			e.logger.Error().Err(uerr).Str("step", string(name)).Msg("failed to record step error")
		}
		e.o.publish(events.EventStepFailed, e.id, string(name))
		return fmt.Errorf("step %s: %w", name, stepErr)
	}

	if _, err := e.o.store.UpdateStep(e.id, name, types.StepComplete, ""); err != nil {
		return fmt.Errorf("failed to mark step %s complete: %w", name, err)
	}
	e.o.publish(events.EventStepCompleted, e.id, string(name))
	return nil
}

// ensureUploadComplete records the original's arrival for executions
// resumed from a record the ingress trigger only partially updated.
func (e *execution) ensureUploadComplete(rec *types.DocumentRecord) error {
	if rec.Step(types.StepUpload).State == types.StepComplete {
		return nil
	}
	if rec.SourceRef == nil {
		return errors.New("no uploaded original on record")
	}
	if _, err := e.o.store.UpdateStep(e.id, types.StepUpload, types.StepInProgress, ""); err != nil {
		return err
	}
	_, err := e.o.store.UpdateStep(e.id, types.StepUpload, types.StepComplete, "")
	return err
}

func (e *execution) skipValidation(rec *types.DocumentRecord) bool {
	return rec.Step(types.StepValidation).State == types.StepComplete
}

func (e *execution) validate(ctx context.Context, rec *types.DocumentRecord) error {
	src := rec.SourceRef
	if src == nil {
		return errors.New("record carries no source reference")
	}
	if _, _, ok := blob.ParseUploadKey(src.Key); !ok {
		return fmt.Errorf("source key %q is outside the uploads layout", src.Key)
	}

	var info *blob.Info
	err := e.o.withRetry(ctx, types.StepValidation, func() error {
		var herr error
		info, herr = e.o.blobs.Head(ctx, src.Bucket, src.Key)
		return herr
	})
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return fmt.Errorf("original %s/%s not found", src.Bucket, src.Key)
		}
		return err
	}
	if info.SizeBytes == 0 {
		return errors.New("original is empty")
	}

	_, err = e.o.store.Mutate(e.id, func(rec *types.DocumentRecord) error {
		rec.SourceRef.SizeBytes = info.SizeBytes
		if info.ContentType != "" {
			rec.SourceRef.ContentType = info.ContentType
		}
		return nil
	})
	return err
}

func (e *execution) skipOCR(rec *types.DocumentRecord) bool {
	if rec.Step(types.StepOCR).State != types.StepComplete || rec.ExtractedTextRef == nil {
		return false
	}
	e.fields = rec.ExtractedFields
	return true
}

func (e *execution) runOCR(ctx context.Context, rec *types.DocumentRecord) error {
	handle := rec.Step(types.StepOCR).JobHandle
	if handle != "" {
		e.logger.Info().Str("job_handle", handle).Msg("adopting existing ocr job")
	} else {
		err := e.o.withRetry(ctx, types.StepOCR, func() error {
			var serr error
			handle, serr = e.o.ocr.Start(ctx, types.BlobRef{Bucket: rec.SourceRef.Bucket, Key: rec.SourceRef.Key})
			return serr
		})
		if err != nil {
			return fmt.Errorf("failed to start ocr job: %w", err)
		}
		// The handle is durable before the first poll so a crashed
		// execution can adopt the job instead of resubmitting.
		_, err = e.o.store.Mutate(e.id, func(rec *types.DocumentRecord) error {
			rec.Step(types.StepOCR).JobHandle = handle
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := e.pollOCR(ctx, handle); err != nil {
		return err
	}

	var blocks []types.Block
	err := e.o.withRetry(ctx, types.StepOCR, func() error {
		var ferr error
		blocks, ferr = e.o.ocr.FetchAll(ctx, handle)
		return ferr
	})
	if err != nil {
		return fmt.Errorf("failed to fetch ocr results: %w", err)
	}

	pages := countPages(blocks)
	if e.o.opts.MaxPages > 0 && pages > e.o.opts.MaxPages {
		return fmt.Errorf("document has %d pages, limit is %d", pages, e.o.opts.MaxPages)
	}
	if e.o.opts.WarnPages > 0 && pages > e.o.opts.WarnPages {
		e.logger.Warn().Int("pages", pages).Msg("document is unusually large")
	}

	e.fields = extract.Fields(blocks)
	out, err := e.o.artifacts.Write(ctx, e.id, handle, blocks, e.fields)
	if err != nil {
		return fmt.Errorf("failed to write ocr artifacts: %w", err)
	}

	if out.TextTruncated {
		e.text = ""
	} else {
		e.text = out.InlineText
	}

	_, err = e.o.store.Mutate(e.id, func(rec *types.DocumentRecord) error {
		rec.ExtractedFields = e.fields
		rec.ExtractedTextRef = &out.TextRef
		return nil
	})
	return err
}

// pollOCR loops until the job resolves or the pending ceiling passes.
// The ceiling check comes before the sleep so a timeout is reported
// within one poll interval of the deadline.
func (e *execution) pollOCR(ctx context.Context, handle string) error {
	deadline := e.o.now().Add(e.o.opts.OCRCeiling)
	for {
		var res ocr.PollResult
		err := e.o.withRetry(ctx, types.StepOCR, func() error {
			var perr error
			res, perr = e.o.ocr.Poll(ctx, handle)
			return perr
		})
		if err != nil {
			return fmt.Errorf("failed to poll ocr job: %w", err)
		}

		switch res.State {
		case ocr.StateSucceeded:
			return nil
		case ocr.StateFailed:
			return fmt.Errorf("ocr job failed: %s", res.Reason)
		}

		if !e.o.now().Before(deadline) {
			if cerr := e.o.ocr.Cancel(ctx, handle); cerr != nil && !errors.Is(cerr, ocr.ErrCancelUnsupported) {
				e.logger.Warn().Err(cerr).Msg("failed to cancel ocr job")
			}
			return fmt.Errorf("timeout: ocr job pending past %s ceiling", e.o.opts.OCRCeiling)
		}

		select {
		case <-time.After(e.o.opts.PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *execution) skipPII(rec *types.DocumentRecord) bool {
	if rec.Step(types.StepPIIDetection).State != types.StepComplete || rec.PIIFindings == nil {
		return false
	}
	e.findings = rec.PIIFindings
	return true
}

func (e *execution) detectPII(ctx context.Context, rec *types.DocumentRecord) error {
	text, err := e.loadText(ctx, rec)
	if err != nil {
		e.logger.Warn().Err(err).Msg("extracted text unavailable, detecting on empty input")
		text = ""
	}

	findings, degraded := e.o.detector.Detect(ctx, text)
	e.findings = findings

	_, err = e.o.store.Mutate(e.id, func(rec *types.DocumentRecord) error {
		rec.PIIFindings = findings
		rec.ClassifierDegraded = degraded
		return nil
	})
	return err
}

func (e *execution) skipRedaction(rec *types.DocumentRecord) bool {
	return rec.Step(types.StepRedaction).State == types.StepComplete && rec.RedactedRef != nil
}

func (e *execution) redactText(ctx context.Context, rec *types.DocumentRecord) error {
	text, err := e.loadText(ctx, rec)
	if err != nil {
		// The redactor writes its placeholder artifact for empty
		// input, keeping downstream stages unblocked.
		e.logger.Warn().Err(err).Msg("extracted text unavailable for redaction")
		text = ""
	}

	ref, applied, err := e.o.redactor.Write(ctx, e.id, text, e.findings)
	if err != nil {
		return err
	}

	_, err = e.o.store.Mutate(e.id, func(rec *types.DocumentRecord) error {
		rec.RedactedRef = &ref
		rec.NoPIIMarker = applied == 0
		return nil
	})
	return err
}

func (e *execution) skipInsights(rec *types.DocumentRecord) bool {
	return rec.Step(types.StepInsights).State == types.StepComplete && rec.InsightsRef != nil
}

func (e *execution) generateInsights(ctx context.Context, rec *types.DocumentRecord) error {
	if rec.RedactedRef == nil {
		return errors.New("redacted artifact missing")
	}
	data, err := e.o.blobs.Get(ctx, rec.RedactedRef.Bucket, rec.RedactedRef.Key)
	if err != nil {
		return fmt.Errorf("failed to load redacted artifact: %w", err)
	}

	_, fallback, err := e.o.insights.Generate(ctx, e.id, string(data), rec.ExtractedFields)
	if err != nil {
		return err
	}

	_, err = e.o.store.Mutate(e.id, func(rec *types.DocumentRecord) error {
		rec.InsightsRef = &types.BlobRef{Bucket: "insights", Key: e.id}
		rec.FallbackInsights = fallback
		return nil
	})
	return err
}

// loadText returns the extracted plain text, from the in-flight cache
// when the OCR stage ran in this execution or from the blob store on
// resume.
func (e *execution) loadText(ctx context.Context, rec *types.DocumentRecord) (string, error) {
	if e.text != "" {
		return e.text, nil
	}
	if rec.ExtractedTextRef == nil {
		return "", errors.New("no extracted text reference on record")
	}
	data, err := e.o.blobs.Get(ctx, rec.ExtractedTextRef.Bucket, rec.ExtractedTextRef.Key)
	if err != nil {
		return "", fmt.Errorf("failed to load extracted text: %w", err)
	}
	e.text = string(data)
	return e.text, nil
}

func (o *Orchestrator) publish(t events.EventType, documentID, message string) {
	if o.broker == nil {
		return
	}
	o.broker.Publish(&events.Event{Type: t, DocumentID: documentID, Message: message})
}

func countPages(blocks []types.Block) int {
	n := 0
	for _, b := range blocks {
		if b.Type == types.BlockPage {
			n++
		}
	}
	return n
}
