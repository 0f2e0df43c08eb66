package ingress

import (
	"errors"
	"time"

	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/events"
	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
	"github.com/rs/zerolog"
)

// ErrAlreadyStarted is returned when an execution for the document has
// already been claimed. Duplicate upload notifications land here.
var ErrAlreadyStarted = errors.New("execution already started")

// ExecutionName is the deterministic execution identity for a document.
// Claiming it on the record is what deduplicates concurrent triggers.
func ExecutionName(documentID string) string {
	return "dd214-" + documentID
}

// Runner accepts claimed documents for execution. The worker pool
// implements this.
type Runner interface {
	Submit(documentID string)
}

// Trigger turns blob.created events under the uploads prefix into
// execution starts. Exactly one execution is claimed per document no
// matter how many times the notification fires.
type Trigger struct {
	store  store.Store
	broker *events.Broker
	runner Runner
	ttl    time.Duration
	logger zerolog.Logger

	sub    events.Subscriber
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewTrigger builds a trigger. ttl is the retention applied to records
// created for uploads that arrived without a provisioned record.
func NewTrigger(st store.Store, broker *events.Broker, runner Runner, ttl time.Duration) *Trigger {
	return &Trigger{
		store:  st,
		broker: broker,
		runner: runner,
		ttl:    ttl,
		logger: log.WithComponent("ingress"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start subscribes to the broker and begins handling events.
func (t *Trigger) Start() {
	t.sub = t.broker.Subscribe()
	go t.run()
}

// Stop unsubscribes and waits for the handler loop to drain.
func (t *Trigger) Stop() {
	close(t.stopCh)
	t.broker.Unsubscribe(t.sub)
	<-t.doneCh
}

func (t *Trigger) run() {
	defer close(t.doneCh)
	for {
		select {
		case ev, ok := <-t.sub:
			if !ok {
				return
			}
			t.Handle(ev)
		case <-t.stopCh:
			return
		}
	}
}

// Handle processes one event. Exposed so synchronous callers (tests,
// the process command) can inject events without the broker.
func (t *Trigger) Handle(ev *events.Event) {
	if ev.Type != events.EventBlobCreated {
		return
	}
	if !blob.IsUploadPrefix(ev.Key) {
		metrics.IngressEvents.WithLabelValues("ignored").Inc()
		return
	}

	ownerID, documentID, ok := blob.ParseUploadKey(ev.Key)
	if !ok {
		t.logger.Warn().Str("key", ev.Key).Msg("upload key outside the canonical layout, skipping")
		metrics.IngressEvents.WithLabelValues("invalid_key").Inc()
		return
	}

	err := t.claim(ownerID, documentID, ev.Bucket, ev.Key)
	switch {
	case errors.Is(err, ErrAlreadyStarted):
		t.logger.Debug().Str("document_id", documentID).Msg("execution already claimed, skipping duplicate event")
		metrics.IngressEvents.WithLabelValues("duplicate").Inc()
		return
	case err != nil:
		t.logger.Error().Err(err).Str("document_id", documentID).Msg("failed to claim execution")
		metrics.IngressEvents.WithLabelValues("error").Inc()
		return
	}

	t.logger.Info().
		Str("document_id", documentID).
		Str("owner_id", ownerID).
		Str("key", ev.Key).
		Msg("upload received, starting execution")
	metrics.IngressEvents.WithLabelValues("started").Inc()
	t.runner.Submit(documentID)
}

// claim moves the record from pending_upload into processing and
// stamps the execution name on it. The stamp is written inside one
// atomic record update, so a second event for the same object loses
// the claim and gets ErrAlreadyStarted.
func (t *Trigger) claim(ownerID, documentID, bucket, key string) error {
	_, err := t.store.Get(documentID)
	if errors.Is(err, store.ErrNotFound) {
		// Upload arrived without a provisioned record. Create one so
		// the document still gets processed; losing the create race to
		// another trigger is fine, the claim below decides.
		rec := types.NewRecord(documentID, ownerID, t.ttl)
		if cerr := t.store.Create(rec); cerr != nil && !errors.Is(cerr, store.ErrAlreadyExists) {
			return cerr
		}
	} else if err != nil {
		return err
	}

	_, err = t.store.Mutate(documentID, func(rec *types.DocumentRecord) error {
		if rec.ExecutionHandle != "" {
			return ErrAlreadyStarted
		}
		rec.ExecutionHandle = ExecutionName(documentID)
		if rec.SourceRef == nil {
			rec.SourceRef = &types.SourceRef{Bucket: bucket, Key: key}
		}
		now := time.Now().UTC()
		rec.ProcessingStartedAt = &now
		rec.Status = types.StatusProcessing
		return nil
	})
	return err
}
