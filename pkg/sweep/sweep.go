package sweep

import (
	"context"
	"time"

	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/events"
	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
	"github.com/rs/zerolog"
)

// Sweeper removes expired document records and their artifacts. Each
// cycle scans for records whose TTL has passed, deletes the blobs they
// own, and then drops the record and its insights row.
type Sweeper struct {
	store    store.Store
	blobs    blob.Store
	buckets  []string
	broker   *events.Broker
	interval time.Duration
	logger   zerolog.Logger

	now    func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper builds a sweeper over the given artifact buckets.
func NewSweeper(st store.Store, blobs blob.Store, buckets []string, broker *events.Broker, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    st,
		blobs:    blobs,
		buckets:  buckets,
		broker:   broker,
		interval: interval,
		logger:   log.WithComponent("sweep"),
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep loop.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop stops the loop and waits for an in-flight cycle to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunOnce(context.Background()); err != nil {
				s.logger.Error().Err(err).Msg("sweep cycle failed")
			}
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one sweep cycle. Per-record failures are logged and
// skipped so one stuck document cannot stall retention for the rest.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SweepDuration)

	expired, err := s.store.Scan(s.now().UTC())
	if err != nil {
		return err
	}

	for _, rec := range expired {
		if err := s.expire(ctx, rec); err != nil {
			s.logger.Error().Err(err).Str("document_id", rec.DocumentID).Msg("failed to expire record")
			continue
		}
		metrics.RecordsExpired.Inc()
		if s.broker != nil {
			s.broker.Publish(&events.Event{
				Type:       events.EventRecordExpired,
				DocumentID: rec.DocumentID,
			})
		}
		s.logger.Info().
			Str("document_id", rec.DocumentID).
			Time("ttl", rec.TTL).
			Msg("expired record removed")
	}
	return nil
}

// expire deletes the record's blobs, then the record itself. Blob
// deletes go first so a crash between the two leaves an expired record
// that the next cycle picks up again.
func (s *Sweeper) expire(ctx context.Context, rec *types.DocumentRecord) error {
	if rec.SourceRef != nil {
		if err := s.blobs.Delete(ctx, rec.SourceRef.Bucket, rec.SourceRef.Key); err != nil {
			return err
		}
	}
	// Artifact keys are disjoint across buckets; deleting a key from a
	// bucket that never held it is a no-op.
	for _, key := range blob.DocumentKeys(rec.DocumentID) {
		for _, bucket := range s.buckets {
			if err := s.blobs.Delete(ctx, bucket, key); err != nil {
				return err
			}
		}
	}
	return s.store.Delete(rec.DocumentID)
}
