package worker

import (
	"context"
	"sync"
	"time"

	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
	"github.com/rs/zerolog"
)

// Executor runs one document through the pipeline. The orchestrator
// implements this.
type Executor interface {
	Execute(ctx context.Context, documentID string) error
}

const defaultQueueDepth = 256

// Pool runs N workers, each processing one document at a time.
// Documents are independent, so the pool gives no cross-document
// ordering; per-document correctness comes from the record store.
type Pool struct {
	executor Executor
	store    store.Store
	count    int
	logger   zerolog.Logger

	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool builds a pool of count workers.
func NewPool(executor Executor, st store.Store, count int) *Pool {
	if count < 1 {
		count = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		executor: executor,
		store:    st,
		count:    count,
		logger:   log.WithComponent("worker"),
		queue:    make(chan string, defaultQueueDepth),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

// Stop cancels in-flight executions and waits for the workers to
// drain. Interrupted documents stay resumable: their records keep the
// completed steps and any durable job handles.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Submit queues a document for execution. When the queue is full the
// submit blocks, applying backpressure to the trigger.
func (p *Pool) Submit(documentID string) {
	select {
	case p.queue <- documentID:
	case <-p.ctx.Done():
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	logger := p.logger.With().Int("worker", id).Logger()

	for {
		select {
		case documentID := <-p.queue:
			start := time.Now()
			if err := p.executor.Execute(p.ctx, documentID); err != nil {
				logger.Error().Err(err).Str("document_id", documentID).Msg("execution failed")
				continue
			}
			logger.Info().
				Str("document_id", documentID).
				Dur("took", time.Since(start)).
				Msg("execution finished")
		case <-p.ctx.Done():
			return
		}
	}
}

// Resume requeues documents a previous process left in flight: claimed
// by an execution but neither complete nor failed. Called once at
// startup, before the trigger starts delivering fresh uploads.
func (p *Pool) Resume() error {
	records, err := p.store.List()
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.ExecutionHandle == "" {
			continue
		}
		if rec.Status == types.StatusComplete || rec.Status == types.StatusError {
			continue
		}
		p.logger.Info().
			Str("document_id", rec.DocumentID).
			Str("status", string(rec.Status)).
			Msg("resuming interrupted execution")
		p.Submit(rec.DocumentID)
	}
	return nil
}
