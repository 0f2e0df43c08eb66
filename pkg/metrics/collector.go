package metrics

import (
	"time"

	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
)

// Collector periodically samples record counts from the store
type Collector struct {
	store  store.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(s store.Store) *Collector {
	return &Collector{
		store:  s,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	records, err := c.store.List()
	if err != nil {
		return
	}

	counts := make(map[types.DocumentStatus]int)
	for _, rec := range records {
		counts[rec.Status]++
	}

	// Zero out statuses with no records so gauges do not go stale.
	for _, status := range []types.DocumentStatus{
		types.StatusPendingUpload,
		types.StatusUploaded,
		types.StatusProcessing,
		types.StatusTextractComplete,
		types.StatusMacieComplete,
		types.StatusInsightsComplete,
		types.StatusComplete,
		types.StatusError,
	} {
		DocumentsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
