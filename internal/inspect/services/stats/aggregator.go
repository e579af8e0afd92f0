// Package stats aggregates inspection outcomes into traffic statistics.
package stats

import (
	"sync/atomic"

	"github.com/haukened/rr-inspect/internal/inspect/common/counter"
	"github.com/haukened/rr-inspect/internal/inspect/domain"
)

// DefaultSuspicionThreshold is the block count at which a source address is
// flagged suspicious.
const DefaultSuspicionThreshold = 3

// Aggregator is a concurrent collector of traffic statistics. Record may be
// called from any number of goroutines; there is no global lock.
type Aggregator struct {
	threshold int64

	total     atomic.Int64
	dropped   atomic.Int64
	forwarded atomic.Int64

	domainTraffic counter.Map
	blockCounts   counter.Map
	suspicious    counter.Set
}

// New returns an empty Aggregator. A threshold <= 0 selects
// DefaultSuspicionThreshold.
func New(suspicionThreshold int64) *Aggregator {
	if suspicionThreshold <= 0 {
		suspicionThreshold = DefaultSuspicionThreshold
	}
	return &Aggregator{threshold: suspicionThreshold}
}

// Record folds one outcome into the statistics.
func (a *Aggregator) Record(o domain.Outcome) {
	a.total.Add(1)

	if o.Decision.Blocked {
		a.dropped.Add(1)
		if a.blockCounts.Inc(o.Record.SourceAddress) >= a.threshold {
			a.suspicious.Add(o.Record.SourceAddress)
		}
		return
	}

	a.forwarded.Add(1)
	a.domainTraffic.Inc(o.Record.Domain)
}

// Snapshot copies the current statistics. Taken while tasks are running it
// is a partial view; after the dispatch pool drained it is final.
func (a *Aggregator) Snapshot() domain.TrafficSnapshot {
	return domain.TrafficSnapshot{
		Total:         a.total.Load(),
		Dropped:       a.dropped.Load(),
		Forwarded:     a.forwarded.Load(),
		DomainTraffic: a.domainTraffic.Snapshot(),
		BlockCounts:   a.blockCounts.Snapshot(),
		Suspicious:    a.suspicious.Sorted(),
	}
}

// IsSuspicious reports whether address has been flagged.
func (a *Aggregator) IsSuspicious(address string) bool {
	return a.suspicious.Contains(address)
}

// SuspicionThreshold returns the configured threshold.
func (a *Aggregator) SuspicionThreshold() int64 { return a.threshold }
