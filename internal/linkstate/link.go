package linkstate

import (
	"sync/atomic"
	"time"

	"github.com/glidewire/hotmesh/internal/netaddr"
)

// maxFailureCount is the saturation point; the 4th deactivation evicts the
// link rather than scheduling recovery.
const maxFailureCount = 4

// Link is a directional (local, remote) path with health and metric
// attached. local/remote/metric are immutable after construction; the
// rest is mutated by Bond/Table under deactivate/reset.
type Link struct {
	Local  netaddr.Endpoint
	Remote netaddr.Endpoint
	Metric uint32

	failureCount atomic.Uint32
	healthy      atomic.Bool
	lastUsed     atomic.Int64 // unix seconds
}

func newLink(local, remote netaddr.Endpoint, metric uint32) *Link {
	l := &Link{Local: local, Remote: remote, Metric: metric}
	l.healthy.Store(true)
	return l
}

// weight maps a link's metric to a positive selection weight: a higher
// metric yields a lower weight.
func (l *Link) weight() uint64 {
	return 1_000_000 / (uint64(l.Metric) + 1)
}

func (l *Link) isHealthy() bool { return l.healthy.Load() }

func (l *Link) touch() { l.lastUsed.Store(time.Now().Unix()) }

func (l *Link) sameEndpoints(local, remote netaddr.Endpoint) bool {
	return l.Local == local && l.Remote == remote
}

// deactivate increments failureCount (saturating at maxFailureCount), marks
// the link unhealthy, and returns the recovery timeout to schedule, or
// ok=false if the link should instead be evicted.
func (l *Link) deactivate() (timeout time.Duration, ok bool) {
	n := l.failureCount.Add(1)
	if n > maxFailureCount {
		n = maxFailureCount
		l.failureCount.Store(n)
	}
	l.healthy.Store(false)
	switch n {
	case 1:
		return 5 * time.Second, true
	case 2:
		return 30 * time.Second, true
	case 3:
		return 60 * time.Second, true
	default:
		return 0, false
	}
}

// reset clears failureCount and marks the link healthy again; called by a
// ResumeTask callback once its timeout elapses.
func (l *Link) reset() {
	l.failureCount.Store(0)
	l.healthy.Store(true)
}
