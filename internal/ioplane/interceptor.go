package ioplane

import (
	"fmt"
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/glidewire/hotmesh/internal/linkstate"
	"github.com/glidewire/hotmesh/internal/netaddr"
	"github.com/glidewire/hotmesh/internal/wire"
)

// dedupCapacity bounds the approximate number of distinct (host, local,
// remote) Discovery announcements tracked before the filter's false-positive rate
// starts climbing; stale entries are never explicitly evicted, matching
// the filter's intended steady-state churn use.
const dedupCapacity = 4096

// Interceptor classifies decoded messages into link-state updates
// (Discovery) versus events forwarded to the session/task layer
// (everything else). Repeated Discovery announcements for the same
// (host, local, remote) path are deduplicated via a cuckoo filter before
// they reach the link-state table; the same host heard on a different
// local socket is a different path and is passed through.
type Interceptor struct {
	table *linkstate.Table

	mu   sync.Mutex
	seen *cuckoo.Filter
}

func NewInterceptor(table *linkstate.Table) *Interceptor {
	return &Interceptor{table: table, seen: cuckoo.NewFilter(dedupCapacity)}
}

// Classify absorbs Discovery messages into the link-state table and
// returns (Event{}, false) for them; every other Msg kind becomes an
// Event for the caller to forward. local is the socket the datagram was
// received on, remote is the sender's observed endpoint.
func (ic *Interceptor) Classify(local, remote netaddr.Endpoint, m wire.Msg) (Event, bool) {
	if m.Kind == wire.KindDiscovery && m.Discovery != nil {
		ic.observeDiscovery(local, remote, m.Discovery)
		return Event{}, false
	}
	return Event{From: remote, Msg: m}, true
}

func (ic *Interceptor) observeDiscovery(local, remote netaddr.Endpoint, d *wire.DiscoveryMsg) {
	key := []byte(fmt.Sprintf("%s|%s|%s", d.Host, local, remote))

	ic.mu.Lock()
	fresh := ic.seen.InsertUnique(key)
	ic.mu.Unlock()
	if !fresh {
		return
	}

	// Metric is not yet known from a bare Discovery announcement; it is
	// refined once the Hello/Exchange handshake completes (out of scope
	// here). A fresh announcement seeds the best-effort default.
	const defaultMetric = 0
	ic.table.Update(d.Host, local, remote, defaultMetric)
}
