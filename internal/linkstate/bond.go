package linkstate

import (
	"sync"

	"github.com/glidewire/hotmesh/internal/netaddr"
)

// Status is the discovery/handshake bitflag attached to a Bond. Full and
// Transfer may combine; every other pair is exclusive by construction.
type Status uint8

const (
	Discovered Status = 1 << iota
	Hello
	Exchange
	Full
	Transfer
)

// Bond holds the ordered, de-duplicated set of Link paths reachable for one
// remote host.
type Bond struct {
	mu     sync.RWMutex
	links  []*Link
	status Status
}

func newBond(local, remote netaddr.Endpoint, metric uint32) *Bond {
	return &Bond{links: []*Link{newLink(local, remote, metric)}, status: Discovered}
}

// update inserts a new Link iff no existing member has the same
// (local, remote) pair; returns whether a new link was created. Never
// removes a link — removal is driven only by assignment-side failures.
func (b *Bond) update(local, remote netaddr.Endpoint, metric uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.links {
		if l.sameEndpoints(local, remote) {
			return false
		}
	}
	b.links = append(b.links, newLink(local, remote, metric))
	return true
}

// healthySnapshot returns a short-lived copy of the currently-healthy
// links, taken under a read lock that is released before the caller does
// any selection work.
func (b *Bond) healthySnapshot() []*Link {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Link, 0, len(b.links))
	for _, l := range b.links {
		if l.isHealthy() {
			out = append(out, l)
		}
	}
	return out
}

// removeLink drops link from the bond (no-op if already gone) and reports
// whether the bond is now empty.
func (b *Bond) removeLink(link *Link) (empty bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, l := range b.links {
		if l == link {
			b.links = append(b.links[:i], b.links[i+1:]...)
			break
		}
	}
	return len(b.links) == 0
}

func (b *Bond) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}
