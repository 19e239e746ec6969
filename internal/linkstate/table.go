// Package linkstate implements the multipath link selector: LinkState
// paths are grouped per remote host into a Bond, Table.Assign picks one
// healthy path by weighted random selection, and the returned AssignedLink
// carries a one-shot solve callback that escalates failures into a
// back-off-then-evict policy driven by ResumeScheduler.
package linkstate

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/glidewire/hotmesh/internal/netaddr"
	"github.com/glidewire/hotmesh/internal/stats"
	"github.com/glidewire/hotmesh/internal/weakref"
	"github.com/glidewire/hotmesh/internal/wire"
)

// AssignedLink is a suggestion, not a guarantee: the caller sends on
// (Local, Remote) and, only on failure to transmit, invokes Solve exactly
// once.
type AssignedLink struct {
	Local  netaddr.Endpoint
	Remote netaddr.Endpoint

	solve func() error
}

func (a AssignedLink) Solve() error { return a.solve() }

// Table maps HostID to Bond and owns the single ResumeScheduler shared by
// every solve closure it mints.
type Table struct {
	mu    sync.RWMutex
	bonds map[wire.HostID]*Bond

	weak      *weakref.Table[Link]
	scheduler *ResumeScheduler
	stats     *stats.Registry
}

// New builds a Table driven by scheduler; the caller owns the scheduler's
// lifetime (Close it after the table is done). reg may be nil.
func New(scheduler *ResumeScheduler, reg *stats.Registry) *Table {
	return &Table{
		bonds:     make(map[wire.HostID]*Bond),
		weak:      &weakref.Table[Link]{},
		scheduler: scheduler,
		stats:     reg,
	}
}

// Update records that (local, remote) is a reachable path to host,
// creating host's Bond if this is the first path seen for it.
func (t *Table) Update(host wire.HostID, local, remote netaddr.Endpoint, metric uint32) {
	t.mu.Lock()
	bond, ok := t.bonds[host]
	if !ok {
		t.bonds[host] = newBond(local, remote, metric)
		t.mu.Unlock()
		if t.stats != nil {
			t.stats.LinksHealthy.Inc()
			t.stats.BondsActive.Inc()
		}
		return
	}
	t.mu.Unlock()
	if bond.update(local, remote, metric) && t.stats != nil {
		t.stats.LinksHealthy.Inc()
	}
}

// Assign selects a path to host by weighted random draw over its healthy
// links and returns a suggestion plus a one-shot failure-escalation
// callback.
func (t *Table) Assign(host wire.HostID) (AssignedLink, error) {
	t.mu.RLock()
	bond, ok := t.bonds[host]
	t.mu.RUnlock()
	if !ok {
		if t.stats != nil {
			t.stats.AssignFailed.WithLabelValues("bond_not_found").Inc()
		}
		return AssignedLink{}, newHostErr(BondNotFound, string(host))
	}

	healthy := bond.healthySnapshot()
	link, err := weightedSelect(healthy)
	if err != nil {
		if t.stats != nil {
			t.stats.AssignFailed.WithLabelValues("no_healthy_links").Inc()
		}
		return AssignedLink{}, newHostErr(LinksNotFound, string(host))
	}
	link.touch()
	if t.stats != nil {
		t.stats.AssignOK.Inc()
	}

	w := t.weak.New(link)
	return AssignedLink{
		Local:  link.Local,
		Remote: link.Remote,
		solve:  func() error { return t.solve(host, w) },
	}, nil
}

// weightedSelect draws uniformly over [0, total) and binary-searches the
// running weight sum for the smallest index whose prefix exceeds the
// draw.
func weightedSelect(links []*Link) (*Link, error) {
	if len(links) == 0 {
		return nil, newErr(LinksNotFound)
	}
	prefix := make([]uint64, len(links))
	var total uint64
	for i, l := range links {
		total += l.weight()
		prefix[i] = total
	}
	if total == 0 {
		return nil, newErr(LinksNotFound)
	}
	r := uint64(rand.Int63n(int64(total)))
	idx := sort.Search(len(prefix), func(i int) bool { return prefix[i] > r })
	return links[idx], nil
}

// solve runs the failure-escalation policy for the link behind w: a dead
// weak reference (already evicted by another caller) changes nothing and
// returns LinkRefInvalid; otherwise deactivate, and either schedule a recovery ResumeTask or evict
// the link (and its bond, if now empty).
func (t *Table) solve(host wire.HostID, w weakref.Weak[Link]) error {
	link, ok := t.weak.Upgrade(w)
	if !ok {
		return newHostErr(LinkRefInvalid, string(host))
	}

	timeout, keep := link.deactivate()
	if t.stats != nil {
		t.stats.SolveEscalations.Inc()
	}
	if keep {
		resumeW := w
		err := t.scheduler.Submit(ResumeTask{
			Deadline: time.Now().Add(timeout),
			Callback: func() {
				if l, ok := t.weak.Upgrade(resumeW); ok {
					l.reset()
				}
			},
		})
		if err != nil {
			// Channel full: fail open to shedding via eviction rather
			// than blocking the send path.
			t.evict(host, w, link)
			return nil
		}
		return nil
	}

	t.weak.Invalidate(w)
	t.evict(host, w, link)
	return nil
}

func (t *Table) evict(host wire.HostID, w weakref.Weak[Link], link *Link) {
	t.mu.RLock()
	bond, ok := t.bonds[host]
	t.mu.RUnlock()
	if !ok {
		return
	}

	empty := bond.removeLink(link)
	t.weak.Invalidate(w)
	if t.stats != nil {
		t.stats.LinksEvicted.Inc()
		t.stats.LinksHealthy.Dec()
	}
	if !empty {
		return
	}

	t.mu.Lock()
	if cur, ok := t.bonds[host]; ok && cur == bond {
		delete(t.bonds, host)
	}
	t.mu.Unlock()
	if t.stats != nil {
		t.stats.BondsActive.Dec()
	}
}
