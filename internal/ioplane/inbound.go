package ioplane

import (
	"context"
	"sync"

	"github.com/glidewire/hotmesh/internal/netgroup"
	"github.com/glidewire/hotmesh/internal/nlog"
	"github.com/glidewire/hotmesh/internal/wire"
)

// Inbound drains a socket group's merged stream into an unbounded queue of
// classified events. The channel is unbounded (backed by a growable
// slice-buffer goroutine) so a slow session/task consumer never backs up
// into socket receive processing; the kernel's own receive buffer remains
// the effective bound upstream of this.
type Inbound struct {
	ic      *Interceptor
	version byte

	mu     sync.Mutex
	queue  []Event
	notify chan struct{}

	out    chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewInbound starts draining group's stream immediately, decoding through
// version and classifying through ic, publishing non-Discovery events on
// the returned Inbound's Events channel.
func NewInbound(ctx context.Context, group *netgroup.Group, ic *Interceptor, version byte) *Inbound {
	ctx, cancel := context.WithCancel(ctx)
	ib := &Inbound{
		ic:      ic,
		version: version,
		notify:  make(chan struct{}, 1),
		out:     make(chan Event, 1),
		cancel:  cancel,
	}
	ib.wg.Add(2)
	go ib.pumpDecode(ctx, group)
	go ib.pumpDeliver(ctx)
	return ib
}

// Events is the classified, non-Discovery event stream.
func (ib *Inbound) Events() <-chan Event { return ib.out }

// Close aborts both pump goroutines.
func (ib *Inbound) Close() {
	ib.cancel()
	ib.wg.Wait()
}

func (ib *Inbound) pumpDecode(ctx context.Context, group *netgroup.Group) {
	defer ib.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case dg, ok := <-group.Stream():
			if !ok {
				return
			}
			ib.decodeOne(dg)
		}
	}
}

func (ib *Inbound) decodeOne(dg netgroup.Datagram) {
	d := wire.NewDecoder(ib.version)
	d.Fill(dg.Data)
	for {
		m, result, err := d.Next()
		switch result {
		case wire.NeedMore:
			return
		case wire.FrameDiscarded:
			continue
		case wire.FrameMalformed:
			nlog.Warningf("ioplane: inbound: malformed frame from %s: %v", dg.From, err)
			d.DropFrame()
			continue
		case wire.FrameDecoded:
			if m.Kind == wire.KindTransfer && m.Transfer != nil {
				if err := wire.DecompressTransfer(m.Transfer); err != nil {
					nlog.Warningf("ioplane: inbound: decompress transfer from %s: %v", dg.From, err)
					continue
				}
			}
			if ev, ok := ib.ic.Classify(dg.Local, dg.From, *m); ok {
				ib.push(ev)
			}
		}
	}
}

func (ib *Inbound) push(ev Event) {
	ib.mu.Lock()
	ib.queue = append(ib.queue, ev)
	ib.mu.Unlock()
	select {
	case ib.notify <- struct{}{}:
	default:
	}
}

func (ib *Inbound) pumpDeliver(ctx context.Context) {
	defer ib.wg.Done()
	defer close(ib.out)
	for {
		ib.mu.Lock()
		if len(ib.queue) == 0 {
			ib.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-ib.notify:
				continue
			}
		}
		ev := ib.queue[0]
		ib.queue = ib.queue[1:]
		ib.mu.Unlock()

		select {
		case ib.out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
