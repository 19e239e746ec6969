package ioplane

import (
	"context"
	"sync"

	"github.com/glidewire/hotmesh/internal/linkstate"
	"github.com/glidewire/hotmesh/internal/netgroup"
	"github.com/glidewire/hotmesh/internal/nlog"
	"github.com/glidewire/hotmesh/internal/wire"
)

// Outbound consumes (HostID, Msg) pairs from the session/task layer,
// assigns a path via the link-state table, and sends through the socket
// group's matching sink. A send error is logged and dropped — it does
// not automatically invoke solve; the session layer decides recovery
// based on its own ACK timeouts.
type Outbound struct {
	table   *linkstate.Table
	group   *netgroup.Group
	version byte

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutbound starts the worker goroutine draining sink immediately.
func NewOutbound(ctx context.Context, table *linkstate.Table, group *netgroup.Group, sink EventSink, version byte) *Outbound {
	ctx, cancel := context.WithCancel(ctx)
	ob := &Outbound{table: table, group: group, version: version, cancel: cancel}
	ob.wg.Add(1)
	go ob.run(ctx, sink)
	return ob
}

// Close cancels the worker and waits for it to return. The worker checks
// for cancellation only between sink.Recv calls, so a Recv that is blocked
// keeps Close waiting until it returns.
func (ob *Outbound) Close() {
	ob.cancel()
	ob.wg.Wait()
}

func (ob *Outbound) run(ctx context.Context, sink EventSink) {
	defer ob.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		host, msg, ok := sink.Recv()
		if !ok {
			return
		}
		ob.sendOne(host, msg)
	}
}

func (ob *Outbound) sendOne(host wire.HostID, msg wire.Msg) {
	assigned, err := ob.table.Assign(host)
	if err != nil {
		nlog.Warningf("ioplane: outbound: assign %s: %v", host, err)
		return
	}

	conn, ok := ob.group.Sink(assigned.Local)
	if !ok {
		nlog.Warningf("ioplane: outbound: no sink bound to %s", assigned.Local)
		return
	}

	if msg.Kind == wire.KindTransfer && msg.Transfer != nil {
		if err := wire.CompressTransfer(msg.Transfer); err != nil {
			nlog.Warningf("ioplane: outbound: compress transfer to %s: %v", host, err)
			return
		}
	}

	encoded, err := wire.Encode(msg, ob.version)
	if err != nil {
		nlog.Warningf("ioplane: outbound: encode to %s: %v", host, err)
		return
	}

	if _, err := conn.WriteToUDPAddrPort(encoded, assigned.Remote.Addr.UDPAddrPort(assigned.Remote.Port)); err != nil {
		nlog.Warningf("ioplane: outbound: send to %s via %s: %v", host, assigned.Remote, err)
		return
	}
}
