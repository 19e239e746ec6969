// Package hotmesh is the thin facade wiring the core's internal packages
// (HotFile, xrange, the link-state table, the socket group, and the
// Inbound/Outbound message plane) into a single collaborator-facing
// surface. External callers construct a Node, supplying the NIC
// enumeration and session/task collaborators, and get back a running
// peer that decodes, classifies, and dispatches messages.
package hotmesh

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glidewire/hotmesh/internal/cfgstore"
	"github.com/glidewire/hotmesh/internal/hotfile"
	"github.com/glidewire/hotmesh/internal/ioplane"
	"github.com/glidewire/hotmesh/internal/linkstate"
	"github.com/glidewire/hotmesh/internal/netgroup"
	"github.com/glidewire/hotmesh/internal/rom"
	"github.com/glidewire/hotmesh/internal/stats"
	"github.com/glidewire/hotmesh/internal/wire"
)

// Config holds the process-wide knobs a Node needs at construction.
// Registerer may be nil to skip Prometheus registration entirely. HostID
// may be left empty to have Start mint a fresh one.
type Config struct {
	ProtocolPort uint16
	Verbose      bool
	WireVersion  byte
	HostID       wire.HostID
	Registerer   prometheus.Registerer
}

// Node owns every running goroutine for one peer: the socket group, the
// link-state table and its recovery scheduler, and the Inbound/Outbound
// workers. Close tears all of it down.
type Node struct {
	HostID wire.HostID
	Table  *linkstate.Table
	Stats  *stats.Registry
	Cfg    *cfgstore.Store

	scheduler *linkstate.ResumeScheduler
	group     *netgroup.Group
	inbound   *ioplane.Inbound
	outbound  *ioplane.Outbound
}

// Start binds the socket group over nics, wires the link-state table and
// message plane, and begins draining/dispatching immediately. sink
// supplies outbound (HostID, Msg) pairs from the session/task layer;
// consume Node.Events() for the classified inbound stream.
func Start(ctx context.Context, nics netgroup.NICSource, sink ioplane.EventSink, cfg Config) (*Node, error) {
	rom.Set(cfg.ProtocolPort, cfg.Verbose)

	hostID := cfg.HostID
	if hostID == "" {
		hostID = wire.NewHostID()
	}

	reg := stats.New(cfg.Registerer)

	cs, err := cfgstore.Open()
	if err != nil {
		return nil, err
	}

	scheduler := linkstate.NewResumeScheduler()
	table := linkstate.New(scheduler, reg)

	group, err := netgroup.Join(ctx, nics, rom.ProtocolPort())
	if err != nil {
		scheduler.Close()
		cs.Close()
		return nil, err
	}

	ic := ioplane.NewInterceptor(table)
	inbound := ioplane.NewInbound(ctx, group, ic, cfg.WireVersion)
	outbound := ioplane.NewOutbound(ctx, table, group, sink, cfg.WireVersion)

	return &Node{
		HostID:    hostID,
		Table:     table,
		Stats:     reg,
		Cfg:       cs,
		scheduler: scheduler,
		group:     group,
		inbound:   inbound,
		outbound:  outbound,
	}, nil
}

// Events is the classified, non-Discovery inbound event stream.
func (n *Node) Events() <-chan ioplane.Event { return n.inbound.Events() }

// OpenFile wraps an already-opened random-access file handle in a
// write-back HotFile sharing this node's metrics.
func (n *Node) OpenFile(f *os.File) (*hotfile.HotFile, error) {
	return hotfile.Open(f, n.Stats)
}

// Close aborts every worker and releases the socket group, in dependency
// order: message plane first (so nothing touches the group mid-close),
// then the group, then the scheduler and config store.
func (n *Node) Close() error {
	n.inbound.Close()
	n.outbound.Close()
	groupErr := n.group.Close()
	n.scheduler.Close()
	n.Cfg.Close()
	return groupErr
}
