// Package ioplane implements the Inbound/Outbound message plane: a fan-in
// decode pump feeding classified events to the session/task collaborator,
// and a fan-out sender consuming outbound events via linkstate.Table.
package ioplane

import (
	"github.com/glidewire/hotmesh/internal/netaddr"
	"github.com/glidewire/hotmesh/internal/wire"
)

// Event is a decoded, non-Discovery message tagged by the endpoint it
// arrived from. Discovery messages never reach here — the Interceptor
// absorbs them into the link-state table directly.
type Event struct {
	From netaddr.Endpoint
	Msg  wire.Msg
}

// EventSink is where Outbound pulls (HostID, Msg) pairs to send; ok is
// false once the session/task layer has nothing left to send and the
// worker should stop.
type EventSink interface {
	Recv() (wire.HostID, wire.Msg, bool)
}
