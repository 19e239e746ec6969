// Package netgroup binds one UDP socket per NIC address, joins the
// link-local multicast discovery group on LAN sockets, and exposes a
// sink-map-plus-merged-stream split to the Inbound/Outbound planes.
package netgroup

import (
	"context"
	"net"
	"net/netip"
	"sync"

	"golang.org/x/net/ipv6"
	"golang.org/x/sync/errgroup"

	"github.com/glidewire/hotmesh/internal/nlog"
	"github.com/glidewire/hotmesh/internal/netaddr"
)

// discoveryGroup is the link-local multicast address Discovery messages are
// announced on.
var discoveryGroup = netip.MustParseAddr("ff12::1")

// NICSource is the out-of-scope NIC enumeration collaborator: it yields the
// ScopedAddrs to bind sockets on.
type NICSource interface {
	Addrs(ctx context.Context) ([]netaddr.ScopedAddr, error)
}

// Datagram is one received UDP payload, tagged with where it came from and
// which local socket received it (so Outbound can reply from the same
// local endpoint).
type Datagram struct {
	Data  []byte
	From  netaddr.Endpoint
	Local netaddr.Endpoint
}

type socket struct {
	conn  *net.UDPConn
	local netaddr.Endpoint
}

// Group owns one bound socket per NIC address plus the goroutines fanning
// their reads into a single merged stream.
type Group struct {
	mu     sync.RWMutex
	sinks  map[netaddr.Endpoint]*socket
	stream chan Datagram

	cancel context.CancelFunc
	eg     *errgroup.Group
}

// Join binds a socket for every address nics yields on port, joining
// link-local multicast where applicable, and starts the fan-in pumps.
func Join(ctx context.Context, nics NICSource, port uint16) (*Group, error) {
	addrs, err := nics.Addrs(ctx)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	eg, runCtx := errgroup.WithContext(runCtx)

	g := &Group{
		sinks:  make(map[netaddr.Endpoint]*socket, len(addrs)),
		stream: make(chan Datagram, 256),
		cancel: cancel,
		eg:     eg,
	}

	for _, addr := range addrs {
		ep := netaddr.Endpoint{Addr: addr, Port: port}
		sock, err := bind(addr, port)
		if err != nil {
			cancel()
			return nil, err
		}
		if addr.IsLAN() {
			if err := joinDiscovery(sock, addr.Scope()); err != nil {
				nlog.Warningf("netgroup: %s: multicast join failed: %v", ep, err)
			}
		}
		s := &socket{conn: sock, local: ep}
		g.sinks[ep] = s
		eg.Go(func() error { return g.pump(runCtx, s) })
	}

	return g, nil
}

func bind(addr netaddr.ScopedAddr, port uint16) (*net.UDPConn, error) {
	ap := addr.UDPAddrPort(port)
	conn, err := net.ListenUDP("udp6", net.UDPAddrFromAddrPort(ap))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// joinDiscovery joins ff12::1 scoped by the interface and disables
// multicast loopback.
func joinDiscovery(conn *net.UDPConn, scope netaddr.ScopeID) error {
	pc := ipv6.NewPacketConn(conn)
	iface, err := net.InterfaceByIndex(int(scope))
	if err != nil {
		return err
	}
	group := &net.UDPAddr{IP: net.IP(discoveryGroup.AsSlice())}
	if err := pc.JoinGroup(iface, group); err != nil {
		return err
	}
	return pc.SetMulticastLoopback(false)
}

// pump drains one socket's reads into the shared merged stream until ctx
// is cancelled or the read errors.
func (g *Group) pump(ctx context.Context, s *socket) error {
	buf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, from, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		fromScoped, serr := scopedFrom(from)
		if serr != nil {
			nlog.Warningf("netgroup: %s: dropping datagram from %s: %v", s.local, from, serr)
			continue
		}
		dg := Datagram{
			Data:  data,
			From:  netaddr.Endpoint{Addr: fromScoped, Port: from.Port()},
			Local: s.local,
		}
		select {
		case g.stream <- dg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func scopedFrom(ap netip.AddrPort) (netaddr.ScopedAddr, error) {
	addr := ap.Addr()
	if addr.IsLinkLocalUnicast() {
		var scope netaddr.ScopeID
		if iface, err := net.InterfaceByName(addr.Zone()); err == nil {
			scope = netaddr.ScopeID(iface.Index)
		}
		return netaddr.NewLAN(addr.WithZone(""), scope)
	}
	return netaddr.NewWAN(addr)
}

// Stream returns the merged, fan-in receive channel shared by every bound
// socket.
func (g *Group) Stream() <-chan Datagram { return g.stream }

// Sink returns the UDP socket bound to local, for Outbound to send from.
func (g *Group) Sink(local netaddr.Endpoint) (*net.UDPConn, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sinks[local]
	if !ok {
		return nil, false
	}
	return s.conn, true
}

// Close stops every pump and closes every socket; Wait returns once they've
// all unwound.
func (g *Group) Close() error {
	g.cancel()
	g.mu.Lock()
	for _, s := range g.sinks {
		s.conn.Close()
	}
	g.mu.Unlock()
	return g.Wait()
}

// Wait blocks until every pump goroutine has returned.
func (g *Group) Wait() error {
	if err := g.eg.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
