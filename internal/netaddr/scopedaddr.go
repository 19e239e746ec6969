// Package netaddr implements ScopedAddr and Endpoint, tagged IPv6 address
// types: a unicast address is either link-local (LAN, carrying a scope id)
// or global unicast (WAN).
package netaddr

import (
	"fmt"
	"net/netip"
)

// ScopeID is the interface index a link-local address is bound to.
type ScopeID uint32

// ScopedAddr is a tagged union over {Lan{addr, scope}, Wan{addr}}. Go has
// no sum types; a boolean discriminant plus both payload fields (one of
// which is always zero) is the idiomatic substitute that still lets
// callers exhaustively switch with IsLAN/IsWAN rather than a type
// assertion.
type ScopedAddr struct {
	addr  netip.Addr
	scope ScopeID
	isLAN bool
}

// NewLAN validates addr is unicast link-local.
func NewLAN(addr netip.Addr, scope ScopeID) (ScopedAddr, error) {
	if !addr.Is6() || !addr.IsLinkLocalUnicast() {
		return ScopedAddr{}, fmt.Errorf("netaddr: %s is not a link-local unicast IPv6 address", addr)
	}
	return ScopedAddr{addr: addr, scope: scope, isLAN: true}, nil
}

// NewWAN validates addr is unicast global.
func NewWAN(addr netip.Addr) (ScopedAddr, error) {
	if !addr.Is6() || !addr.IsGlobalUnicast() || addr.IsLinkLocalUnicast() {
		return ScopedAddr{}, fmt.Errorf("netaddr: %s is not a global unicast IPv6 address", addr)
	}
	return ScopedAddr{addr: addr}, nil
}

func (s ScopedAddr) IsLAN() bool { return s.isLAN }
func (s ScopedAddr) IsWAN() bool { return !s.isLAN }

func (s ScopedAddr) Addr() netip.Addr { return s.addr }
func (s ScopedAddr) Scope() ScopeID   { return s.scope }

func (s ScopedAddr) String() string {
	if s.isLAN {
		return fmt.Sprintf("%s%%%d", s.addr, s.scope)
	}
	return s.addr.String()
}

// UDPAddrPort converts to a netip.AddrPort, zone included for LAN addrs;
// net.UDPAddrFromAddrPort turns it into the *net.UDPAddr that
// net.ListenUDP/net.DialUDP take.
func (s ScopedAddr) UDPAddrPort(port uint16) netip.AddrPort {
	a := s.addr
	if s.isLAN {
		a = a.WithZone(fmt.Sprintf("%d", s.scope))
	}
	return netip.AddrPortFrom(a, port)
}

// Endpoint is a (ScopedAddr, port) pair.
type Endpoint struct {
	Addr ScopedAddr
	Port uint16
}

func (e Endpoint) String() string { return fmt.Sprintf("%s:%d", e.Addr, e.Port) }
