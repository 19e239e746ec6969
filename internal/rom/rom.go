// Package rom holds read-mostly runtime settings, installed by Set and read
// far more often than written (hence "read-only-mostly").
package rom

import "sync/atomic"

type snapshot struct {
	protocolPort uint32
	verbose      bool
}

var cur atomic.Pointer[snapshot]

func init() {
	cur.Store(&snapshot{})
}

// Set installs a new read-mostly snapshot; hotmesh.Start calls it once
// with the values from its Config.
func Set(protocolPort uint16, verbose bool) {
	cur.Store(&snapshot{protocolPort: uint32(protocolPort), verbose: verbose})
}

func ProtocolPort() uint16 { return uint16(cur.Load().protocolPort) }
func Verbose() bool        { return cur.Load().verbose }
