// Package wire implements a framed UDP codec: a 3-byte header (big-endian
// length + version) followed by a jsoniter-encoded tagged Msg.
package wire

import (
	"sync"
	"time"

	"github.com/teris-io/shortid"
)

// HostID identifies a remote peer; the session/task layer mints these for
// remote hosts, NewHostID mints one for the local peer, and the wire layer
// otherwise only carries them opaquely.
type HostID string

var (
	hostIDOnce sync.Once
	hostIDGen  *shortid.Shortid
)

// NewHostID mints a short, collision-resistant HostID for a newly started
// local peer, lazily seeding the generator on first use.
func NewHostID() HostID {
	hostIDOnce.Do(func() {
		hostIDGen = shortid.MustNew(1, shortid.DefaultABC, uint64(time.Now().UnixNano()))
	})
	return HostID(hostIDGen.MustGenerate())
}

type (
	DiscoveryMsg struct {
		Host   HostID `json:"host"`
		Remote string `json:"remote"` // endpoint string form; netaddr lives above this package
	}
	AuthMsg struct {
		Host  HostID `json:"host"`
		State []byte `json:"state"` // opaque; the Noise-XX session layer owns the contents
	}
	TaskMsg struct {
		Owner HostID `json:"owner"`
		Hash  uint64 `json:"hash"`
		Name  string `json:"name"`
		Total uint64 `json:"total"`
	}
	TransferMsg struct {
		Host       HostID `json:"host"`
		Payload    []byte `json:"payload"`
		Compressed bool   `json:"compressed,omitempty"`
	}
)

// Kind discriminates the Msg sum type; Go lacks tagged unions so the
// envelope carries Kind plus one populated pointer field, and callers
// exhaustively switch on Kind rather than type-asserting an interface.
type Kind uint8

const (
	KindDiscovery Kind = iota + 1
	KindAuth
	KindTask
	KindTransfer
)

// Msg is the wire envelope; exactly one of the pointer fields matching Kind
// is non-nil after Decode.
type Msg struct {
	Kind      Kind          `json:"kind"`
	Discovery *DiscoveryMsg `json:"discovery,omitempty"`
	Auth      *AuthMsg      `json:"auth,omitempty"`
	Task      *TaskMsg      `json:"task,omitempty"`
	Transfer  *TransferMsg  `json:"transfer,omitempty"`
}

func NewDiscovery(m DiscoveryMsg) Msg { return Msg{Kind: KindDiscovery, Discovery: &m} }
func NewAuth(m AuthMsg) Msg           { return Msg{Kind: KindAuth, Auth: &m} }
func NewTask(m TaskMsg) Msg           { return Msg{Kind: KindTask, Task: &m} }
func NewTransfer(m TransferMsg) Msg   { return Msg{Kind: KindTransfer, Transfer: &m} }
