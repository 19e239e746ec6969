package wire_test

import (
	"bytes"
	"testing"

	"github.com/glidewire/hotmesh/internal/wire"
)

func TestCompressTransferRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 20)
	m := &wire.TransferMsg{Host: "host-a", Payload: append([]byte(nil), payload...)}

	if err := wire.CompressTransfer(m); err != nil {
		t.Fatalf("CompressTransfer: %v", err)
	}
	if !m.Compressed {
		t.Fatalf("CompressTransfer did not set Compressed")
	}

	if err := wire.DecompressTransfer(m); err != nil {
		t.Fatalf("DecompressTransfer: %v", err)
	}
	if m.Compressed {
		t.Fatalf("DecompressTransfer left Compressed set")
	}
	if !bytes.Equal(m.Payload, payload) {
		t.Fatalf("round trip changed the payload")
	}
}

func TestCompressTransferSkipsSmallPayloads(t *testing.T) {
	m := &wire.TransferMsg{Host: "host-a", Payload: []byte("tiny")}
	if err := wire.CompressTransfer(m); err != nil {
		t.Fatalf("CompressTransfer: %v", err)
	}
	if m.Compressed {
		t.Fatalf("small payloads should not be compressed")
	}
}
