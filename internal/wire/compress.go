package wire

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v3"
)

// compressThreshold: below this size LZ4's framing overhead isn't worth
// paying.
const compressThreshold = 256

// CompressTransfer LZ4-compresses payload in place on the message when it's
// worth it, setting the Compressed flag the decoder side checks.
func CompressTransfer(m *TransferMsg) error {
	if len(m.Payload) < compressThreshold || m.Compressed {
		return nil
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(m.Payload); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	m.Payload = buf.Bytes()
	m.Compressed = true
	return nil
}

// DecompressTransfer reverses CompressTransfer; a no-op when the payload
// wasn't compressed.
func DecompressTransfer(m *TransferMsg) error {
	if !m.Compressed {
		return nil
	}
	r := lz4.NewReader(bytes.NewReader(m.Payload))
	out, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.Payload = out
	m.Compressed = false
	return nil
}
