package wire

import (
	"encoding/binary"

	jsoniter "github.com/json-iterator/go"
)

const headerSize = 3

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Result discriminates what Decoder.Next produced.
type Result int

const (
	// NeedMore: not enough bytes buffered yet; call Fill and retry.
	NeedMore Result = iota
	// FrameDiscarded: a well-framed datagram whose version didn't match;
	// the decoder already advanced past it.
	FrameDiscarded
	// FrameMalformed: a well-framed datagram whose body failed to decode;
	// the decoder has NOT advanced — call DropFrame to skip it.
	FrameMalformed
	// FrameDecoded: a complete, well-typed message.
	FrameDecoded
)

// Encode produces the framed datagram: 2-byte big-endian total length
// (including the 3-byte header), 1-byte version, jsoniter body.
func Encode(m Msg, version byte) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, &Error{Kind: Decode, cause: err}
	}
	total := headerSize + len(body)
	if total > 0xFFFF {
		return nil, &Error{Kind: LengthOverflow}
	}
	out := make([]byte, total)
	binary.BigEndian.PutUint16(out[0:2], uint16(total))
	out[2] = version
	copy(out[headerSize:], body)
	return out, nil
}

// Decoder accumulates bytes across Fill calls and peels framed messages
// off the front, leaving any partial trailing frame for the next Fill.
type Decoder struct {
	buf     []byte
	version byte
}

func NewDecoder(version byte) *Decoder { return &Decoder{version: version} }

// Fill appends newly-received bytes to the decode buffer.
func (d *Decoder) Fill(b []byte) { d.buf = append(d.buf, b...) }

// Buffered reports how many undecoded bytes remain.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Next attempts to decode the next frame. See Result for the four
// outcomes; on FrameMalformed the caller must call DropFrame to advance.
func (d *Decoder) Next() (*Msg, Result, error) {
	if len(d.buf) < headerSize {
		return nil, NeedMore, nil
	}
	length := binary.BigEndian.Uint16(d.buf[0:2])
	version := d.buf[2]
	if len(d.buf) < int(length) {
		return nil, NeedMore, nil
	}
	// A length shorter than the header itself can't be trusted to bound a
	// body slice below; treat it as a malformed frame rather than panic.
	if length < headerSize {
		return nil, FrameMalformed, &Error{Kind: ShortFrame}
	}
	if version != d.version {
		d.buf = d.buf[length:]
		return nil, FrameDiscarded, nil
	}
	body := d.buf[headerSize:length]
	var m Msg
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, FrameMalformed, &Error{Kind: Decode, cause: err}
	}
	d.buf = d.buf[length:]
	return &m, FrameDecoded, nil
}

// DropFrame discards the current malformed frame after Next returned
// FrameMalformed, so the next Next call starts past it.
func (d *Decoder) DropFrame() {
	if len(d.buf) < headerSize {
		return
	}
	length := binary.BigEndian.Uint16(d.buf[0:2])
	if len(d.buf) < int(length) || length < headerSize {
		// Either truncated or self-inconsistent: no reliable resync point,
		// so drop everything buffered rather than risk a short slice.
		d.buf = d.buf[:0]
		return
	}
	d.buf = d.buf[length:]
}
