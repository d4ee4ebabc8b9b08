package hostproto

import (
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec streams msgpack-encoded Inbound/Outbound messages over a raw
// connection. msgpack values are self-delimiting, so unlike the
// teacher's newline-framed JSON (pkg/server/server.go's
// bufio.ReadString('\n')) no explicit framing is needed: the decoder
// consumes exactly one encoded value per Read call.
type Codec struct {
	dec *msgpack.Decoder
	enc *msgpack.Encoder
	// encMu serializes WriteOutbound against concurrent callers: the
	// event loop's own writes and a periodic stats publisher both write
	// to the same underlying writer, and msgpack.Encoder.Encode is not
	// safe to call concurrently from two goroutines.
	encMu sync.Mutex
}

// NewCodec wraps r/w for reading Inbound and writing Outbound messages.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	return &Codec{
		dec: msgpack.NewDecoder(r),
		enc: msgpack.NewEncoder(w),
	}
}

// ReadInbound blocks for the next inbound message. It returns io.EOF
// when the host closes its write side.
func (c *Codec) ReadInbound() (Inbound, error) {
	var in Inbound
	if err := c.dec.Decode(&in); err != nil {
		return Inbound{}, err
	}
	return in, nil
}

// WriteOutbound encodes and flushes one outbound message.
func (c *Codec) WriteOutbound(out Outbound) error {
	c.encMu.Lock()
	defer c.encMu.Unlock()
	return c.enc.Encode(out)
}
