// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spdy

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Role is the session's endpoint role. It fixes stream-ID and ping-ID
// parity for the lifetime of the Context: CLIENT allocates odd IDs,
// SERVER allocates even ones.
type Role int

const (
	Client Role = iota
	Server
)

func (r Role) String() string {
	if r == Server {
		return "server"
	}
	return "client"
}

// Context owns everything one side of a SPDY session needs to encode
// and decode frames: the directional compressor pair, the receive byte
// accumulator, the outgoing byte queue, and the stream-ID/ping-ID
// counters. Its version and role never change after construction. It
// is single-threaded by contract (spec.md §5); the mutex below is the
// "internal exclusive-access discipline" that contract permits but does
// not require — callers that already serialize access to one Context
// pay nothing extra for it.
type Context struct {
	mu sync.Mutex

	role    Role
	version Version
	codec   *codec

	streamID     uint32
	lastStreamID uint32
	peerStreamID uint32
	pingID       uint32

	input  []byte
	output []byte

	log     *zap.Logger
	metrics *contextMetrics
}

// Option configures a Context at construction.
type Option func(*Context)

// WithLogger attaches a zap.Logger for Debug-level frame tracing and
// Warn-level decode failures. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) { c.log = l }
}

// WithMetrics registers frame counters and a header-block size
// histogram on reg. Registration is opt-in: a Context never touches the
// default Prometheus registry on its own.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Context) { c.metrics = newContextMetrics(reg) }
}

// NewContext constructs a Context for one session. version must be 2 or
// 3.
func NewContext(role Role, version Version, opts ...Option) (*Context, error) {
	if !version.valid() {
		return nil, &InvalidFrameError{Detail: fmt.Sprintf("unsupported SPDY version %d", version)}
	}
	deflate, err := newCompressor(version)
	if err != nil {
		return nil, err
	}
	c := &Context{
		role:    role,
		version: version,
		codec:   &codec{version: version, deflate: deflate, inflate: newDecompressor(version)},
		log:     zap.NewNop(),
	}
	if role == Client {
		c.streamID, c.pingID = 1, 1
	} else {
		c.streamID, c.pingID = 2, 2
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PutFrame encodes f and appends the resulting bytes to the outgoing
// queue. If f carries a locally allocated stream ID, that ID must have
// been drawn from NextStreamID; PutFrame does not itself validate
// allocation, since a session may legitimately replay a SYN_STREAM built
// ahead of time with a reserved ID.
func (c *Context) PutFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	encoded, err := c.codec.encode(f)
	if err != nil {
		c.log.Warn("spdy: encode failed", zap.Error(err))
		return err
	}
	c.output = append(c.output, encoded...)
	if c.metrics != nil {
		c.metrics.observeEncode(f, len(encoded))
	}
	c.log.Debug("spdy: put frame", zap.String("role", c.role.String()), zap.Int("bytes", len(encoded)))
	return nil
}

// Outgoing returns the currently queued outbound bytes as one
// contiguous block and clears the queue.
func (c *Context) Outgoing() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.output
	c.output = nil
	return out
}

// Incoming appends freshly received bytes to the input accumulator. It
// does not parse them; call GetFrame to attempt a decode.
func (c *Context) Incoming(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.input = append(c.input, b...)
}

// GetFrame attempts to decode exactly one frame from the front of the
// input accumulator. On success it consumes those bytes, updates the
// peer stream-ID high-water mark, and returns the frame. If the
// accumulator holds only a strict prefix of the next frame, it returns
// ErrNeedMore and leaves the accumulator untouched. On any other codec
// error it returns that error; per spec.md §7, a CompressionError means
// the inflate stream is now poisoned and the caller should tear the
// session down rather than call GetFrame again.
func (c *Context) GetFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, n, err := c.codec.decode(c.input)
	if err == ErrNeedMore {
		return nil, ErrNeedMore
	}
	if err != nil {
		c.log.Warn("spdy: decode failed", zap.Error(err))
		if n > 0 {
			c.input = c.input[n:]
		}
		return nil, err
	}
	c.input = c.input[n:]
	c.observePeerStreamID(f)
	if c.metrics != nil {
		c.metrics.observeDecode(f, n)
	}
	c.log.Debug("spdy: got frame", zap.String("role", c.role.String()), zap.Int("bytes", n))
	return f, nil
}

func (c *Context) observePeerStreamID(f Frame) {
	var id uint32
	switch v := f.(type) {
	case *SynStreamFrame:
		id = v.StreamID
	case *SynReplyFrame:
		id = v.StreamID
	case *HeadersFrame:
		id = v.StreamID
	case *RstStreamFrame:
		id = v.StreamID
	case *WindowUpdateFrame:
		id = v.StreamID
	case *DataFrame:
		id = v.StreamID
	default:
		return
	}
	// IDs with this side's parity belong to streams opened locally.
	if id%2 == c.streamID%2 {
		return
	}
	if id > c.peerStreamID {
		c.peerStreamID = id
	}
}

// NextStreamID returns the current local stream-ID counter, then
// advances it by 2 and records it as LastStreamID.
func (c *Context) NextStreamID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.streamID
	c.streamID += 2
	c.lastStreamID = id
	return id
}

// NextPingID returns the current local ping-ID counter, then advances
// it by 2.
func (c *Context) NextPingID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.pingID
	c.pingID += 2
	return id
}

// LastStreamID returns the most recently allocated local stream ID, or
// 0 if NextStreamID has never been called.
func (c *Context) LastStreamID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStreamID
}

// PeerStreamID returns the highest peer-originated stream ID (one with
// the peer's parity) observed in any frame decoded so far, or 0 if none
// has been seen: the authoritative value for a
// GOAWAY a caller chooses to send (see Open Question 2 in spec.md §9:
// some deployments wrongly use NextStreamID()-2, which is the local
// counter, not the peer's).
func (c *Context) PeerStreamID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerStreamID
}

// Role returns the session's fixed role.
func (c *Context) Role() Role { return c.role }

// Version returns the session's fixed negotiated version.
func (c *Context) Version() Version { return c.version }
