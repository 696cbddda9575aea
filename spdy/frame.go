// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spdy

import (
	"bytes"

	"github.com/go-spdy/spdy/bitio"
)

// commonHeaderLen is the size in bytes of the header that precedes
// every frame's payload.
const commonHeaderLen = 8

// ControlFrameHeader is the unpacked common header shared by every
// control frame.
type ControlFrameHeader struct {
	Version   Version
	FrameType ControlFrameType
	Flags     ControlFlags
	Length    uint32
}

// Fin reports whether the FIN flag (bit 0) is set.
func (h ControlFrameHeader) Fin() bool { return h.Flags&ControlFlagFin != 0 }

// DataFrame carries opaque stream payload.
type DataFrame struct {
	StreamID uint32
	Flags    DataFlags
	Data     []byte
}

func (*DataFrame) spdyFrame() {}

// Fin reports whether the FIN flag (bit 0) is set.
func (f *DataFrame) Fin() bool { return f.Flags&DataFlagFin != 0 }

// SynStreamFrame opens a new stream, optionally associated with one the
// peer already has open (server push).
type SynStreamFrame struct {
	Header               ControlFrameHeader
	StreamID              uint32
	AssociatedToStreamID  uint32
	Priority              uint8 // 2 bits (v2) or 3 bits (v3); high bits unused
	Slot                  uint8 // v3 only
	Headers               *Headers
}

func (*SynStreamFrame) spdyFrame() {}

// Fin reports whether the FIN flag is set.
func (f *SynStreamFrame) Fin() bool { return f.Header.Flags&ControlFlagFin != 0 }

// SynReplyFrame replies to a SYN_STREAM.
type SynReplyFrame struct {
	Header   ControlFrameHeader
	StreamID uint32
	Headers  *Headers
}

func (*SynReplyFrame) spdyFrame() {}

// RstStreamFrame aborts a stream.
type RstStreamFrame struct {
	Header    ControlFrameHeader
	StreamID  uint32
	ErrorCode RSTStatusCode
}

func (*RstStreamFrame) spdyFrame() {}

// SettingsFrame carries session tuning values.
type SettingsFrame struct {
	Header         ControlFrameHeader
	ClearPersisted bool
	Entries        []SettingsEntry
}

func (*SettingsFrame) spdyFrame() {}

// PingFrame measures round-trip time; the peer echoes UniqID back.
type PingFrame struct {
	Header ControlFrameHeader
	UniqID uint32
}

func (*PingFrame) spdyFrame() {}

// GoAwayFrame announces that no further streams above LastStreamID will
// be processed. StatusCode is only meaningful in SPDY/3.
type GoAwayFrame struct {
	Header       ControlFrameHeader
	LastStreamID uint32
	StatusCode   GoAwayStatus
}

func (*GoAwayFrame) spdyFrame() {}

// HeadersFrame carries additional headers for an already-open stream.
type HeadersFrame struct {
	Header   ControlFrameHeader
	StreamID uint32
	Headers  *Headers
}

func (*HeadersFrame) spdyFrame() {}

// WindowUpdateFrame grants additional flow-control credit. Valid in
// SPDY/3 only.
type WindowUpdateFrame struct {
	Header          ControlFrameHeader
	StreamID        uint32
	DeltaWindowSize uint32
}

func (*WindowUpdateFrame) spdyFrame() {}

// NoopFrame is a SPDY/2 frame carrying no information; a conforming
// peer discards it. It was formally removed in SPDY/3.
type NoopFrame struct {
	Header ControlFrameHeader
}

func (*NoopFrame) spdyFrame() {}

// codec encodes and decodes exactly one frame per call against a fixed
// version and a directional compressor pair. Context is the only
// legitimate holder of a codec: the compressor state it wraps is
// directional session state, never shared.
type codec struct {
	version Version
	deflate *compressor
	inflate *decompressor
}

// encode returns the full wire representation of f, including the
// 8-byte common header.
func (c *codec) encode(f Frame) ([]byte, error) {
	switch v := f.(type) {
	case *DataFrame:
		return c.encodeData(v)
	case *SynStreamFrame:
		return c.encodeSynStream(v)
	case *SynReplyFrame:
		return c.encodeSynReply(v)
	case *RstStreamFrame:
		return c.encodeRstStream(v)
	case *SettingsFrame:
		return c.encodeSettings(v)
	case *PingFrame:
		return c.encodePing(v)
	case *GoAwayFrame:
		return c.encodeGoAway(v)
	case *HeadersFrame:
		return c.encodeHeaders(v)
	case *WindowUpdateFrame:
		return c.encodeWindowUpdate(v)
	default:
		return nil, &InvalidFrameError{Detail: "unencodable frame type"}
	}
}

// decode parses at most one frame from the front of buf. It never
// mutates buf. On success it returns the frame and the number of bytes
// consumed; if buf does not yet hold a complete frame it returns
// ErrNeedMore.
func (c *codec) decode(buf []byte) (Frame, int, error) {
	if len(buf) < commonHeaderLen {
		return nil, 0, ErrNeedMore
	}
	firstWord := be32(buf[0:4])
	secondWord := be32(buf[4:8])
	flags := ControlFlags(secondWord >> 24)
	length := secondWord & 0xffffff

	if firstWord&0x80000000 == 0 {
		streamID := firstWord & 0x7fffffff
		total := commonHeaderLen + int(length)
		if len(buf) < total {
			return nil, 0, ErrNeedMore
		}
		return &DataFrame{StreamID: streamID, Flags: DataFlags(flags), Data: append([]byte(nil), buf[commonHeaderLen:total]...)}, total, nil
	}

	version := Version((firstWord >> 16) & 0x7fff)
	frameType := ControlFrameType(firstWord & 0xffff)
	total := commonHeaderLen + int(length)
	if len(buf) < total {
		return nil, 0, ErrNeedMore
	}
	if !version.valid() {
		return nil, total, &FramingError{Kind: UnsupportedVersionKind, Detail: "control frame version"}
	}
	// Layout selection follows the context's negotiated version, not
	// the wire's version field (spec.md §4.3): a frame whose wire
	// version differs from the session's is decoded with the session's
	// layout and so fails on its own terms — typically BadLength — not
	// with a version-mismatch error. The same rule applies to NOOP: a
	// SPDY/3 context rejects type 5 as unknown even if the wire bytes
	// carry version 2, since NOOP was formally removed in SPDY/3.
	header := ControlFrameHeader{Version: c.version, FrameType: frameType, Flags: flags, Length: length}

	payload := buf[commonHeaderLen:total]
	f, err := c.decodeControlPayload(header, payload)
	if err != nil {
		// total bytes were validated against the 24-bit length field
		// above, so the caller can skip the offending frame and resume
		// parsing at the next one (spec.md's get_frame contract) even
		// though this frame failed to decode.
		return nil, total, err
	}
	return f, total, nil
}

func (c *codec) decodeControlPayload(h ControlFrameHeader, payload []byte) (Frame, error) {
	switch h.FrameType {
	case TypeSynStream:
		return c.decodeSynStream(h, payload)
	case TypeSynReply:
		return c.decodeSynReply(h, payload)
	case TypeRstStream:
		return c.decodeRstStream(h, payload)
	case TypeSettings:
		return c.decodeSettings(h, payload)
	case TypeNoop:
		if h.Version == Version2 {
			return &NoopFrame{Header: h}, nil
		}
		return nil, &FramingError{Kind: UnknownType, Detail: "NOOP removed in SPDY/3"}
	case TypePing:
		return c.decodePing(h, payload)
	case TypeGoAway:
		return c.decodeGoAway(h, payload)
	case TypeHeaders:
		return c.decodeHeadersFrame(h, payload)
	case TypeWindowUpdate:
		return c.decodeWindowUpdate(h, payload)
	default:
		return nil, &FramingError{Kind: UnknownType, Detail: "unrecognized control frame type"}
	}
}

// --- DATA ---

func (c *codec) encodeData(f *DataFrame) ([]byte, error) {
	if len(f.Data) > MaxFrameDataLength {
		return nil, &FramingError{Kind: BadLength, Detail: "data payload exceeds 24-bit length field"}
	}
	w := bitio.NewWriter()
	if err := w.WriteBits(0, 1); err != nil {
		return nil, err
	}
	if err := w.WriteBits(uint64(f.StreamID), 31); err != nil {
		return nil, err
	}
	if err := w.WriteBits(uint64(f.Flags), 8); err != nil {
		return nil, err
	}
	if err := w.WriteBits(uint64(len(f.Data)), 24); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(f.Data); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// --- control frame header writer/reader shared by every variant ---

func (c *codec) encodeControlFrame(ft ControlFrameType, flags ControlFlags, layout []slot, fs fields, tailBytes []byte) ([]byte, error) {
	body := bitio.NewWriter()
	full := append(append([]slot(nil), layout...), slot{"", tail})
	if err := encodeSlots(body, full, fs, tailBytes); err != nil {
		return nil, err
	}
	payload := body.Bytes()
	if len(payload) > MaxFrameDataLength {
		return nil, &FramingError{Kind: BadLength, Detail: "control payload exceeds 24-bit length field"}
	}
	head := bitio.NewWriter()
	if err := head.WriteBits(1, 1); err != nil {
		return nil, err
	}
	if err := head.WriteBits(uint64(c.version), 15); err != nil {
		return nil, err
	}
	if err := head.WriteBits(uint64(ft), 16); err != nil {
		return nil, err
	}
	if err := head.WriteBits(uint64(flags), 8); err != nil {
		return nil, err
	}
	if err := head.WriteBits(uint64(len(payload)), 24); err != nil {
		return nil, err
	}
	return append(head.Bytes(), payload...), nil
}

func decodeControlFrame(payload []byte, layout []slot, fs fields) ([]byte, error) {
	full := append(append([]slot(nil), layout...), slot{"", tail})
	r := bitio.NewReader(payload)
	tailBytes, err := decodeSlots(r, full, fs)
	if _, short := err.(*bitio.LayoutError); short {
		// The payload is shorter than the layout: a wire error, not a
		// caller's layout bug.
		return nil, &FramingError{Kind: Truncated, Detail: err.Error()}
	}
	return tailBytes, err
}

func synStreamLayout(v Version) []slot {
	if v == Version2 {
		return synStreamLayoutV2
	}
	return synStreamLayoutV3
}

func synReplyLayout(v Version) []slot {
	if v == Version2 {
		return synReplyLayoutV2
	}
	return synReplyLayoutV3
}

func goAwayLayout(v Version) []slot {
	if v == Version2 {
		return goAwayLayoutV2
	}
	return goAwayLayoutV3
}

func headersLayout(v Version) []slot {
	if v == Version2 {
		return headersLayoutV2
	}
	return headersLayoutV3
}

// --- SYN_STREAM ---

func (c *codec) encodeSynStream(f *SynStreamFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, &FramingError{Kind: ZeroStreamID}
	}
	compressedHeaders, err := c.deflate.compressHeaders(f.Headers)
	if err != nil {
		return nil, err
	}
	fs := fields{
		"stream_id":       {get: func() uint64 { return uint64(f.StreamID) }},
		"assoc_stream_id": {get: func() uint64 { return uint64(f.AssociatedToStreamID) }},
		"priority":        {get: func() uint64 { return uint64(f.Priority) }},
		"slot":            {get: func() uint64 { return uint64(f.Slot) }},
	}
	return c.encodeControlFrame(TypeSynStream, f.Header.Flags, synStreamLayout(c.version), fs, compressedHeaders)
}

func (c *codec) decodeSynStream(h ControlFrameHeader, payload []byte) (*SynStreamFrame, error) {
	f := &SynStreamFrame{Header: h}
	fs := fields{
		"stream_id":       {set: func(v uint64) { f.StreamID = uint32(v) }},
		"assoc_stream_id": {set: func(v uint64) { f.AssociatedToStreamID = uint32(v) }},
		"priority":        {set: func(v uint64) { f.Priority = uint8(v) }},
		"slot":            {set: func(v uint64) { f.Slot = uint8(v) }},
	}
	compressed, err := decodeControlFrame(payload, synStreamLayout(h.Version), fs)
	if err != nil {
		return nil, err
	}
	// Decompress unconditionally, before validating stream_id: the
	// inflate stream is persistent session state shared with every
	// subsequent header-bearing frame, so its compressed bytes must be
	// fed through even when this frame itself turns out to be invalid
	// (spec.md Property 5 — compression continuity).
	headers, err := c.inflate.decodeHeaders(compressed)
	if err != nil {
		return nil, err
	}
	if f.StreamID == 0 {
		return nil, &FramingError{Kind: ZeroStreamID}
	}
	f.Headers = headers
	return f, nil
}

// --- SYN_REPLY ---

func (c *codec) encodeSynReply(f *SynReplyFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, &FramingError{Kind: ZeroStreamID}
	}
	compressedHeaders, err := c.deflate.compressHeaders(f.Headers)
	if err != nil {
		return nil, err
	}
	fs := fields{"stream_id": {get: func() uint64 { return uint64(f.StreamID) }}}
	return c.encodeControlFrame(TypeSynReply, f.Header.Flags, synReplyLayout(c.version), fs, compressedHeaders)
}

func (c *codec) decodeSynReply(h ControlFrameHeader, payload []byte) (*SynReplyFrame, error) {
	f := &SynReplyFrame{Header: h}
	fs := fields{"stream_id": {set: func(v uint64) { f.StreamID = uint32(v) }}}
	compressed, err := decodeControlFrame(payload, synReplyLayout(h.Version), fs)
	if err != nil {
		return nil, err
	}
	// See decodeSynStream: decompress before validating stream_id so the
	// persistent inflate stream stays in sync with the peer's compressor.
	headers, err := c.inflate.decodeHeaders(compressed)
	if err != nil {
		return nil, err
	}
	if f.StreamID == 0 {
		return nil, &FramingError{Kind: ZeroStreamID}
	}
	f.Headers = headers
	return f, nil
}

// --- RST_STREAM ---

func (c *codec) encodeRstStream(f *RstStreamFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, &FramingError{Kind: ZeroStreamID}
	}
	if f.ErrorCode == 0 {
		return nil, &InvalidFrameError{Detail: "RST_STREAM status must not be zero"}
	}
	fs := fields{
		"stream_id":  {get: func() uint64 { return uint64(f.StreamID) }},
		"error_code": {get: func() uint64 { return uint64(f.ErrorCode) }},
	}
	return c.encodeControlFrame(TypeRstStream, 0, rstStreamLayout, fs, nil)
}

func (c *codec) decodeRstStream(h ControlFrameHeader, payload []byte) (*RstStreamFrame, error) {
	if h.Length != 8 {
		return nil, &FramingError{Kind: BadLength, Detail: "RST_STREAM"}
	}
	f := &RstStreamFrame{Header: h}
	fs := fields{
		"stream_id":  {set: func(v uint64) { f.StreamID = uint32(v) }},
		"error_code": {set: func(v uint64) { f.ErrorCode = RSTStatusCode(v) }},
	}
	if _, err := decodeControlFrame(payload, rstStreamLayout, fs); err != nil {
		return nil, err
	}
	if f.StreamID == 0 {
		return nil, &FramingError{Kind: ZeroStreamID}
	}
	if f.ErrorCode == 0 {
		return nil, &FramingError{Kind: InvalidControlFrame, Detail: "RST_STREAM status must not be zero"}
	}
	return f, nil
}

// --- SETTINGS ---

func (c *codec) encodeSettings(f *SettingsFrame) ([]byte, error) {
	var entries bytes.Buffer
	if err := encodeSettingsEntries(&entries, f.Entries, c.version); err != nil {
		return nil, err
	}
	flags := ControlFlags(0)
	if f.ClearPersisted {
		flags = SettingsClearPersisted
	}
	return c.encodeControlFrame(TypeSettings, flags, nil, nil, entries.Bytes())
}

func (c *codec) decodeSettings(h ControlFrameHeader, payload []byte) (*SettingsFrame, error) {
	tail, err := decodeControlFrame(payload, nil, nil)
	if err != nil {
		return nil, err
	}
	entries, err := decodeSettingsEntries(bytes.NewReader(tail), h.Version)
	if err != nil {
		return nil, err
	}
	return &SettingsFrame{
		Header:         h,
		ClearPersisted: h.Flags&SettingsClearPersisted != 0,
		Entries:        entries,
	}, nil
}

// --- PING ---

func (c *codec) encodePing(f *PingFrame) ([]byte, error) {
	fs := fields{"uniq_id": {get: func() uint64 { return uint64(f.UniqID) }}}
	return c.encodeControlFrame(TypePing, 0, pingLayout, fs, nil)
}

func (c *codec) decodePing(h ControlFrameHeader, payload []byte) (*PingFrame, error) {
	if h.Length != 4 {
		return nil, &FramingError{Kind: BadLength, Detail: "PING"}
	}
	f := &PingFrame{Header: h}
	fs := fields{"uniq_id": {set: func(v uint64) { f.UniqID = uint32(v) }}}
	if _, err := decodeControlFrame(payload, pingLayout, fs); err != nil {
		return nil, err
	}
	return f, nil
}

// --- GOAWAY ---

func (c *codec) encodeGoAway(f *GoAwayFrame) ([]byte, error) {
	fs := fields{
		"last_stream_id": {get: func() uint64 { return uint64(f.LastStreamID) }},
		"status_code":    {get: func() uint64 { return uint64(f.StatusCode) }},
	}
	return c.encodeControlFrame(TypeGoAway, 0, goAwayLayout(c.version), fs, nil)
}

func (c *codec) decodeGoAway(h ControlFrameHeader, payload []byte) (*GoAwayFrame, error) {
	wantLen := uint32(4)
	if h.Version == Version3 {
		wantLen = 8
	}
	if h.Length != wantLen {
		return nil, &FramingError{Kind: BadLength, Detail: "GOAWAY"}
	}
	f := &GoAwayFrame{Header: h}
	fs := fields{
		"last_stream_id": {set: func(v uint64) { f.LastStreamID = uint32(v) }},
		"status_code":    {set: func(v uint64) { f.StatusCode = GoAwayStatus(v) }},
	}
	if _, err := decodeControlFrame(payload, goAwayLayout(h.Version), fs); err != nil {
		return nil, err
	}
	return f, nil
}

// --- HEADERS ---

func (c *codec) encodeHeaders(f *HeadersFrame) ([]byte, error) {
	if f.StreamID == 0 {
		return nil, &FramingError{Kind: ZeroStreamID}
	}
	compressedHeaders, err := c.deflate.compressHeaders(f.Headers)
	if err != nil {
		return nil, err
	}
	fs := fields{"stream_id": {get: func() uint64 { return uint64(f.StreamID) }}}
	return c.encodeControlFrame(TypeHeaders, f.Header.Flags, headersLayout(c.version), fs, compressedHeaders)
}

func (c *codec) decodeHeadersFrame(h ControlFrameHeader, payload []byte) (*HeadersFrame, error) {
	f := &HeadersFrame{Header: h}
	fs := fields{"stream_id": {set: func(v uint64) { f.StreamID = uint32(v) }}}
	compressed, err := decodeControlFrame(payload, headersLayout(h.Version), fs)
	if err != nil {
		return nil, err
	}
	// See decodeSynStream: decompress before validating stream_id so the
	// persistent inflate stream stays in sync with the peer's compressor.
	headers, err := c.inflate.decodeHeaders(compressed)
	if err != nil {
		return nil, err
	}
	if f.StreamID == 0 {
		return nil, &FramingError{Kind: ZeroStreamID}
	}
	f.Headers = headers
	return f, nil
}

// --- WINDOW_UPDATE ---

func (c *codec) encodeWindowUpdate(f *WindowUpdateFrame) ([]byte, error) {
	if c.version < Version3 {
		return nil, &InvalidFrameError{Detail: "WINDOW_UPDATE requires SPDY/3 or later"}
	}
	fs := fields{
		"stream_id":         {get: func() uint64 { return uint64(f.StreamID) }},
		"delta_window_size": {get: func() uint64 { return uint64(f.DeltaWindowSize) }},
	}
	return c.encodeControlFrame(TypeWindowUpdate, 0, windowUpdateLayout, fs, nil)
}

func (c *codec) decodeWindowUpdate(h ControlFrameHeader, payload []byte) (*WindowUpdateFrame, error) {
	if h.Length != 8 {
		return nil, &FramingError{Kind: BadLength, Detail: "WINDOW_UPDATE"}
	}
	f := &WindowUpdateFrame{Header: h}
	fs := fields{
		"stream_id":         {set: func(v uint64) { f.StreamID = uint32(v) }},
		"delta_window_size": {set: func(v uint64) { f.DeltaWindowSize = uint32(v) }},
	}
	if _, err := decodeControlFrame(payload, windowUpdateLayout, fs); err != nil {
		return nil, err
	}
	return f, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
