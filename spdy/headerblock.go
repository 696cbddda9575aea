// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spdy

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"strings"
)

// Headers is an ordered name/value list: the name/value block carried
// inside SYN_STREAM, SYN_REPLY and HEADERS frames. Insertion order is
// preserved on encode for determinism; it is not semantically
// significant. Duplicate names are rejected on decode with a
// FramingError, matching spec's "duplicate names are not supported".
type Headers struct {
	names  []string
	values map[string]string
}

// NewHeaders returns an empty Headers ready for Set.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string]string)}
}

// Set appends name/value, lower-casing name. Set must not be called
// twice with the same name; use Get to check first if that is possible.
func (h *Headers) Set(name, value string) *Headers {
	name = strings.ToLower(name)
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = value
	return h
}

// Get returns the value for name and whether it was present.
func (h *Headers) Get(name string) (string, bool) {
	v, ok := h.values[strings.ToLower(name)]
	return v, ok
}

// Names returns header names in insertion order.
func (h *Headers) Names() []string { return h.names }

// Len returns the number of name/value pairs.
func (h *Headers) Len() int { return len(h.names) }

// Equal reports whether h and other contain the same name/value pairs,
// ignoring order.
func (h *Headers) Equal(other *Headers) bool {
	if h == nil || other == nil {
		return h == other
	}
	if len(h.names) != len(other.names) {
		return false
	}
	for name, v := range h.values {
		ov, ok := other.values[name]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// countWidth returns the byte width of the pair-count prefix and of each
// name/value length prefix for version: 16-bit in SPDY/2, 32-bit in
// SPDY/3.
func countWidth(v Version) int {
	if v == Version2 {
		return 2
	}
	return 4
}

// encodeHeaderValueBlock serializes h into the uncompressed plaintext
// form: a count of pairs, then length-prefixed name, length-prefixed
// value, repeated. The prefix width matches countWidth(version).
func encodeHeaderValueBlock(w io.Writer, h *Headers, version Version) error {
	if err := writeCount(w, uint32(h.Len()), version); err != nil {
		return err
	}
	for _, name := range h.names {
		value := h.values[name]
		if err := writeCount(w, uint32(len(name)), version); err != nil {
			return err
		}
		if _, err := io.WriteString(w, name); err != nil {
			return err
		}
		if err := writeCount(w, uint32(len(value)), version); err != nil {
			return err
		}
		if _, err := io.WriteString(w, value); err != nil {
			return err
		}
	}
	return nil
}

func writeCount(w io.Writer, n uint32, version Version) error {
	if version == Version2 {
		return binary.Write(w, binary.BigEndian, uint16(n))
	}
	return binary.Write(w, binary.BigEndian, n)
}

func readCount(r io.Reader, version Version) (uint32, error) {
	if version == Version2 {
		var n uint16
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return 0, err
		}
		return uint32(n), nil
	}
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// decodeHeaderValueBlock parses the plaintext form written by
// encodeHeaderValueBlock. An empty block (count == 0, no entries) is
// accepted and yields an empty Headers.
func decodeHeaderValueBlock(r io.Reader, version Version) (*Headers, error) {
	// A short read is a truncated block; any other read error comes from
	// the underlying stream and is returned unchanged.
	readErr := func(err error, detail string) error {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &FramingError{Kind: Truncated, Detail: detail}
		}
		return err
	}
	count, err := readCount(r, version)
	if err != nil {
		return nil, readErr(err, "header block count")
	}
	h := NewHeaders()
	for i := uint32(0); i < count; i++ {
		name, err := readCountedString(r, version)
		if err != nil {
			return nil, readErr(err, "header name")
		}
		value, err := readCountedString(r, version)
		if err != nil {
			return nil, readErr(err, "header value")
		}
		lower := strings.ToLower(name)
		if name != lower {
			return nil, &FramingError{Kind: UnlowercasedHeaderName, Detail: name}
		}
		if _, dup := h.values[lower]; dup {
			return nil, &FramingError{Kind: DuplicateHeaderName, Detail: lower}
		}
		h.Set(lower, value)
	}
	return h, nil
}

func readCountedString(r io.Reader, version Version) (string, error) {
	n, err := readCount(r, version)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// compressor wraps a single direction's deflate stream, primed with the
// SPDY dictionary and never reset between frames: its internal history
// is what lets later header blocks compress to almost nothing. It must
// never be shared across Contexts.
type compressor struct {
	version Version
	buf     *bytes.Buffer
	w       *zlib.Writer
}

func newCompressor(version Version) (*compressor, error) {
	buf := new(bytes.Buffer)
	w, err := zlib.NewWriterLevelDict(buf, zlib.BestCompression, headerDictionary(version))
	if err != nil {
		return nil, &CompressionError{Err: err}
	}
	return &compressor{version: version, buf: buf, w: w}, nil
}

// compressHeaders serializes h to its plaintext name/value block and
// compresses it with a sync-flush, so the peer can decode without
// awaiting further input. It returns only the bytes produced by this
// call; the compressor's internal history persists for the session.
func (c *compressor) compressHeaders(h *Headers) ([]byte, error) {
	var plain bytes.Buffer
	if err := encodeHeaderValueBlock(&plain, h, c.version); err != nil {
		return nil, &CompressionError{Err: err}
	}
	c.buf.Reset()
	if _, err := c.w.Write(plain.Bytes()); err != nil {
		return nil, &CompressionError{Err: err}
	}
	if err := c.w.Flush(); err != nil {
		return nil, &CompressionError{Err: err}
	}
	out := make([]byte, c.buf.Len())
	copy(out, c.buf.Bytes())
	return out, nil
}

// decompressor wraps a single direction's inflate stream. Like
// compressor, it is never reset between frames: the flate history the
// stream has accumulated is exactly what makes a frame's compressed
// block undecodable in isolation (spec's compression-continuity
// property).
type decompressor struct {
	version Version
	in      *bytes.Buffer
	lr      *io.LimitedReader
	zr      io.Reader
}

func newDecompressor(version Version) *decompressor {
	in := new(bytes.Buffer)
	return &decompressor{version: version, in: in, lr: &io.LimitedReader{R: in}}
}

// decodeHeaders feeds one frame's compressed header block through the
// inflate stream and parses the resulting plaintext name/value block.
// The inflate stream is initialized lazily on first use, with the
// predefined dictionary handed to zlib.NewReaderDict up front, so a
// stream that asks for the dictionary is read without a retry; a stream
// whose dictionary id does not match is a CompressionError. A malformed
// block is a CompressionError; a block that
// decompresses to a mismatched pair count or a truncated name/value is
// a FramingError.
func (d *decompressor) decodeHeaders(compressed []byte) (*Headers, error) {
	d.in.Write(compressed)
	d.lr.N = int64(len(compressed))

	if d.zr == nil {
		zr, err := zlib.NewReaderDict(d.lr, headerDictionary(d.version))
		if err == zlib.ErrDictionary {
			if resetter, ok := zr.(zlib.Resetter); ok {
				if rerr := resetter.Reset(d.lr, headerDictionary(d.version)); rerr != nil {
					return nil, &CompressionError{Err: rerr}
				}
			} else {
				return nil, &CompressionError{Err: err}
			}
		} else if err != nil {
			return nil, &CompressionError{Err: err}
		}
		d.zr = zr
	}

	h, err := decodeHeaderValueBlock(d.zr, d.version)
	if err != nil {
		if _, ok := err.(*FramingError); ok {
			return nil, err
		}
		return nil, &CompressionError{Err: err}
	}
	if d.lr.N != 0 {
		return nil, &FramingError{Kind: BadLength, Detail: "compressed header block size mismatch"}
	}
	return h, nil
}
