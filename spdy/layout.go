// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spdy

import (
	"encoding/binary"
	"io"

	"github.com/go-spdy/spdy/bitio"
)

// slot is one field of a frame's bit layout: either a named field bound
// to a frame attribute, or a reserved/padding field (name == "")
// emitted as zero and ignored on decode. width == -1 means "remaining
// bytes until end of payload"; it must be the last slot and must begin
// at a byte boundary. Layouts are expressed as data, per spec, so every
// frame's wire shape is visible in one table instead of scattered
// across bit-twiddling code; the slot walker below is the only place
// that interprets them, and it binds slot names to concrete struct
// fields through caller-supplied, compile-time-bound accessors rather
// than runtime reflection.
type slot struct {
	name  string
	width int
}

const tail = -1 // sentinel width: remaining bytes, byte-aligned, last slot only

// fieldAccessor binds one slot name to a frame attribute: get reads it
// as an unsigned integer narrow enough for width bits, set writes it
// back on decode.
type fieldAccessor struct {
	get func() uint64
	set func(uint64)
}

// fields is the compile-time-bound name table a single frame's
// encode/decode method builds from its own struct fields before
// delegating to encodeSlots/decodeSlots.
type fields map[string]fieldAccessor

// encodeSlots writes payload according to layout, consulting fs for
// named fields and writing tailBytes verbatim for the trailing -1 slot,
// if any.
func encodeSlots(w *bitio.Writer, layout []slot, fs fields, tailBytes []byte) error {
	for _, s := range layout {
		switch {
		case s.width == tail:
			return w.WriteBytes(tailBytes)
		case s.name == "":
			if err := w.WriteBits(0, s.width); err != nil {
				return err
			}
		default:
			fa, ok := fs[s.name]
			if !ok {
				return &bitio.LayoutError{Op: "encodeSlots: unbound field " + s.name, Want: s.width}
			}
			if err := w.WriteBits(fa.get(), s.width); err != nil {
				return err
			}
		}
	}
	return nil
}

// decodeSlots reads payload according to layout, calling fs[name].set
// for each named field. It returns the tail bytes read for a trailing
// -1 slot, or nil if the layout has none.
func decodeSlots(r *bitio.Reader, layout []slot, fs fields) ([]byte, error) {
	for _, s := range layout {
		switch {
		case s.width == tail:
			return r.ReadRemaining()
		case s.name == "":
			if _, err := r.ReadBits(s.width); err != nil {
				return nil, err
			}
		default:
			v, err := r.ReadBits(s.width)
			if err != nil {
				return nil, err
			}
			if fa, ok := fs[s.name]; ok {
				fa.set(v)
			}
		}
	}
	return nil, nil
}

// Layout tables, data-only, one per frame type and (where the wire
// shape differs) per version. Reserved slots carry name "".

var synStreamLayoutV2 = []slot{
	{"", 1}, {"stream_id", 31},
	{"", 1}, {"assoc_stream_id", 31},
	{"priority", 2}, {"", 14},
}

var synStreamLayoutV3 = []slot{
	{"", 1}, {"stream_id", 31},
	{"", 1}, {"assoc_stream_id", 31},
	{"priority", 3}, {"", 5}, {"slot", 8},
}

var synReplyLayoutV2 = []slot{
	{"", 1}, {"stream_id", 31},
	{"", 16},
}

var synReplyLayoutV3 = []slot{
	{"", 1}, {"stream_id", 31},
}

var rstStreamLayout = []slot{
	{"", 1}, {"stream_id", 31},
	{"error_code", 32},
}

var pingLayout = []slot{
	{"uniq_id", 32},
}

var goAwayLayoutV2 = []slot{
	{"", 1}, {"last_stream_id", 31},
}

var goAwayLayoutV3 = []slot{
	{"", 1}, {"last_stream_id", 31},
	{"status_code", 32},
}

var headersLayoutV2 = []slot{
	{"", 1}, {"stream_id", 31},
	{"", 16},
}

var headersLayoutV3 = []slot{
	{"", 1}, {"stream_id", 31},
}

var windowUpdateLayout = []slot{
	{"", 1}, {"stream_id", 31},
	{"", 1}, {"delta_window_size", 31},
}

// encodeSettingsEntries serializes a SETTINGS id/value pairs block. The
// byte order of the id/flag pair differs by version: SPDY/3 emits
// (id_flag:8, id:24, value:32); SPDY/2 emits (id:24, id_flag:8,
// value:32) — the wire order the original source uses, not a
// transcription bug (see Open Question 1).
func encodeSettingsEntries(w io.Writer, entries []SettingsEntry, version Version) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		var word uint32
		if version == Version2 {
			word = (uint32(e.ID) & 0xffffff << 8) | uint32(e.Flag)
		} else {
			word = (uint32(e.Flag) << 24) | (uint32(e.ID) & 0xffffff)
		}
		if err := binary.Write(w, binary.BigEndian, word); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func decodeSettingsEntries(r io.Reader, version Version) ([]SettingsEntry, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, &FramingError{Kind: Truncated, Detail: "settings count"}
	}
	entries := make([]SettingsEntry, count)
	for i := range entries {
		var word, value uint32
		if err := binary.Read(r, binary.BigEndian, &word); err != nil {
			return nil, &FramingError{Kind: Truncated, Detail: "settings id/flag"}
		}
		if err := binary.Read(r, binary.BigEndian, &value); err != nil {
			return nil, &FramingError{Kind: Truncated, Detail: "settings value"}
		}
		if version == Version2 {
			entries[i] = SettingsEntry{
				ID:    SettingsID(word >> 8),
				Flag:  SettingsIDFlag(word & 0xff),
				Value: value,
			}
		} else {
			entries[i] = SettingsEntry{
				ID:    SettingsID(word & 0xffffff),
				Flag:  SettingsIDFlag(word >> 24),
				Value: value,
			}
		}
	}
	return entries, nil
}
