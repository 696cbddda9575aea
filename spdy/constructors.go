// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spdy

// NewSynStreamFrame builds a SYN_STREAM frame. fin sets the FIN flag;
// priority and slot are only meaningful to the extent the session's
// negotiated version uses them (2 bits/no slot in SPDY/2, 3 bits/8-bit
// slot in SPDY/3) — callers targeting SPDY/2 should leave slot at 0.
func NewSynStreamFrame(streamID, assocStreamID uint32, priority, slot uint8, headers *Headers, fin bool) *SynStreamFrame {
	f := &SynStreamFrame{
		StreamID:             streamID,
		AssociatedToStreamID: assocStreamID,
		Priority:             priority,
		Slot:                 slot,
		Headers:              headers,
	}
	if fin {
		f.Header.Flags = ControlFlagFin
	}
	return f
}

// NewSynReplyFrame builds a SYN_REPLY frame.
func NewSynReplyFrame(streamID uint32, headers *Headers, fin bool) *SynReplyFrame {
	f := &SynReplyFrame{StreamID: streamID, Headers: headers}
	if fin {
		f.Header.Flags = ControlFlagFin
	}
	return f
}

// NewRstStreamFrame builds a RST_STREAM frame. errorCode must not be
// zero.
func NewRstStreamFrame(streamID uint32, errorCode RSTStatusCode) *RstStreamFrame {
	return &RstStreamFrame{StreamID: streamID, ErrorCode: errorCode}
}

// NewSettingsFrame builds a SETTINGS frame. Entries are emitted in the
// order given.
func NewSettingsFrame(clearPersisted bool, entries ...SettingsEntry) *SettingsFrame {
	return &SettingsFrame{ClearPersisted: clearPersisted, Entries: entries}
}

// NewPingFrame builds a PING frame. uniqID is normally drawn from
// Context.NextPingID for a locally initiated ping, or echoed back
// verbatim when replying to the peer's.
func NewPingFrame(uniqID uint32) *PingFrame {
	return &PingFrame{UniqID: uniqID}
}

// NewGoAwayFrame builds a GOAWAY frame. statusCode is only encoded in
// SPDY/3; lastStreamID should normally come from Context.PeerStreamID.
func NewGoAwayFrame(lastStreamID uint32, statusCode GoAwayStatus) *GoAwayFrame {
	return &GoAwayFrame{LastStreamID: lastStreamID, StatusCode: statusCode}
}

// NewHeadersFrame builds a HEADERS frame.
func NewHeadersFrame(streamID uint32, headers *Headers, fin bool) *HeadersFrame {
	f := &HeadersFrame{StreamID: streamID, Headers: headers}
	if fin {
		f.Header.Flags = ControlFlagFin
	}
	return f
}

// NewWindowUpdateFrame builds a WINDOW_UPDATE frame. Valid only against
// a SPDY/3 Context; PutFrame reports InvalidFrameError otherwise.
func NewWindowUpdateFrame(streamID, deltaWindowSize uint32) *WindowUpdateFrame {
	return &WindowUpdateFrame{StreamID: streamID, DeltaWindowSize: deltaWindowSize}
}
