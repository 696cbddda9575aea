// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spdy

import (
	"errors"
	"fmt"
)

// ErrNeedMore signals that a buffer holds a strict prefix of the next
// frame. It is a sentinel, not a protocol error: callers should buffer
// more bytes and retry rather than tear down the session.
var ErrNeedMore = errors.New("spdy: buffer holds an incomplete frame")

// FramingErrorKind distinguishes the ways a byte sequence can fail to
// conform to the SPDY wire format.
type FramingErrorKind int

const (
	UnknownType FramingErrorKind = iota
	UnsupportedVersionKind
	BadLength
	Truncated
	DuplicateHeaderName
	UnlowercasedHeaderName
	InvalidControlFrame
	ZeroStreamID
)

func (k FramingErrorKind) String() string {
	switch k {
	case UnknownType:
		return "unknown frame type"
	case UnsupportedVersionKind:
		return "unsupported version"
	case BadLength:
		return "bad length"
	case Truncated:
		return "truncated payload"
	case DuplicateHeaderName:
		return "duplicate header name"
	case UnlowercasedHeaderName:
		return "header name is not lowercase"
	case InvalidControlFrame:
		return "invalid control frame"
	case ZeroStreamID:
		return "stream id zero is disallowed"
	default:
		return "unknown framing error"
	}
}

// FramingError reports that a byte sequence does not conform to the
// SPDY wire format: a bad length, an unknown frame type, an unsupported
// version, a truncated payload, a duplicate or non-lowercase header name,
// a zero stream ID, or an invalid control frame. Reserved bits are
// ignored on decode and never produce one.
type FramingError struct {
	Kind     FramingErrorKind
	StreamID uint32
	Detail   string
}

func (e *FramingError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("spdy: framing error (%s): %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("spdy: framing error (%s)", e.Kind)
}

// CompressionError reports that the header block zlib stream rejected
// its input on decode, or could not emit on encode. Once an inflate
// stream has returned a CompressionError it is poisoned: the directional
// compression history is no longer trustworthy and every subsequent
// decode on that Context will fail the same way. Callers must tear the
// session down rather than retry.
type CompressionError struct {
	Err error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("spdy: header compression error: %v", e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// InvalidFrameError reports an attempt to construct a frame that is not
// valid for the session's negotiated version, such as a WINDOW_UPDATE
// against a SPDY/2 Context.
type InvalidFrameError struct {
	Detail string
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("spdy: invalid frame: %s", e.Detail)
}
