// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spdy

import "github.com/prometheus/client_golang/prometheus"

// contextMetrics is the optional instrumentation a Context registers
// when constructed with WithMetrics. It never touches the default
// registry on its own.
type contextMetrics struct {
	encoded   *prometheus.CounterVec
	decoded   *prometheus.CounterVec
	blockSize prometheus.Histogram
}

func newContextMetrics(reg prometheus.Registerer) *contextMetrics {
	m := &contextMetrics{
		encoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spdy_frames_encoded_total",
			Help: "Frames encoded by PutFrame, by frame type.",
		}, []string{"frame_type"}),
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spdy_frames_decoded_total",
			Help: "Frames decoded by GetFrame, by frame type.",
		}, []string{"frame_type"}),
		blockSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "spdy_header_block_bytes",
			Help:    "Wire size in bytes of SYN_STREAM, SYN_REPLY and HEADERS frames, common header and fixed fields included (not the compressed header block alone).",
			Buckets: prometheus.ExponentialBuckets(16, 2, 10),
		}),
	}
	reg.MustRegister(m.encoded, m.decoded, m.blockSize)
	return m
}

func (m *contextMetrics) observeEncode(f Frame, wireLen int) {
	m.encoded.WithLabelValues(frameTypeLabel(f)).Inc()
	if hasHeaders(f) {
		m.blockSize.Observe(float64(wireLen))
	}
}

func (m *contextMetrics) observeDecode(f Frame, wireLen int) {
	m.decoded.WithLabelValues(frameTypeLabel(f)).Inc()
	if hasHeaders(f) {
		m.blockSize.Observe(float64(wireLen))
	}
}

func hasHeaders(f Frame) bool {
	switch f.(type) {
	case *SynStreamFrame, *SynReplyFrame, *HeadersFrame:
		return true
	default:
		return false
	}
}

func frameTypeLabel(f Frame) string {
	switch f.(type) {
	case *DataFrame:
		return "DATA"
	case *SynStreamFrame:
		return "SYN_STREAM"
	case *SynReplyFrame:
		return "SYN_REPLY"
	case *RstStreamFrame:
		return "RST_STREAM"
	case *SettingsFrame:
		return "SETTINGS"
	case *NoopFrame:
		return "NOOP"
	case *PingFrame:
		return "PING"
	case *GoAwayFrame:
		return "GOAWAY"
	case *HeadersFrame:
		return "HEADERS"
	case *WindowUpdateFrame:
		return "WINDOW_UPDATE"
	default:
		return "UNKNOWN"
	}
}
