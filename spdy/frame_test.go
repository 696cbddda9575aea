package spdy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, version Version, f Frame) Frame {
	t.Helper()
	c, err := NewContext(Client, version)
	require.NoError(t, err)
	s, err := NewContext(Server, version)
	require.NoError(t, err)

	require.NoError(t, c.PutFrame(f))
	s.Incoming(c.Outgoing())
	decoded, err := s.GetFrame()
	require.NoError(t, err)
	return decoded
}

func TestRoundTripSynReply(t *testing.T) {
	h := NewHeaders()
	h.Set(":status", "200")
	h.Set(":version", "HTTP/1.1")
	f := NewSynReplyFrame(2, h, false)

	decoded := roundTrip(t, Version3, f)
	got, ok := decoded.(*SynReplyFrame)
	require.True(t, ok)
	assert.EqualValues(t, 2, got.StreamID)
	status, ok := got.Headers.Get(":status")
	require.True(t, ok)
	assert.Equal(t, "200", status)
}

func TestRoundTripSynReplyV2(t *testing.T) {
	h := NewHeaders()
	h.Set("status", "200 OK")
	h.Set("version", "HTTP/1.1")
	f := NewSynReplyFrame(2, h, false)

	decoded := roundTrip(t, Version2, f)
	got, ok := decoded.(*SynReplyFrame)
	require.True(t, ok)
	assert.EqualValues(t, 2, got.StreamID)
	v, ok := got.Headers.Get("status")
	require.True(t, ok)
	assert.Equal(t, "200 OK", v)
}

func TestRoundTripHeadersFrame(t *testing.T) {
	h := NewHeaders()
	h.Set("x-trailer", "done")
	f := NewHeadersFrame(4, h, true)

	decoded := roundTrip(t, Version3, f)
	got, ok := decoded.(*HeadersFrame)
	require.True(t, ok)
	assert.True(t, got.Header.Fin())
	v, ok := got.Headers.Get("x-trailer")
	require.True(t, ok)
	assert.Equal(t, "done", v)
}

func TestRoundTripRstStream(t *testing.T) {
	decoded := roundTrip(t, Version3, NewRstStreamFrame(5, Cancel))
	got, ok := decoded.(*RstStreamFrame)
	require.True(t, ok)
	assert.EqualValues(t, 5, got.StreamID)
	assert.Equal(t, Cancel, got.ErrorCode)
}

func TestRoundTripDataFrame(t *testing.T) {
	client, err := NewContext(Client, Version3)
	require.NoError(t, err)
	server, err := NewContext(Server, Version3)
	require.NoError(t, err)

	f := &DataFrame{StreamID: 1, Flags: DataFlagFin, Data: []byte("hello, spdy")}
	require.NoError(t, client.PutFrame(f))
	server.Incoming(client.Outgoing())
	decoded, err := server.GetFrame()
	require.NoError(t, err)

	got, ok := decoded.(*DataFrame)
	require.True(t, ok)
	assert.EqualValues(t, 1, got.StreamID)
	assert.True(t, got.Fin())
	assert.Equal(t, []byte("hello, spdy"), got.Data)
}

func TestSynStreamZeroStreamIDRejected(t *testing.T) {
	client, err := NewContext(Client, Version3)
	require.NoError(t, err)
	err = client.PutFrame(NewSynStreamFrame(0, 0, 0, 0, NewHeaders(), true))
	require.Error(t, err)
	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ZeroStreamID, fe.Kind)
}

func TestZeroStreamIDSynStreamStillFeedsDecompressor(t *testing.T) {
	client, err := NewContext(Client, Version3)
	require.NoError(t, err)
	server, err := NewContext(Server, Version3)
	require.NoError(t, err)

	h1 := NewHeaders()
	h1.Set(":method", "GET")
	h1.Set(":path", "/a")
	require.NoError(t, client.PutFrame(NewSynStreamFrame(1, 0, 0, 0, h1, true)))
	wire := client.Outgoing()
	// Zero out the stream_id field (wire[8:12], top bit reserved) after
	// encoding, bypassing PutFrame's own stream_id==0 rejection, to get a
	// frame whose compressed header block is well-formed but whose
	// stream_id is invalid on decode.
	wire[8], wire[9], wire[10], wire[11] = 0, 0, 0, 0

	server.Incoming(wire)
	_, err = server.GetFrame()
	require.Error(t, err)
	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ZeroStreamID, fe.Kind)

	// The rejection above must not have skipped decompression: the
	// client's compressor advanced past h1, so the server's decompressor
	// has to have advanced the same way or this next frame desyncs.
	h2 := NewHeaders()
	h2.Set(":method", "GET")
	h2.Set(":path", "/b")
	require.NoError(t, client.PutFrame(NewSynStreamFrame(3, 0, 0, 0, h2, true)))
	server.Incoming(client.Outgoing())
	decoded, err := server.GetFrame()
	require.NoError(t, err)
	got, ok := decoded.(*SynStreamFrame)
	require.True(t, ok)
	path, ok := got.Headers.Get(":path")
	require.True(t, ok)
	assert.Equal(t, "/b", path)
}

func TestDecodeNoopFrameIsTolerated(t *testing.T) {
	server, err := NewContext(Server, Version2)
	require.NoError(t, err)

	// A bare NOOP: control bit + version 2, type 5, no flags, zero length.
	wire := []byte{0x80, 0x02, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00}
	server.Incoming(wire)
	decoded, err := server.GetFrame()
	require.NoError(t, err)
	assert.IsType(t, &NoopFrame{}, decoded)
}

func TestNoopRejectedUnderV3(t *testing.T) {
	server, err := NewContext(Server, Version3)
	require.NoError(t, err)

	wire := []byte{0x80, 0x02, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00}
	server.Incoming(wire)
	_, err = server.GetFrame()
	require.Error(t, err)
	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, UnknownType, fe.Kind)
}

func TestSettingsClearPersistedFlag(t *testing.T) {
	f := NewSettingsFrame(true, SettingsEntry{ID: SettingsMaxConcurrentStreams, Value: 100})
	decoded := roundTrip(t, Version3, f)
	got, ok := decoded.(*SettingsFrame)
	require.True(t, ok)
	assert.True(t, got.ClearPersisted)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, SettingsMaxConcurrentStreams, got.Entries[0].ID)
}

func TestSettingsV2ByteOrderRoundTrip(t *testing.T) {
	f := NewSettingsFrame(false, SettingsEntry{ID: SettingsRoundTripTime, Flag: FlagSettingsPersisted, Value: 42})
	decoded := roundTrip(t, Version2, f)
	got, ok := decoded.(*SettingsFrame)
	require.True(t, ok)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, SettingsRoundTripTime, got.Entries[0].ID)
	assert.Equal(t, FlagSettingsPersisted, got.Entries[0].Flag)
	assert.EqualValues(t, 42, got.Entries[0].Value)
}

func TestDataFrameExceedsMaxLength(t *testing.T) {
	client, err := NewContext(Client, Version3)
	require.NoError(t, err)
	big := make([]byte, MaxFrameDataLength+1)
	err = client.PutFrame(&DataFrame{StreamID: 1, Data: big})
	require.Error(t, err)
	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, BadLength, fe.Kind)
}
