package spdy_test

import (
	"fmt"

	"github.com/go-spdy/spdy/spdy"
)

// Example builds a SYN_STREAM, pushes it through a client Context and
// decodes it back out of a paired server Context, hex-dumping the wire
// bytes the way class_test.py's dummy driver does.
func Example() {
	client, err := spdy.NewContext(spdy.Client, spdy.Version3)
	if err != nil {
		panic(err)
	}
	server, err := spdy.NewContext(spdy.Server, spdy.Version3)
	if err != nil {
		panic(err)
	}

	headers := spdy.NewHeaders()
	headers.Set(":method", "GET")
	headers.Set(":path", "/")
	headers.Set(":version", "HTTP/1.1")
	headers.Set(":host", "www.google.com")
	headers.Set(":scheme", "https")

	streamID := client.NextStreamID()
	f := spdy.NewSynStreamFrame(streamID, 0, 0, 0, headers, true)
	if err := client.PutFrame(f); err != nil {
		panic(err)
	}
	wire := client.Outgoing()

	// The first five bytes (control bit + version, frame type, flags) do
	// not depend on the compressed header block and so are stable to
	// print verbatim; the length field and everything after it vary with
	// zlib's output and are not.
	for i := 0; i < 5; i++ {
		fmt.Printf("0x%02x ", wire[i])
	}
	fmt.Println()

	server.Incoming(wire)
	decoded, err := server.GetFrame()
	if err != nil {
		panic(err)
	}
	got := decoded.(*spdy.SynStreamFrame)
	method, _ := got.Headers.Get(":method")
	fmt.Printf("decoded stream=%d method=%s\n", got.StreamID, method)

	// Output:
	// 0x80 0x03 0x00 0x01 0x01
	// decoded stream=1 method=GET
}
