// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command spdydump builds a SYN_STREAM/PING/GOAWAY exchange between a
// paired client and server Context entirely in-process and hex-dumps the
// frames as they cross the wire. There is no socket or TLS handshake:
// that pairing is an external collaborator the spdy package does not
// provide (see the package doc).
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/go-spdy/spdy/spdy"
)

var (
	flagVersion int
	flagHost    string
	flagPath    string
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "spdydump",
	Short: "Drive a SYN_STREAM/PING/GOAWAY exchange over an in-process SPDY session",
	Example: "  spdydump --version 3 --host www.google.com --path /\n" +
		"  spdydump --version 2 --host example.com",
	RunE: runDump,
}

func init() {
	rootCmd.Flags().IntVar(&flagVersion, "version", 3, "SPDY version to speak (2 or 3)")
	rootCmd.Flags().StringVar(&flagHost, "host", "www.google.com", "value of the :host/host request header")
	rootCmd.Flags().StringVar(&flagPath, "path", "/", "value of the :path/url request header")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "enable debug-level frame tracing")
}

func runDump(cmd *cobra.Command, args []string) error {
	version := spdy.Version(flagVersion)

	log := zap.NewNop()
	if flagVerbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return errors.Wrap(err, "spdydump: building logger")
		}
		log = l
	}

	client, err := spdy.NewContext(spdy.Client, version, spdy.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "spdydump: constructing client context")
	}
	server, err := spdy.NewContext(spdy.Server, version, spdy.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "spdydump: constructing server context")
	}

	if err := runSynStream(client, server); err != nil {
		return errors.Wrap(err, "spdydump: SYN_STREAM exchange")
	}
	if err := runPing(client, server); err != nil {
		return errors.Wrap(err, "spdydump: PING exchange")
	}
	if err := runGoAway(server, client); err != nil {
		return errors.Wrap(err, "spdydump: GOAWAY exchange")
	}
	return nil
}

func requestHeaders(version spdy.Version, host, path string) *spdy.Headers {
	h := spdy.NewHeaders()
	if version == spdy.Version2 {
		h.Set("method", "GET")
		h.Set("url", path)
		h.Set("version", "HTTP/1.1")
		h.Set("host", host)
		h.Set("scheme", "https")
		return h
	}
	h.Set(":method", "GET")
	h.Set(":path", path)
	h.Set(":version", "HTTP/1.1")
	h.Set(":host", host)
	h.Set(":scheme", "https")
	return h
}

func runSynStream(client, server *spdy.Context) error {
	streamID := client.NextStreamID()
	f := spdy.NewSynStreamFrame(streamID, 0, 0, 0, requestHeaders(client.Version(), flagHost, flagPath), true)
	if err := client.PutFrame(f); err != nil {
		return err
	}
	wire := client.Outgoing()
	fmt.Printf("SYN_STREAM >> stream=%d %d bytes\n", streamID, len(wire))
	hexDump(wire)

	server.Incoming(wire)
	decoded, err := server.GetFrame()
	if err != nil {
		return err
	}
	got := decoded.(*spdy.SynStreamFrame)
	fmt.Printf("SYN_STREAM << stream=%d headers=%d\n", got.StreamID, got.Headers.Len())
	return nil
}

func runPing(client, server *spdy.Context) error {
	id := client.NextPingID()
	if err := client.PutFrame(spdy.NewPingFrame(id)); err != nil {
		return err
	}
	wire := client.Outgoing()
	fmt.Printf("PING >> id=%d\n", id)
	hexDump(wire)

	server.Incoming(wire)
	decoded, err := server.GetFrame()
	if err != nil {
		return err
	}
	ping := decoded.(*spdy.PingFrame)

	if err := server.PutFrame(spdy.NewPingFrame(ping.UniqID)); err != nil {
		return err
	}
	echo := server.Outgoing()
	client.Incoming(echo)
	decoded, err = client.GetFrame()
	if err != nil {
		return err
	}
	fmt.Printf("PING << id=%d (echoed)\n", decoded.(*spdy.PingFrame).UniqID)
	return nil
}

func runGoAway(server, client *spdy.Context) error {
	f := spdy.NewGoAwayFrame(server.PeerStreamID(), spdy.GoAwayOK)
	if err := server.PutFrame(f); err != nil {
		return err
	}
	wire := server.Outgoing()
	fmt.Printf("GOAWAY >> last_stream=%d\n", f.LastStreamID)
	hexDump(wire)

	client.Incoming(wire)
	decoded, err := client.GetFrame()
	if err != nil {
		return err
	}
	got := decoded.(*spdy.GoAwayFrame)
	fmt.Printf("GOAWAY << last_stream=%d status=%d\n", got.LastStreamID, got.StatusCode)
	return nil
}

func hexDump(b []byte) {
	for i := 0; i < len(b); i += 8 {
		end := i + 8
		if end > len(b) {
			end = len(b)
		}
		fmt.Print("  ")
		for _, c := range b[i:end] {
			fmt.Printf("0x%02x ", c)
		}
		fmt.Println()
	}
}
