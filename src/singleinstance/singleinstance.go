package singleinstance

// Single-daemon ownership and delegation of capture requests from the CLI to
// a resident daemon over loopback TCP.
//
// Wire format, one connection per request:
//
//	client: PING\n                 server: PONG\n
//	client: CAPTURE <mode>\n       server: SUCCESS\n<path> | ERROR\n<msg> | CANCELLED\n

import (
	"context"
	"errors"
)

// ErrCancelled is returned by the client when the user aborted the delegated
// capture.
var ErrCancelled = errors.New("capture cancelled")

// Server owns the TCP endpoint and answers capture requests.
type Server interface {
	// Start listens on the first port of the configured range and fails if
	// it is taken.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted request, or the ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close stops accepting clients.
	Close() error
}

// Conn is one client request awaiting its response.
type Conn interface {
	Request() Request
	// RespondSuccess reports the saved capture path (may be empty).
	RespondSuccess(path string) error
	RespondError(msg string) error
	RespondCancelled() error
	Close() error
}

// Request is a single delegated capture.
type Request struct {
	Mode string
}

// Client delegates a capture to a resident daemon.
type Client interface {
	// TryCapture finds a resident and asks it to capture. With no resident
	// it returns delegated=false and a nil error.
	TryCapture(ctx context.Context, mode string) (delegated bool, path string, err error)
}

func NewServer() Server { return newTcpServer() }

func NewClient() Client { return newTcpClient() }
