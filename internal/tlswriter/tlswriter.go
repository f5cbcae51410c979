// Package tlswriter drives one TLS connection to a collector host
// through the version handshake and then streams compressed report
// frames to it, recording a single terminal error if anything along
// the way fails.
//
// Each Writer owns its own goroutine and blocking connection; the
// pipeline orchestrator talks to it only through Run, PushBuffer,
// Shutdown, Wait, and the read-only accessors State/Err/Failed/Host.
// State and Err are guarded by a
// mutex since they are read from the orchestrator's goroutine while the
// writer's own goroutine advances them.
package tlswriter

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"sync"
	"time"

	"github.com/lbloecher/chatload/internal/dlog"
	cherrors "github.com/lbloecher/chatload/internal/errors"
	"github.com/lbloecher/chatload/internal/protocol"
)

// State is one node of the writer's connection lifecycle.
type State int

const (
	Resolving State = iota
	Connecting
	Handshaking
	Exchanging
	Streaming
	Draining
	ShuttingDown
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Exchanging:
		return "exchanging"
	case Streaming:
		return "streaming"
	case Draining:
		return "draining"
	case ShuttingDown:
		return "shutting_down"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Host identifies one collector endpoint and its per-host TLS override.
type Host struct {
	Name     string
	Port     string
	Insecure bool
}

// Writer owns one TLS connection to one Host and runs its entire
// lifecycle on a dedicated goroutine.
type Writer struct {
	host      Host
	tlsConfig *tls.Config
	timeout   time.Duration

	pushCh     chan []byte
	shutdownCh chan struct{}
	done       chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

// New constructs a Writer for host, cloning baseConfig and setting its
// ServerName and InsecureSkipVerify from the host's own override.
func New(host Host, baseConfig *tls.Config, timeout time.Duration) *Writer {
	cfg := baseConfig.Clone()
	cfg.ServerName = host.Name
	cfg.InsecureSkipVerify = host.Insecure

	return &Writer{
		host:       host,
		tlsConfig:  cfg,
		timeout:    timeout,
		state:      Resolving,
		pushCh:     make(chan []byte, 64),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Host returns the endpoint this writer connects to.
func (w *Writer) Host() Host {
	return w.host
}

// Run starts the writer's connection lifecycle on its own goroutine and
// blocks until it has either entered Streaming or recorded a terminal
// Failed error. The remainder of the lifecycle (buffered writes, the
// background reader, the eventual shutdown) continues on that goroutine
// after Run returns. ctx bounds only the connect/handshake/version
// phase; cancelling it after Run returns has no effect.
func (w *Writer) Run(ctx context.Context) {
	reachedStreaming := make(chan struct{})
	go w.run(ctx, reachedStreaming)
	<-reachedStreaming
}

// PushBuffer appends buf to the pending write queue. It is a no-op once
// the writer has reached a terminal state.
func (w *Writer) PushBuffer(buf []byte) {
	select {
	case w.pushCh <- buf:
	case <-w.done:
	}
}

// Shutdown requests a graceful close: pending writes flush, then the
// TLS and TCP layers are closed. Safe to call more than once.
func (w *Writer) Shutdown() {
	select {
	case <-w.shutdownCh:
	default:
		close(w.shutdownCh)
	}
}

// Wait blocks until the writer reaches a terminal state (Closed or
// Failed).
func (w *Writer) Wait() {
	<-w.done
}

// State returns the writer's current lifecycle state.
func (w *Writer) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the writer's recorded terminal error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Failed reports whether the writer has recorded a terminal error.
func (w *Writer) Failed() bool {
	return w.Err() != nil
}

func (w *Writer) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// setErr records err as the writer's terminal error unless one is
// already set. Aborted I/O errors produced by our own cancellation must
// never overwrite a genuine earlier failure.
func (w *Writer) setErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *Writer) run(ctx context.Context, reachedStreaming chan struct{}) {
	conn, err := w.connectAndHandshake(ctx)
	if err != nil {
		w.setState(Failed)
		w.setErr(err)
		close(reachedStreaming)
		close(w.done)
		return
	}

	w.setState(Streaming)
	close(reachedStreaming)
	w.stream(conn)
}

func (w *Writer) connectAndHandshake(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	w.setState(Resolving)
	addrs, err := net.DefaultResolver.LookupHost(dialCtx, w.host.Name)
	if err != nil {
		return nil, cherrors.NewIoError(cherrors.IoCategoryResolve, err)
	}

	w.setState(Connecting)
	conn, err := dialFirstReachable(dialCtx, addrs, w.host.Port)
	if err != nil {
		return nil, cherrors.NewIoError(cherrors.IoCategoryConnect, err)
	}

	w.setState(Handshaking)
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	tlsConn := tls.Client(conn, w.tlsConfig)
	if err := tlsConn.HandshakeContext(dialCtx); err != nil {
		conn.Close()
		return nil, cherrors.NewIoError(cherrors.IoCategoryHandshake, err)
	}

	w.setState(Exchanging)
	if err := exchangeVersion(dialCtx, tlsConn); err != nil {
		tlsConn.Close()
		return nil, err
	}

	return tlsConn, nil
}

func dialFirstReachable(ctx context.Context, addrs []string, port string) (net.Conn, error) {
	var dialer net.Dialer
	var lastErr error
	for _, addr := range addrs {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func exchangeVersion(ctx context.Context, conn net.Conn) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	defer conn.SetDeadline(time.Time{})

	wire := protocol.EncodeVersion()
	if _, err := conn.Write(wire[:]); err != nil {
		return cherrors.NewIoError(cherrors.IoCategoryWrite, err)
	}

	var reply [4]byte
	if _, err := io.ReadFull(conn, reply[:]); err != nil {
		return cherrors.NewIoError(cherrors.IoCategoryRead, err)
	}

	switch protocol.DecodeCommand(reply) {
	case protocol.VersionOK:
		return nil
	case protocol.VersionNotSupported:
		return cherrors.ErrProtocolVersionNotSupported
	default:
		return cherrors.ErrUnknownCommand
	}
}

// stream runs the Streaming/Draining/ShuttingDown portion of the
// lifecycle. It owns conn exclusively from here on, so no further
// synchronization on conn itself is needed.
func (w *Writer) stream(conn net.Conn) {
	if tcpConn, ok := underlyingTCPConn(conn); ok {
		_ = tcpConn.SetNoDelay(false)
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	readErrCh := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, conn)
		if err == nil {
			// io.Copy reports a clean end of stream as a nil error.
			err = io.EOF
		}
		readErrCh <- err
	}()

	shuttingDown := false

loop:
	for {
		select {
		case buf := <-w.pushCh:
			batch := [][]byte{buf}
		drain:
			for {
				select {
				case more := <-w.pushCh:
					batch = append(batch, more)
				default:
					break drain
				}
			}
			if err := writeAll(conn, batch); err != nil {
				w.setErr(cherrors.NewIoError(cherrors.IoCategoryWrite, err))
				break loop
			}
			if shuttingDown {
				break loop
			}

		case <-w.shutdownCh:
			shuttingDown = true
			w.setState(Draining)
			drainPendingThenBreak(conn, w.pushCh)
			break loop

		case err := <-readErrCh:
			if err == io.EOF {
				// The collector closed its side first; this is terminal on
				// its own, with no TLS/TCP shutdown of ours left to run.
				conn.Close()
				w.setErr(cherrors.ErrServerShutdown)
				w.setState(Failed)
				close(w.done)
				return
			}
			if err != nil && !shuttingDown {
				w.setErr(cherrors.NewIoError(cherrors.IoCategoryRead, err))
			}
			break loop

		case <-timer.C:
			w.setErr(cherrors.ErrWriterTimeout)
			break loop
		}
	}

	w.setState(ShuttingDown)
	if closeErr := tlsShutdown(conn); closeErr != nil {
		w.setErr(cherrors.NewIoError(cherrors.IoCategoryShutdown, closeErr))
	}

	w.setState(Closed)
	close(w.done)
}

// drainPendingThenBreak flushes any buffers already queued at the
// moment shutdown was requested, best effort.
func drainPendingThenBreak(conn net.Conn, pushCh chan []byte) {
	for {
		select {
		case buf := <-pushCh:
			if _, err := conn.Write(buf); err != nil {
				dlog.Writer.Debug("tlswriter: drain write failed during shutdown", err)
				return
			}
		default:
			return
		}
	}
}

func underlyingTCPConn(conn net.Conn) (*net.TCPConn, bool) {
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, false
	}
	tcp, ok := tlsConn.NetConn().(*net.TCPConn)
	return tcp, ok
}

func writeAll(conn net.Conn, batch [][]byte) error {
	for _, buf := range batch {
		if len(buf) == 0 {
			continue
		}
		if _, err := conn.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func tlsShutdown(conn net.Conn) error {
	if tlsConn, ok := conn.(*tls.Conn); ok {
		return tlsConn.Close()
	}
	return conn.Close()
}
