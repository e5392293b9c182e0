package server

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bastiondns/bastiondns/internal/pool"
)

// lenBufPool recycles the 2-byte buffers used for the DNS-over-TCP
// length prefix.
var lenBufPool = pool.NewBuffers(2)

const (
	maxTCPMessageSize        = 65535            // What the 2-byte length prefix can express
	tcpReadTimeout           = 10 * time.Second // Per-message read deadline
	tcpConnectionIdleTimeout = 30 * time.Second // Connection idle deadline
	maxTCPConnectionsPerIP   = 10               // Concurrent connections per source IP
	maxQueriesPerConnection  = 100              // Queries served before a connection is recycled
)

// TCPServer serves DNS over TCP (RFC 1035 section 4.2.2: each message
// carries a 2-byte big-endian length prefix). Run opens one
// SO_REUSEPORT listener per CPU and lets the kernel spread incoming
// connections across them. Each accepted connection gets its own
// goroutine and may pipeline queries up to maxQueriesPerConnection.
//
// Per-IP connection caps and idle deadlines bound what a single client
// can hold open. All goroutines exit when the Run context is
// cancelled.
type TCPServer struct {
	Logger  *slog.Logger  // Optional logger
	Handler *QueryHandler // Query processor

	listeners []net.Listener

	wg sync.WaitGroup // Accept loops plus live connections

	mu        sync.Mutex
	connPerIP map[string]int // Open connections per source IP
}

// Run opens the listeners and serves until ctx is cancelled, then
// drains connections via Stop.
func (s *TCPServer) Run(ctx context.Context, addr string) error {
	socketCount := runtime.NumCPU()
	s.listeners = make([]net.Listener, 0, socketCount)

	s.mu.Lock()
	if s.connPerIP == nil {
		s.connPerIP = map[string]int{}
	}
	s.mu.Unlock()

	for i := 0; i < socketCount; i++ {
		ln, err := listenTCPReusePort(ctx, addr)
		if err != nil {
			for _, l := range s.listeners {
				_ = l.Close()
			}
			return err
		}
		s.listeners = append(s.listeners, ln)

		listener := ln
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.acceptLoop(ctx, listener)
		}()
	}

	<-ctx.Done()
	return s.Stop(5 * time.Second)
}

// acceptLoop accepts connections on one listener until it closes.
// Connections over the per-IP cap are dropped on the floor; the
// legitimate client keeps its existing ones.
func (s *TCPServer) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		c, err := ln.Accept()
		if err != nil {
			// Listener closed, either by Stop or by shutdown.
			return
		}

		remoteIP := remoteIPString(c.RemoteAddr())

		if !s.tryAcquireConn(remoteIP) {
			if s.Logger != nil {
				s.Logger.WarnContext(ctx, "tcp connection limit exceeded", "ip", remoteIP)
			}
			_ = c.Close()
			continue
		}

		conn := c
		ip := remoteIP
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn, ip)
		}()
	}
}

// handleConnection serves pipelined queries on one connection until
// the client goes idle, errors out, hits the per-connection query cap,
// or the server shuts down.
func (s *TCPServer) handleConnection(ctx context.Context, conn net.Conn, ip string) {
	defer s.releaseConn(ip)
	defer conn.Close()

	if s.Handler == nil {
		return
	}
	remoteIP := remoteIPString(conn.RemoteAddr())

	_ = conn.SetDeadline(time.Now().Add(tcpConnectionIdleTimeout))

	for q := 0; q < maxQueriesPerConnection; q++ {
		if ctx.Err() != nil {
			return
		}

		msg, ok := s.readMessage(conn)
		if !ok {
			return
		}
		if len(msg) == 0 {
			continue
		}

		// Activity: push the idle deadline out again.
		_ = conn.SetDeadline(time.Now().Add(tcpConnectionIdleTimeout))

		res := s.Handler.Handle(ctx, "tcp", remoteIP, msg)
		if len(res.ResponseBytes) == 0 {
			continue
		}

		if !s.writeMessage(conn, res.ResponseBytes) {
			return
		}
	}
}

// readMessage reads one length-prefixed message. ok is false when the
// connection should be dropped; a zero-length prefix yields (nil, true)
// and the caller skips it. The 2-byte prefix already caps the body at
// maxTCPMessageSize.
func (s *TCPServer) readMessage(conn net.Conn) ([]byte, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(tcpReadTimeout))
	msgLen, ok := readLengthPrefix(conn)
	if !ok {
		return nil, false
	}
	if msgLen == 0 {
		return nil, true
	}

	_ = conn.SetReadDeadline(time.Now().Add(tcpReadTimeout))
	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(conn, msg); err != nil {
		return nil, false
	}
	return msg, true
}

// readLengthPrefix reads the 2-byte big-endian length through a pooled
// buffer.
func readLengthPrefix(conn net.Conn) (int, bool) {
	bp := lenBufPool.Get()
	defer lenBufPool.Put(bp)

	if _, err := io.ReadFull(conn, *bp); err != nil {
		return 0, false
	}
	return int(binary.BigEndian.Uint16(*bp)), true
}

// writeMessage writes the length prefix and body in one writev via
// net.Buffers, skipping the copy into a combined buffer. Responses the
// prefix cannot express are dropped.
func (s *TCPServer) writeMessage(conn net.Conn, response []byte) bool {
	respLen := len(response)
	if respLen > maxTCPMessageSize {
		return false
	}

	_ = conn.SetWriteDeadline(time.Now().Add(tcpReadTimeout))

	bp := lenBufPool.Get()
	defer lenBufPool.Put(bp)
	binary.BigEndian.PutUint16(*bp, uint16(respLen))

	bufs := net.Buffers{*bp, response}
	_, err := bufs.WriteTo(conn)
	return err == nil
}

// Stop closes the listeners and waits up to timeout for in-flight
// connections to finish. timeout <= 0 waits indefinitely.
func (s *TCPServer) Stop(timeout time.Duration) error {
	for _, ln := range s.listeners {
		_ = ln.Close()
	}

	if timeout <= 0 {
		s.wg.Wait()
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("tcp server: timeout waiting for connections")
	}
}

// listenTCPReusePort opens a listener with SO_REUSEPORT so several
// listeners can share one address and the kernel balances accepts
// between them.
func listenTCPReusePort(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
		},
	}
	return lc.Listen(ctx, "tcp", addr)
}

// remoteIPString extracts the bare IP used as the per-IP tracking key.
func remoteIPString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if a, ok := addr.(*net.TCPAddr); ok && a != nil {
		return a.IP.String()
	}
	if host, _, err := net.SplitHostPort(addr.String()); err == nil {
		return host
	}
	return addr.String()
}

// tryAcquireConn claims a connection slot for ip, refusing past the
// per-IP cap.
func (s *TCPServer) tryAcquireConn(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.connPerIP[ip]
	if cur >= maxTCPConnectionsPerIP {
		return false
	}
	s.connPerIP[ip] = cur + 1
	return true
}

// releaseConn returns ip's slot, dropping the map entry at zero.
func (s *TCPServer) releaseConn(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.connPerIP[ip]
	if cur <= 1 {
		delete(s.connPerIP, ip)
		return
	}
	s.connPerIP[ip] = cur - 1
}
