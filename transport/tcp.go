package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
)

// TCPConfig configures a TCP (optionally TLS) Transport.
type TCPConfig struct {
	// Host and Port identify the broker.
	Host string
	Port int

	// TLSConfig, if non-nil, causes the connection to be wrapped in TLS
	// after the TCP handshake.
	TLSConfig *tls.Config

	// MaxBuffer bounds the size of each read; it corresponds to the
	// client's maxBuffer option (default 4096, per spec).
	MaxBuffer int

	// Dialer is used to establish the connection. Defaults to
	// net.Dialer{} if nil.
	Dialer *net.Dialer
}

// TCP is the default Transport: plain TCP or TLS-over-TCP.
type TCP struct {
	cfg TCPConfig

	mu     sync.Mutex
	conn   net.Conn
	events Events
	closed bool
}

// NewTCP returns a Transport dialing cfg.Host:cfg.Port.
func NewTCP(cfg TCPConfig) *TCP {
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = 4096
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &net.Dialer{}
	}
	return &TCP{cfg: cfg}
}

func (t *TCP) Start(events Events) error {
	t.mu.Lock()
	t.events = events
	t.mu.Unlock()

	go t.run()
	return nil
}

func (t *TCP) run() {
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)

	var conn net.Conn
	var err error
	if t.cfg.TLSConfig != nil {
		conn, err = tls.DialWithDialer(t.cfg.Dialer, "tcp", addr, t.cfg.TLSConfig)
	} else {
		conn, err = t.cfg.Dialer.DialContext(context.Background(), "tcp", addr)
	}
	if err != nil {
		t.events.Closed(fmt.Errorf("transport: dial %s: %w", addr, err))
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		t.events.Closed(nil)
		return
	}
	t.conn = conn
	t.mu.Unlock()

	t.events.Started()
	t.readLoop(conn)
}

func (t *TCP) readLoop(conn net.Conn) {
	buf := make([]byte, t.cfg.MaxBuffer)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.events.BytesIn(chunk)
		}
		if err != nil {
			t.mu.Lock()
			alreadyClosed := t.closed
			t.closed = true
			t.mu.Unlock()

			if alreadyClosed {
				t.events.Closed(nil)
			} else {
				t.events.Closed(fmt.Errorf("transport: read: %w", err))
			}
			return
		}
	}
}

func (t *TCP) Write(chunk []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("transport: write before start")
	}
	_, err := conn.Write(chunk)
	if err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

func (t *TCP) Stop() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
