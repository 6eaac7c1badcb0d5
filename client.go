// Package nextmqtt is a client library for MQTT v5.0: a bit-exact control
// packet codec (internal/wire) plus a session engine that drives
// connect/reconnect, keep-alive, inflight tracking, and the acknowledgement
// flows for all three QoS levels.
package nextmqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/followben/NextMQTT/internal/wire"
	"github.com/followben/NextMQTT/transport"
)

const reconnectInterval = 5 * time.Second

// Client is an MQTT v5.0 session. All session state — connection state,
// the inflight and pending-operation maps, the packet-id counter, the
// keep-alive timer — is owned exclusively by the goroutine running run();
// Connect, Subscribe, Unsubscribe, Publish and Disconnect only post a
// closure onto c.requests and return without waiting for it to run, and
// State waits for one such closure. This is the single serial execution domain required by
// spec.md §5.
type Client struct {
	opts *clientOptions

	newTransport func() transport.Transport

	requests  chan func()
	rawIn     chan []byte
	started   chan struct{}
	closed    chan error
	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// --- everything below is touched only from run() ---

	state   ConnectionState
	tr      transport.Transport
	decoder *wire.Decoder

	lastPacketID uint16
	outbound     map[uint16]*inflightRecord // client-allocated ids: PUBLISH QoS>0
	inboundQoS2  map[uint16]Message          // broker-allocated ids: PUBLISH received, awaiting PUBREL
	pending      map[uint16]*pendingOp       // client-allocated ids: awaiting an ack

	connectFuture *Future[bool]
	hasSession    bool // true once a non-clean, persistent session has been established

	// brokerTopicAliasMax is the broker's advertised Topic Alias Maximum
	// (CONNACK property 0x22). This client never assigns aliases itself;
	// negotiating the value is as far as spec.md's scope goes.
	brokerTopicAliasMax uint16

	keepAliveTicker *time.Ticker
	keepAliveC      <-chan time.Time
	reconnectTicker *time.Ticker
	reconnectC      <-chan time.Time

	onReceive         func(Message)
	onConnectionState func(ConnectionState)

	logger *slog.Logger

	trafficCounters
}

// New constructs a Client for host:port. It does not connect; call
// Connect to do that.
func New(host string, port int, opts ...Option) *Client {
	o := defaultOptions(host, port)
	for _, opt := range opts {
		opt(o)
	}
	return newClient(o)
}

// NewWithAuth is New plus a username/password sent in CONNECT.
func NewWithAuth(host string, port int, username, password string, opts ...Option) *Client {
	o := defaultOptions(host, port)
	o.HasAuth = true
	o.Username = username
	o.Password = password
	for _, opt := range opts {
		opt(o)
	}
	return newClient(o)
}

// DialContext constructs a Client and blocks until Connect completes or ctx
// is cancelled.
func DialContext(ctx context.Context, host string, port int, opts ...Option) (*Client, error) {
	c := New(host, port, opts...)
	if _, err := c.Connect().Wait(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Dial is DialContext with context.Background().
func Dial(host string, port int, opts ...Option) (*Client, error) {
	return DialContext(context.Background(), host, port, opts...)
}

func newClient(o *clientOptions) *Client {
	c := &Client{
		opts:        o,
		requests:    make(chan func()),
		rawIn:       make(chan []byte),
		started:     make(chan struct{}),
		closed:      make(chan error),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
		state:       NotConnected,
		outbound:    make(map[uint16]*inflightRecord),
		inboundQoS2: make(map[uint16]Message),
		pending:     make(map[uint16]*pendingOp),
		logger:      o.Logger,
	}
	c.newTransport = func() transport.Transport {
		return transport.NewTCP(transport.TCPConfig{
			Host:      o.Host,
			Port:      o.Port,
			TLSConfig: o.TLSConfig,
			MaxBuffer: o.MaxBuffer,
		})
	}
	c.decoder = wire.NewDecoder()
	c.decoder.OnDiscard = func(err error) {
		c.logger.Warn("discarding malformed inbound packet", "error", err)
	}
	go c.run()
	return c
}

// OnReceive registers the callback invoked for every inbound PUBLISH.
func (c *Client) OnReceive(fn func(Message)) { c.onReceive = fn }

// OnConnectionState registers the callback invoked whenever the session's
// ConnectionState changes.
func (c *Client) OnConnectionState(fn func(ConnectionState)) { c.onConnectionState = fn }

// post hands fn to the session domain. It returns false (and runs nothing)
// if the domain has already stopped.
func (c *Client) post(fn func()) bool {
	select {
	case c.requests <- fn:
		return true
	case <-c.stopped:
		return false
	}
}

func (c *Client) setState(s ConnectionState) {
	c.state = s
	if c.onConnectionState != nil {
		go c.onConnectionState(s)
	}
}

// Connect opens the transport and performs the CONNECT/CONNACK handshake.
// The returned Future resolves to the broker's sessionPresent flag.
func (c *Client) Connect() *Future[bool] {
	f := newFuture[bool]()
	if !c.post(func() { c.doConnect(f) }) {
		f.complete(false, ErrClientClosed)
	}
	return f
}

func (c *Client) doConnect(f *Future[bool]) {
	if c.state != NotConnected && c.state != Disconnected {
		f.complete(false, fmt.Errorf("nextmqtt: connect called in state %s", c.state))
		return
	}
	c.connectFuture = f
	c.setState(Connecting)
	c.tr = c.newTransport()
	if err := c.tr.Start(clientEvents{c}); err != nil {
		c.connectFuture = nil
		c.setState(Disconnected)
		f.complete(false, &TransportError{Cause: err})
	}
}

// Disconnect sends DISCONNECT, closes the transport, and cancels every
// pending operation with ErrClientClosed. It is fire-and-forget: callers
// that need to know it has finished can use Future.Wait() on an
// in-flight operation started beforehand, or simply not worry about it.
func (c *Client) Disconnect() {
	c.post(func() { c.doDisconnect() })
}

func (c *Client) doDisconnect() {
	if c.state == NotConnected || c.state == Disconnected {
		return
	}
	c.setState(Disconnecting)
	if c.tr != nil {
		disc := &wire.DisconnectPacket{}
		if b, err := disc.Encode(); err == nil {
			c.tr.Write(b)
		}
		c.tr.Stop()
	}
	c.disarmKeepAlive()
	c.disarmReconnect()
	c.cancelAllPending(ErrClientClosed)
	c.setState(Disconnected)
}

func (c *Client) cancelAllPending(err error) {
	for id, op := range c.pending {
		op.complete(0, err)
		delete(c.pending, id)
	}
	c.outbound = make(map[uint16]*inflightRecord)
	c.inboundQoS2 = make(map[uint16]Message)
	if c.connectFuture != nil {
		f := c.connectFuture
		c.connectFuture = nil
		f.complete(false, err)
	}
}

// Subscribe requests delivery of messages matching filter at qos. The
// codec supports multiple filters per SUBSCRIBE; this client only ever
// asks for one (spec.md §4.5).
func (c *Client) Subscribe(filter string, qos QoS) *Future[QoS] {
	f := newFuture[QoS]()
	if !c.post(func() { c.doSubscribe(filter, qos, f) }) {
		f.complete(0, ErrClientClosed)
	}
	return f
}

// Unsubscribe removes a prior subscription to filter.
func (c *Client) Unsubscribe(filter string) *Future[struct{}] {
	f := newFuture[struct{}]()
	if !c.post(func() { c.doUnsubscribe(filter, f) }) {
		f.complete(struct{}{}, ErrClientClosed)
	}
	return f
}

// Publish sends payload to topic at qos.
func (c *Client) Publish(topic string, qos QoS, payload []byte) *Future[struct{}] {
	f := newFuture[struct{}]()
	if !c.post(func() { c.doPublish(topic, qos, payload, f) }) {
		f.complete(struct{}{}, ErrClientClosed)
	}
	return f
}

// State returns the current ConnectionState. It is safe to call from any
// goroutine but may be stale by the time it returns.
func (c *Client) State() ConnectionState {
	result := make(chan ConnectionState, 1)
	if !c.post(func() { result <- c.state }) {
		return Disconnected
	}
	return <-result
}

func (c *Client) send(p interface{ Encode() ([]byte, error) }) error {
	b, err := p.Encode()
	if err != nil {
		return err
	}
	if err := c.tr.Write(b); err != nil {
		c.handleTransportClosed(&TransportError{Cause: err})
		return err
	}
	c.packetsSent.Add(1)
	c.bytesSent.Add(uint64(len(b)))
	return nil
}

// run is the session domain: the single goroutine that owns every piece
// of mutable session state.
func (c *Client) run() {
	defer close(c.stopped)
	for {
		select {
		case req := <-c.requests:
			req()
		case <-c.started:
			c.handleTransportStarted()
		case chunk := <-c.rawIn:
			c.handleBytesIn(chunk)
		case err := <-c.closed:
			c.handleTransportClosed(err)
		case <-c.keepAliveC:
			c.sendPingReq()
		case <-c.reconnectC:
			c.attemptReconnect()
		case <-c.stop:
			c.doDisconnect()
			return
		}
	}
}

// Close tears down the session permanently and releases the goroutine
// started by New. A closed Client cannot reconnect; construct a new one
// instead. Close is safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (c *Client) armKeepAlive() {
	c.disarmKeepAlive()
	if c.opts.PingInterval == 0 {
		return
	}
	interval := time.Duration(c.opts.PingInterval) * time.Second / 2
	c.keepAliveTicker = time.NewTicker(interval)
	c.keepAliveC = c.keepAliveTicker.C
}

func (c *Client) disarmKeepAlive() {
	if c.keepAliveTicker != nil {
		c.keepAliveTicker.Stop()
		c.keepAliveTicker = nil
	}
	c.keepAliveC = nil
}

func (c *Client) armReconnect() {
	c.disarmReconnect()
	c.reconnectTicker = time.NewTicker(reconnectInterval)
	c.reconnectC = c.reconnectTicker.C
}

func (c *Client) disarmReconnect() {
	if c.reconnectTicker != nil {
		c.reconnectTicker.Stop()
		c.reconnectTicker = nil
	}
	c.reconnectC = nil
}

func (c *Client) sendPingReq() {
	c.send(&wire.PingReqPacket{})
}

func (c *Client) attemptReconnect() {
	c.setState(Reconnecting)
	c.reconnectCount.Add(1)
	c.tr = c.newTransport()
	if err := c.tr.Start(clientEvents{c}); err != nil {
		c.setState(Dropped)
	}
}

// clientEvents adapts transport.Events onto the session domain's channels,
// so the domain only ever mutates state from within run().
type clientEvents struct{ c *Client }

func (e clientEvents) Started() {
	select {
	case e.c.started <- struct{}{}:
	case <-e.c.stopped:
	}
}

func (e clientEvents) BytesIn(chunk []byte) {
	select {
	case e.c.rawIn <- chunk:
	case <-e.c.stopped:
	}
}

func (e clientEvents) Closed(err error) {
	select {
	case e.c.closed <- err:
	case <-e.c.stopped:
	}
}
