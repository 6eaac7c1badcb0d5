package nextmqtt

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"math/rand"
)

// clientOptions holds configuration assembled by the functional Options
// passed to New.
type clientOptions struct {
	Host string
	Port int

	Username string
	Password string
	HasAuth  bool

	ClientID string

	// PingInterval is the keep-alive interval; PINGREQ is sent every
	// PingInterval/2 (spec.md §4.3).
	PingInterval uint16

	// MaxBuffer bounds each inbound read from the transport.
	MaxBuffer int

	SecureConnection bool
	TLSConfig        *tls.Config

	CleanStart    bool
	SessionExpiry uint32

	Logger *slog.Logger
}

func defaultOptions(host string, port int) *clientOptions {
	return &clientOptions{
		Host:         host,
		Port:         port,
		ClientID:     generateClientID("nextmqtt-%%%%%%%%"),
		PingInterval: 20,
		MaxBuffer:    4096,
		Logger:       slog.New(slog.DiscardHandler),
	}
}

// Option configures a Client constructed by New.
type Option func(*clientOptions)

// WithClientID sets the client identifier. Any "%" in id is replaced with
// two uppercase hex digits of a random byte, per spec.md §6.
func WithClientID(id string) Option {
	return func(o *clientOptions) { o.ClientID = generateClientID(id) }
}

// WithPingInterval sets the keep-alive interval in seconds. Default 20.
func WithPingInterval(seconds uint16) Option {
	return func(o *clientOptions) { o.PingInterval = seconds }
}

// WithMaxBuffer sets the inbound chunk size requested from the transport.
// Default 4096.
func WithMaxBuffer(n int) Option {
	return func(o *clientOptions) { o.MaxBuffer = n }
}

// WithSecureConnection enables TLS. If cfg is nil, a zero-value
// tls.Config is used.
func WithSecureConnection(cfg *tls.Config) Option {
	return func(o *clientOptions) {
		o.SecureConnection = true
		if cfg == nil {
			cfg = &tls.Config{}
		}
		o.TLSConfig = cfg
	}
}

// WithCleanStart sets the CONNECT clean-start flag. Default false.
func WithCleanStart(clean bool) Option {
	return func(o *clientOptions) { o.CleanStart = clean }
}

// WithSessionExpiry sets the Session Expiry Interval property (seconds).
// Default 0.
func WithSessionExpiry(seconds uint32) Option {
	return func(o *clientOptions) { o.SessionExpiry = seconds }
}

// WithLogger sets the structured logger used for session-engine
// diagnostics. Default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.Logger = l }
}

// generateClientID replaces every "%" in id with two uppercase hex digits
// of a random byte (spec.md §6).
func generateClientID(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		if id[i] == '%' {
			out = append(out, fmt.Sprintf("%02X", byte(rand.Intn(256)))...)
			continue
		}
		out = append(out, id[i])
	}
	return string(out)
}
