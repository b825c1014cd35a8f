// Package transport dials the byte stream a Dispatcher reads and writes
// MQTT packets over. It is connective tissue, not part of the protocol
// engine: everything here reduces to handing the Dispatcher an
// io.ReadWriteCloser.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"

	"golang.org/x/net/websocket"
)

// DialContext matches net.Dialer.DialContext's signature, letting callers
// substitute their own dialer (test doubles, proxies) the way
// net/http.Transport.DialContext does.
type DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

// Config selects how Dial reaches the broker.
type Config struct {
	// DialContext overrides the default net.Dialer for the "tcp" scheme.
	// It is not used for "ws", which always dials through the websocket
	// package.
	DialContext DialContext
	// DialTLSContext overrides the default dialer for "tls"; it is not
	// used for "wss".
	DialTLSContext DialContext
	// TLSClientConfig configures the TLS handshake for "tls" and "wss".
	TLSClientConfig *tls.Config
}

// Dial opens a connection to rawurl, whose scheme is one of "tcp",
// "tls", "ws", or "wss".
func Dial(ctx context.Context, cfg Config, rawurl string) (net.Conn, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}
	scheme := u.Scheme
	addr := u.Host

	if cfg.DialContext != nil && scheme == "tcp" {
		conn, err := cfg.DialContext(ctx, "tcp", addr)
		if conn == nil && err == nil {
			err = errors.New("transport: DialContext hook returned (nil, nil)")
		}
		return conn, err
	}
	if cfg.DialTLSContext != nil && scheme == "tls" {
		conn, err := cfg.DialTLSContext(ctx, "tcp", addr)
		if conn == nil && err == nil {
			err = errors.New("transport: DialTLSContext hook returned (nil, nil)")
		}
		return conn, err
	}

	switch scheme {
	case "tcp":
		return (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	case "tls":
		tlsDialer := tls.Dialer{Config: cfg.TLSClientConfig}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	case "ws", "wss":
		path := u.Path
		if path == "" {
			path = "/mqtt"
		}
		loc := &url.URL{Scheme: scheme, Host: addr, Path: path}
		originScheme := "http"
		if scheme == "wss" {
			originScheme = "https"
		}
		origin := &url.URL{Scheme: originScheme, Host: addr}

		wsCfg, err := websocket.NewConfig(loc.String(), origin.String())
		if err != nil {
			return nil, err
		}
		wsCfg.Protocol = []string{"mqtt"}
		if scheme == "wss" {
			wsCfg.TlsConfig = cfg.TLSClientConfig
		}
		ws, err := websocket.DialConfig(wsCfg)
		if err != nil {
			return nil, err
		}
		ws.PayloadType = websocket.BinaryFrame
		return ws, nil
	default:
		return nil, errors.New("transport: unsupported scheme " + scheme)
	}
}
