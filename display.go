package main

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Displays never send anything meaningful, so inbound frames are kept small.
const displayReadLimit = 512

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// displayConn is a websocket-backed Subscriber.
type displayConn struct {
	id           string
	remote       string
	conn         *websocket.Conn
	writeTimeout time.Duration

	// gorilla/websocket supports one concurrent writer
	mu sync.Mutex
}

func newDisplayConn(conn *websocket.Conn, remote string, writeTimeout time.Duration) *displayConn {
	return &displayConn{
		id:           uuid.NewString(),
		remote:       remote,
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (d *displayConn) String() string {
	return "display " + d.id + " (" + d.remote + ")"
}

// Send writes n as a single JSON text frame. A failed write closes the
// connection, which in turn ends its read loop.
func (d *displayConn) Send(n Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writeTimeout > 0 {
		if err := d.conn.SetWriteDeadline(time.Now().Add(d.writeTimeout)); err != nil {
			_ = d.conn.Close()

			return err
		}
	}

	if err := d.conn.WriteJSON(n); err != nil {
		_ = d.conn.Close()

		return err
	}

	return nil
}

func (d *displayConn) Close() error {
	return d.conn.Close()
}

// readPump discards inbound frames until the connection closes or errors.
func (d *displayConn) readPump() {
	d.conn.SetReadLimit(displayReadLimit)

	for {
		if _, _, err := d.conn.NextReader(); err != nil {
			return
		}
	}
}

func serveDisplaySocket(cfg *Config, coord *ClaimCoordinator) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Display upgrade from %s failed: %v", realIP(r), err)

			return
		}

		display := newDisplayConn(conn, realIP(r), cfg.writeTimeout)
		startTime := time.Now()

		defer func() {
			coord.Leave(display)
			_ = display.Close()

			logf(cfg, "DISPLAY: Disconnected %s after %s", display, time.Since(startTime).Round(time.Second))
		}()

		if err := coord.Join(display); err != nil {
			logf(cfg, "DISPLAY: Failed to greet %s: %v", display, err)

			return
		}

		logf(cfg, "DISPLAY: Connected %s", display)

		display.readPump()
	}
}

// joinURL rebuilds the public URL of the join page, respecting TLS and
// X-Forwarded-Proto if present.
func joinURL(cfg *Config, r *http.Request) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")
}

// serveJoinQR renders a PNG QR code pointing at the join page.
func serveJoinQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		const qrSize = 320

		png, err := qrcode.Encode(joinURL(cfg, r), qrcode.High, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}
