package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/shared"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 64 * 1024
	peerSendBuffer = 64
)

type peer struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (p *peer) close() {
	p.once.Do(func() { close(p.send) })
}

// BusBridge carries bus events over WebSocket.
//
// Frames read from a peer are published on the player channel; events published on the playlist channel are
// written to every connected peer.
type BusBridge struct {
	bus      events.Bus
	path     string
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[*peer]struct{}
}

// NewBusBridge creates a bridge serving WebSocket upgrades on path.
func NewBusBridge(bus events.Bus, path string, logger *log.Logger) *BusBridge {
	if path == "" {
		path = "/bus"
	}
	return &BusBridge{
		bus:    bus,
		path:   path,
		logger: shared.WithLogger(logger, "component", "bus"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		peers: make(map[*peer]struct{}),
	}
}

// Routes returns the HTTP routes this handler serves.
func (b *BusBridge) Routes() []string {
	return []string{b.path}
}

// Peers returns the number of connected peers.
func (b *BusBridge) Peers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers)
}

// ServeHTTP upgrades the connection and pumps frames until the peer disconnects.
func (b *BusBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	p := &peer{conn: conn, send: make(chan []byte, peerSendBuffer)}
	b.mu.Lock()
	b.peers[p] = struct{}{}
	b.mu.Unlock()
	b.logger.Info("peer connected", "remote", r.RemoteAddr)

	go b.writePump(p)
	b.readPump(r.Context(), p)

	b.mu.Lock()
	delete(b.peers, p)
	b.mu.Unlock()
	p.close()
	b.logger.Info("peer disconnected", "remote", r.RemoteAddr)
}

func (b *BusBridge) readPump(ctx context.Context, p *peer) {
	p.conn.SetReadLimit(maxFrameSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		frame, err := events.DecodeFrame(data)
		if err != nil {
			b.logger.Warn("invalid frame", "error", err)
			continue
		}
		if frame.Channel != events.ChannelPlayer {
			b.logger.Warn("ignoring frame for outbound channel", "channel", frame.Channel)
			continue
		}

		ev := frame.Event
		if ev.Type == events.UrlsDropped {
			ev.URLs = splitDropped(ev.URLs)
		}
		if err := b.bus.Publish(ctx, events.ChannelPlayer, ev); err != nil {
			b.logger.Warn("failed to publish frame", "event", ev.Type, "error", err)
			return
		}
	}
}

// splitDropped normalizes raw drop payloads, which may carry several links per item.
func splitDropped(items []string) []string {
	var urls []string
	for _, item := range items {
		urls = append(urls, events.SplitDropPayload(item)...)
	}
	return urls
}

func (b *BusBridge) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Run forwards playlist events to every peer until ctx is done or the bus closes.
//
// A peer that cannot keep up is disconnected rather than allowed to reorder or lose events.
func (b *BusBridge) Run(ctx context.Context) error {
	ch, unsubscribe := b.bus.Subscribe(events.ChannelPlaylist)
	defer unsubscribe()
	defer b.closePeers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return shared.ErrBusClosed
			}
			data, err := json.Marshal(events.Frame{Channel: events.ChannelPlaylist, Event: ev})
			if err != nil {
				b.logger.Error("failed to encode event", "event", ev.Type, "error", err)
				continue
			}
			b.broadcast(data)
		}
	}
}

func (b *BusBridge) broadcast(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for p := range b.peers {
		select {
		case p.send <- data:
		default:
			b.logger.Warn("dropping slow peer", "remote", p.conn.RemoteAddr())
			delete(b.peers, p)
			p.close()
		}
	}
}

func (b *BusBridge) closePeers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for p := range b.peers {
		delete(b.peers, p)
		p.close()
	}
}

// SendFrame dials a bridge at url, writes one player event and closes the connection.
func SendFrame(ctx context.Context, url string, ev events.Event) error {
	data, err := json.Marshal(events.Frame{Channel: events.ChannelPlayer, Event: ev})
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}

	closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteMessage(websocket.CloseMessage, closing); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}
