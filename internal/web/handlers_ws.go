package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"zclc/internal/builder"
)

// wsBuildState is sent to every client on connect, whatever its filter.
const wsBuildState builder.EventType = "build_state"

// wsEventTypes are the builder events a client may select with ?events=.
var wsEventTypes = []builder.EventType{
	builder.EventBuildStarted,
	builder.EventBuildSucceeded,
	builder.EventBuildFailed,
	builder.EventLintFinding,
}

// wsFeed is one connected client and the event types it follows.
// A nil events set follows everything.
type wsFeed struct {
	conn   *websocket.Conn
	events map[builder.EventType]bool
	out    chan []byte
	gone   chan struct{}
}

func newWSFeed(conn *websocket.Conn, events map[builder.EventType]bool, queue int) *wsFeed {
	return &wsFeed{
		conn:   conn,
		events: events,
		out:    make(chan []byte, queue),
		gone:   make(chan struct{}),
	}
}

func (f *wsFeed) follows(t builder.EventType) bool {
	return f.events == nil || f.events[t]
}

// WSHub routes builder events to the feeds that follow them. Publish is
// called from the event bus and never blocks: a feed whose queue is full
// is dropped.
type WSHub struct {
	mu     sync.Mutex
	feeds  map[*wsFeed]struct{}
	closed bool
	logger *slog.Logger
}

// NewWSHub creates an empty hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{
		feeds:  make(map[*wsFeed]struct{}),
		logger: logger,
	}
}

// add registers a feed. It reports false once the hub is closed.
func (h *WSHub) add(f *wsFeed) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.feeds[f] = struct{}{}
	h.logger.Debug("ws feed added", "total", len(h.feeds))
	return true
}

// drop removes a feed and signals its writer. Dropping twice is harmless.
func (h *WSHub) drop(f *wsFeed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(f)
}

func (h *WSHub) dropLocked(f *wsFeed) {
	if _, ok := h.feeds[f]; !ok {
		return
	}
	delete(h.feeds, f)
	close(f.gone)
	h.logger.Debug("ws feed dropped", "total", len(h.feeds))
}

// Publish encodes ev once and queues it on every feed following ev.Type.
func (h *WSHub) Publish(ev builder.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("ws marshal", "type", ev.Type, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for f := range h.feeds {
		if !f.follows(ev.Type) {
			continue
		}
		select {
		case f.out <- data:
		default:
			h.logger.Warn("ws client too slow, disconnecting", "type", ev.Type)
			h.dropLocked(f)
		}
	}
}

// Clients returns the number of connected clients.
func (h *WSHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds)
}

// Close drops every feed and refuses new ones.
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for f := range h.feeds {
		h.dropLocked(f)
	}
}

// parseEventFilter reads a comma-separated ?events= list. An absent or
// empty list yields nil, meaning every event.
func parseEventFilter(raw string) (map[builder.EventType]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	known := make(map[builder.EventType]bool, len(wsEventTypes))
	for _, t := range wsEventTypes {
		known[t] = true
	}
	events := make(map[builder.EventType]bool)
	for _, name := range strings.Split(raw, ",") {
		t := builder.EventType(strings.TrimSpace(name))
		if t == "" {
			continue
		}
		if !known[t] {
			return nil, fmt.Errorf("unknown event type %q", t)
		}
		events[t] = true
	}
	if len(events) == 0 {
		return nil, nil
	}
	return events, nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	events, err := parseEventFilter(r.URL.Query().Get("events"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}
	conn.SetReadLimit(4096)

	feed := newWSFeed(conn, events, 64)
	if last := s.builder.Last(); last != nil {
		if data, err := json.Marshal(builder.Event{Type: wsBuildState, Data: last}); err == nil {
			feed.out <- data
		}
	}
	if !s.wsHub.add(feed) {
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}
	defer s.wsHub.drop(feed)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writeFeed(feed)
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-feed.gone:
			cancel()
		case <-ctx.Done():
		}
	}()
	// Clients only listen; reading keeps control frames flowing and
	// notices the peer going away.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// writeFeed drains the feed's queue onto the connection until the hub
// drops it or a write fails.
func (s *Server) writeFeed(f *wsFeed) {
	for {
		select {
		case <-f.gone:
			f.conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-f.out:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := f.conn.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				s.wsHub.drop(f)
				return
			}
		}
	}
}
