package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roman-kulish/ground-control/internal/render"
	"github.com/roman-kulish/ground-control/internal/spectrogram"
)

const (
	defaultSendBuffer = 16
	writeWait         = 5 * time.Second
)

// ErrNotAttached is returned when the hub is replotted without a raster
var ErrNotAttached = errors.New("stream hub has no raster attached")

// Interval is an axis range in a frame
type Interval struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Frame is one replotted spectrogram as sent to clients. Values are row-major,
// oldest time slot first.
type Frame struct {
	Sequence   uint64      `json:"sequence"`
	Label      string      `json:"label"`
	ColorMap   string      `json:"colorMap"`
	Columns    int         `json:"columns"`
	Rows       int         `json:"rows"`
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
	Intervals  struct {
		X Interval `json:"x"`
		Y Interval `json:"y"`
		Z Interval `json:"z"`
	} `json:"intervals"`
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// writePump pumps frames from the hub to the websocket connection.
func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// WithLogger sets the logger for the hub
func WithLogger(logger *slog.Logger) func(h *Hub) {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithSendBuffer sets the number of frames queued per client. Frames for a
// client with a full queue are dropped.
func WithSendBuffer(n int) func(h *Hub) {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// Hub is a render target broadcasting every replotted frame as JSON to all
// connected websocket clients.
type Hub struct {
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *slog.Logger

	mu       sync.RWMutex
	clients  map[*client]struct{}
	raster   *spectrogram.Raster
	plot     render.Plot
	scales   render.Scales
	sequence uint64
	last     []byte
	closed   bool
}

// NewHub creates a hub without clients
func NewHub(options ...func(h *Hub)) *Hub {
	h := Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: defaultSendBuffer,
		clients:    make(map[*client]struct{}),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&h)
	}
	return &h
}

// ServeHTTP upgrades the request to a websocket and streams frames until the
// client disconnects. The latest frame is sent right after connecting.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	logger := h.logger.With(slog.String("client", c.id.String()))
	logger.Info("client connected", slog.String("remote", r.RemoteAddr))

	go c.writePump()

	defer func() {
		h.remove(c)
		logger.Info("client disconnected")
	}()

	// Incoming messages are ignored, reading detects disconnects
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Attach sets the raster and plot to stream, resetting axis scales
func (h *Hub) Attach(raster *spectrogram.Raster, plot render.Plot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.raster = raster
	h.plot = plot
	h.scales = render.Scales{}
}

// SetAxisScale overrides the range of an axis in subsequent frames
func (h *Hub) SetAxisScale(axis spectrogram.Axis, min, max float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.scales[axis] = spectrogram.Interval{Min: min, Max: max}
}

// Replot snapshots the raster and broadcasts it to every client without
// blocking on slow ones.
func (h *Hub) Replot() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.raster == nil {
		return ErrNotAttached
	}

	h.sequence++
	msg, err := json.Marshal(h.frame())
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	h.last = msg

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("dropping frame for slow client",
				slog.String("client", c.id.String()),
				slog.Uint64("sequence", h.sequence))
		}
	}
	return nil
}

func (h *Hub) frame() Frame {
	f := Frame{
		Sequence:   h.sequence,
		Label:      h.plot.Title,
		ColorMap:   h.plot.ColorMap.String(),
		Columns:    h.raster.Columns(),
		Rows:       h.raster.Rows(),
		Timestamps: h.raster.Timestamps(),
		Values:     h.raster.Matrix(),
	}

	interval := func(axis spectrogram.Axis) Interval {
		i := h.scales[axis]
		if !i.IsValid() {
			i = h.raster.Interval(axis)
		}
		return Interval{Min: i.Min, Max: i.Max}
	}
	f.Intervals.X = interval(spectrogram.XAxis)
	f.Intervals.Y = interval(spectrogram.YAxis)
	f.Intervals.Z = interval(spectrogram.ZAxis)
	return f
}

// Detach drops the raster, subsequent replots fail with ErrNotAttached
func (h *Hub) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.raster = nil
	h.plot = render.Plot{}
	h.scales = render.Scales{}
	h.last = nil
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new ones
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
