package ws

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	diag "github.com/coreman2200/lumiplay/internal/diagnostics"
	"github.com/coreman2200/lumiplay/internal/playback"
)

const (
	writeWait = 200 * time.Millisecond
	// sendBuffer is the number of messages queued per client before new ones are dropped.
	sendBuffer = 8
)

// Controller is the playback surface the control channel drives. Calls arrive on the
// render loop, never concurrently.
type Controller interface {
	Start()
	Stop()
	Pause()
	Resume()
	Resize(w, h int) error
	SetSpeed(v float64) error
	SetRepeatCount(n int) error
	SetRepeatMode(m playback.RepeatMode) error
	SetFrameWindow(first, last int) error
	SetBrightness(b float64)
	RunTest(kind string) error
	Snapshot() playback.Snapshot
}

// Server streams rendered frames to preview clients, accepts control messages and pushes
// diagnostics. It is a render.Driver, so it can be attached to the engine as a canvas.
type Server struct {
	ctl Controller
	// do runs fn on the render loop.
	do  func(fn func()) error
	log zerolog.Logger
	// save persists the current settings; nil when saving is unavailable.
	save func() error

	upgrader websocket.Upgrader

	mu          sync.RWMutex
	frameID     uint64
	startTime   time.Time
	clients     map[*websocket.Conn]*client
	diagClients map[*websocket.Conn]*client
	dropped     atomic.Uint64
}

// client owns the only writer of its conn. Messages wait in send.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewServer(ctl Controller, do func(fn func()) error, log zerolog.Logger) *Server {
	if do == nil {
		do = func(fn func()) error { fn(); return nil }
	}
	return &Server{
		ctl:         ctl,
		do:          do,
		log:         log.With().Str("component", "ws").Logger(),
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]*client{},
		diagClients: map[*websocket.Conn]*client{},
	}
}

// SetSaver enables the "save" command. fn runs on the render loop.
func (s *Server) SetSaver(fn func() error) { s.save = fn }

// Routes registers the server handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
}

type frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	RGB     []byte `json:"rgb"`
}

// Write broadcasts img to every preview client.
func (s *Server) Write(img *image.RGBA) error {
	b := img.Bounds()
	rgb := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			rgb = append(rgb, row[i], row[i+1], row[i+2])
		}
	}

	s.mu.Lock()
	s.frameID++
	id := s.frameID
	s.mu.Unlock()

	msg, err := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: id, W: b.Dx(), H: b.Dy(), RGB: rgb})
	if err != nil {
		return err
	}
	s.broadcast(s.clients, msg)
	return nil
}

// Push sends d to every diagnostics client.
func (s *Server) Push(d diag.Diagnostic) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	s.broadcast(s.diagClients, b)
}

// broadcast queues msg for every client in set without blocking; a client whose queue
// is full misses the message.
func (s *Server) broadcast(set map[*websocket.Conn]*client, msg []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range set {
		select {
		case c.send <- msg:
		default:
			s.dropped.Add(1)
		}
	}
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, s.clients)
}

func (s *Server) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, s.diagClients)
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]*client) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	set[conn] = c
	s.mu.Unlock()

	go s.writeLoop(c)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, conn)
			close(c.send)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.log.Debug().Err(err).Msg("write")
			c.conn.Close()
			return
		}
	}
}

// Control is one message on the control channel. Unset fields are ignored.
type Control struct {
	Cmd         string   `json:"cmd,omitempty"`
	Resize      *Size    `json:"resize,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
	RepeatCount *int     `json:"repeatCount,omitempty"`
	RepeatMode  *string  `json:"repeatMode,omitempty"`
	Window      *Window  `json:"window,omitempty"`
	Brightness  *float64 `json:"brightness,omitempty"`
	RunTest     *string  `json:"runTest,omitempty"`
}

type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

type Window struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// HandleControlWS applies each message on the render loop and answers with a snapshot.
func (s *Server) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Control
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug().Err(err).Msg("control message")
			continue
		}
		var snap playback.Snapshot
		var applyErr error
		if err := s.do(func() {
			applyErr = s.Apply(msg)
			snap = s.ctl.Snapshot()
		}); err != nil {
			applyErr = err
		}
		if applyErr != nil {
			s.log.Warn().Err(applyErr).Msg("control rejected")
			s.Push(diag.FromError(applyErr, map[string]any{"message": string(data)}))
		}
		b, _ := json.Marshal(snap)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

// Apply runs msg against the controller. It must be called on the render loop.
func (s *Server) Apply(msg Control) error {
	if msg.Resize != nil {
		if err := s.ctl.Resize(msg.Resize.W, msg.Resize.H); err != nil {
			return err
		}
	}
	if msg.Speed != nil {
		if err := s.ctl.SetSpeed(*msg.Speed); err != nil {
			return err
		}
	}
	if msg.RepeatMode != nil {
		m, err := playback.ParseRepeatMode(*msg.RepeatMode)
		if err != nil {
			return err
		}
		if err := s.ctl.SetRepeatMode(m); err != nil {
			return err
		}
	}
	if msg.RepeatCount != nil {
		if err := s.ctl.SetRepeatCount(*msg.RepeatCount); err != nil {
			return err
		}
	}
	if msg.Window != nil {
		if err := s.ctl.SetFrameWindow(msg.Window.First, msg.Window.Last); err != nil {
			return err
		}
	}
	if msg.Brightness != nil {
		s.ctl.SetBrightness(*msg.Brightness)
	}
	switch msg.Cmd {
	case "":
	case "start":
		s.ctl.Start()
	case "stop":
		s.ctl.Stop()
	case "pause":
		s.ctl.Pause()
	case "resume":
		s.ctl.Resume()
	case "save":
		if s.save == nil {
			return ErrSaveUnavailable
		}
		if err := s.save(); err != nil {
			return err
		}
	default:
		return &UnknownCommandError{Cmd: msg.Cmd}
	}
	if msg.RunTest != nil {
		return s.ctl.RunTest(*msg.RunTest)
	}
	return nil
}

// ErrSaveUnavailable answers a "save" command on a server without a saver.
var ErrSaveUnavailable = errors.New("config saving unavailable")

type UnknownCommandError struct{ Cmd string }

func (e *UnknownCommandError) Error() string { return "unknown command " + e.Cmd }

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var snap playback.Snapshot
	if err := s.do(func() { snap = s.ctl.Snapshot() }); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.mu.RLock()
	resp := map[string]any{
		"frame_id":  s.frameID,
		"uptime_s":  time.Since(s.startTime).Seconds(),
		"clients":   len(s.clients),
		"dropped":   s.dropped.Load(),
		"animation": snap,
	}
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
