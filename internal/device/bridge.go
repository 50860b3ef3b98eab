package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultAcquireTimeout = 10 * time.Second

// Bus is the message bus samples are republished on.
type Bus interface {
	WaitReady(ctx context.Context) error
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte)) (func(), error)
	Handle(subject string, handler func(data []byte) []byte) (func(), error)
}

// Bridge accepts a websocket connection from the device and republishes its
// sensor samples on the bus. Only one device is attached at a time; a new
// connection replaces the previous one.
type Bridge struct {
	bus            Bus
	port           uint16
	path           string
	acquireTimeout time.Duration
	upgrader       websocket.Upgrader

	mu      sync.Mutex
	session *session
}

type BridgeOpt func(*Bridge)

func WithPath(path string) BridgeOpt {
	return func(b *Bridge) {
		b.path = path
	}
}

func WithAcquireTimeout(d time.Duration) BridgeOpt {
	return func(b *Bridge) {
		b.acquireTimeout = d
	}
}

func NewBridge(bus Bus, port uint16, opts ...BridgeOpt) *Bridge {
	b := &Bridge{
		bus:            bus,
		port:           port,
		path:           "/device",
		acquireTimeout: defaultAcquireTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	camera  chan Frame
}

func (s *session) send(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(f)
}

func (b *Bridge) Start(ctx context.Context) error {
	if err := b.bus.WaitReady(ctx); err != nil {
		return err
	}

	unbind, err := b.bind()
	if err != nil {
		return err
	}
	defer unbind()

	mux := http.NewServeMux()
	mux.Handle(b.path, b)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", b.port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", b.port, err)
	}

	slog.InfoContext(ctx, "listening for devices", "port", b.port, "path", b.path)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down device listener", "error", err)
		}
		b.detach(nil)
	}()

	err = srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// bind registers the camera request handlers on the bus.
func (b *Bridge) bind() (func(), error) {
	unhandle, err := b.bus.Handle(SubjectCameraAcquire, b.acquireCamera)
	if err != nil {
		return nil, fmt.Errorf("handling %s: %w", SubjectCameraAcquire, err)
	}
	unsub, err := b.bus.Subscribe(SubjectCameraRelease, b.releaseCamera)
	if err != nil {
		unhandle()
		return nil, fmt.Errorf("subscribing to %s: %w", SubjectCameraRelease, err)
	}
	return func() {
		unhandle()
		unsub()
	}, nil
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("device upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := &session{conn: conn, camera: make(chan Frame, 1)}
	b.attach(s)
	defer b.detach(s)

	slog.Info("device connected", "remote", r.RemoteAddr)

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("device connection lost", "remote", r.RemoteAddr, "error", err)
			} else {
				slog.Info("device disconnected", "remote", r.RemoteAddr)
			}
			return
		}
		b.route(s, f)
	}
}

func (b *Bridge) route(s *session, f Frame) {
	switch f.Type {
	case FrameCamera, FrameCameraError:
		select {
		case s.camera <- f:
		default:
			slog.Debug("discarding unrequested camera frame", "type", f.Type)
		}
		return
	}

	subject, data, err := decodeSample(f)
	if err != nil {
		slog.Warn("discarding malformed device frame", "type", f.Type, "error", err)
		return
	}
	if err := b.bus.Publish(subject, data); err != nil {
		slog.Error("publishing device sample", "subject", subject, "error", err)
	}
}

func (b *Bridge) attach(s *session) {
	b.mu.Lock()
	prev := b.session
	b.session = s
	b.mu.Unlock()

	if prev != nil {
		slog.Info("replacing attached device")
		closeSession(prev)
	}
}

// detach removes s, or any session when s is nil.
func (b *Bridge) detach(s *session) {
	b.mu.Lock()
	cur := b.session
	if cur == nil || (s != nil && cur != s) {
		b.mu.Unlock()
		return
	}
	b.session = nil
	b.mu.Unlock()

	closeSession(cur)
}

func closeSession(s *session) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	// Ignoring errors - the peer may already be gone
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = s.conn.Close()
}

func (b *Bridge) current() *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

func (b *Bridge) acquireCamera(data []byte) []byte {
	reply := b.requestCamera(data)
	out, err := json.Marshal(reply)
	if err != nil {
		slog.Error("encoding camera reply", "error", err)
		return nil
	}
	return out
}

func (b *Bridge) requestCamera(data []byte) CameraReply {
	var req CameraRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return CameraReply{Error: fmt.Sprintf("malformed camera request: %v", err)}
	}

	s := b.current()
	if s == nil {
		return CameraReply{Error: "no device connected"}
	}

	// Drop a stale answer to an earlier request.
	select {
	case <-s.camera:
	default:
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return CameraReply{Error: err.Error()}
	}
	if err := s.send(Frame{Type: CommandCameraStart, Data: payload}); err != nil {
		return CameraReply{Error: fmt.Sprintf("sending camera request: %v", err)}
	}

	timer := time.NewTimer(b.acquireTimeout)
	defer timer.Stop()

	select {
	case f := <-s.camera:
		var reply CameraReply
		if err := json.Unmarshal(f.Data, &reply); err != nil {
			return CameraReply{Error: fmt.Sprintf("malformed camera frame: %v", err)}
		}
		if f.Type == FrameCameraError && reply.Error == "" {
			reply.Error = "camera unavailable"
		}
		return reply
	case <-timer.C:
		return CameraReply{Error: "timed out waiting for camera"}
	}
}

func (b *Bridge) releaseCamera([]byte) {
	s := b.current()
	if s == nil {
		return
	}
	if err := s.send(Frame{Type: CommandCameraStop}); err != nil {
		slog.Warn("sending camera release", "error", err)
	}
}
