package sink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// StreamPath is where Stream is usually mounted
const StreamPath = "/v1/records"

const (
	streamClientBuffer = 256
	streamWriteTimeout = 5 * time.Second
)

type streamClient struct {
	observer string
	out      chan []byte
	once     sync.Once
}

func (client *streamClient) close() {
	client.once.Do(func() { close(client.out) })
}

// Stream pushes every appended record as a JSON text message to connected websocket clients.
// Clients may pass "observer" query parameter to receive records of a single agent.
// A client that can't keep up is disconnected instead of stalling the appender.
type Stream struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

// NewStream creates stream without clients
func NewStream(logger *log.Logger) *Stream {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Stream{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
}

// ServeHTTP upgrades the connection and streams records until either side disconnects
func (stream *Stream) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := stream.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		stream.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	client := &streamClient{
		observer: r.URL.Query().Get("observer"),
		out:      make(chan []byte, streamClientBuffer),
	}
	if !stream.register(client) {
		return
	}
	defer stream.unregister(client)
	stream.logger.Info("stream client connected", "remote", r.RemoteAddr, "observer", client.observer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Writer goroutine
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-client.out:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop only detects disconnects
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	<-ctx.Done()
	stream.logger.Info("stream client disconnected", "remote", r.RemoteAddr)
}

func (stream *Stream) register(client *streamClient) bool {
	stream.mu.Lock()
	defer stream.mu.Unlock()
	if stream.closed {
		return false
	}
	stream.clients[client] = struct{}{}
	return true
}

func (stream *Stream) unregister(client *streamClient) {
	stream.mu.Lock()
	delete(stream.clients, client)
	stream.mu.Unlock()
	client.close()
}

// Clients returns number of connected clients
func (stream *Stream) Clients() int {
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return len(stream.clients)
}

// Append implements Sink
func (stream *Stream) Append(ctx context.Context, records []fovlog.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	messages := make([][]byte, len(records))
	for i := range records {
		b, err := json.Marshal(records[i])
		if err != nil {
			return errors.Wrap(err, "Can't marshal record")
		}
		messages[i] = b
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	for client := range stream.clients {
		for i, b := range messages {
			if client.observer != "" && client.observer != records[i].Observer {
				continue
			}
			select {
			case client.out <- b:
			default:
				stream.logger.Warn("dropping slow stream client", "observer", client.observer)
				delete(stream.clients, client)
				client.close()
			}
			if _, ok := stream.clients[client]; !ok {
				break
			}
		}
	}
	return nil
}

// Close disconnects every client. Later appends are ignored.
func (stream *Stream) Close() error {
	stream.mu.Lock()
	defer stream.mu.Unlock()
	stream.closed = true
	for client := range stream.clients {
		delete(stream.clients, client)
		client.close()
	}
	return nil
}
