package broadcast

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

var (
	// ErrWriterClosed is returned by Send after the writer stopped.
	ErrWriterClosed = errors.New("client writer closed")
	// ErrBufferFull is returned when the client cannot keep up with the
	// outbound stream; the frame is dropped for that recipient only.
	ErrBufferFull = errors.New("client send buffer full")
)

// ClientWriter owns all writes to one WebSocket connection. Frames are queued
// on a buffered channel and written by a dedicated goroutine, so the
// dispatcher never blocks on a slow socket.
type ClientWriter struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewClientWriter(connection *websocket.Conn, clock clockwork.Clock) *ClientWriter {
	cw := &ClientWriter{
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	cw.configurePongHandler()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

// Send queues one frame for delivery. Never blocks: a full buffer or a
// stopped writer is reported as an error and the frame is dropped.
func (cw *ClientWriter) Send(data []byte) error {
	select {
	case <-cw.doneChannel:
		return ErrWriterClosed
	default:
	}

	select {
	case cw.sendChannel <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

func (cw *ClientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg := <-cw.sendChannel:
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

// Stop terminates the write goroutine and closes the connection. Safe to call
// more than once.
func (cw *ClientWriter) Stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		cw.wg.Wait()
		_ = cw.connection.Close()
	})
}

func (cw *ClientWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.connection.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		return nil
	})
}

func (cw *ClientWriter) updateWriteDeadline() {
	deadline := cw.clock.Now().Add(writeDeadline)
	_ = cw.connection.SetWriteDeadline(deadline)
}

func (cw *ClientWriter) updateReadDeadline() {
	deadline := cw.clock.Now().Add(pongDeadline)
	_ = cw.connection.SetReadDeadline(deadline)
}
