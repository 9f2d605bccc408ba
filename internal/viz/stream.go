package viz

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"foxglove-bridge/internal/credentials"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Message is a single frame received from the visualization stream.
type Message struct {
	Type int
	Data []byte
}

// Stream is an open WebSocket connection to a remote visualization
// session.
type Stream struct {
	conn   *websocket.Conn
	logger *logrus.Entry
}

// Dial opens a visualization stream using the given session credentials.
// The session token is presented as a bearer authorization header on the
// upgrade request.
func Dial(ctx context.Context, creds *credentials.Credentials, logger *logrus.Logger) (*Stream, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+creds.Token)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, creds.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, &DialError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, &DialError{Err: err}
	}

	entry := logger.WithField("component", "viz")
	entry.WithField("url", creds.URL).Info("Visualization stream connected")

	return &Stream{conn: conn, logger: entry}, nil
}

// ReadMessage blocks until the next frame arrives or the connection fails.
func (s *Stream) ReadMessage() (*Message, error) {
	messageType, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("stream read failed: %w", err)
	}
	return &Message{Type: messageType, Data: data}, nil
}

// WriteMessage sends a frame over the stream.
func (s *Stream) WriteMessage(messageType int, data []byte) error {
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("stream write failed: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}

// DialError reports a failed stream dial. StatusCode is non-zero when the
// server rejected the upgrade with an HTTP response.
type DialError struct {
	StatusCode int
	Err        error
}

func (e *DialError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("stream dial rejected with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("stream dial failed: %v", e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// authRejected reports whether a dial failure indicates the session
// credentials were rejected.
func (e *DialError) authRejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
