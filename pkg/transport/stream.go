package transport

import (
	"context"
	"io"
	"sync"

	"github.com/aixgo-dev/gremlin/pkg/protocol"
)

// Stream is the response sequence of one request. Frames are delivered in the order
// the server sent them, up to and including the final one.
type Stream struct {
	requestID string
	query     any

	mu       sync.Mutex
	frames   []protocol.Response
	err      error
	finished bool
	notify   chan struct{}
}

func newStream(requestID string, query any) *Stream {
	return &Stream{requestID: requestID, query: query, notify: make(chan struct{}, 1)}
}

// RequestID returns the id of the request the stream answers.
func (s *Stream) RequestID() string {
	return s.requestID
}

func (s *Stream) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Stream) push(resp protocol.Response) {
	s.mu.Lock()
	s.frames = append(s.frames, resp)
	s.mu.Unlock()
	s.signal()
}

// fail ends the stream with err once the frames already received are consumed.
func (s *Stream) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.signal()
}

// Next returns the next frame. A frame with an error status is returned together with
// its classified error. After the final frame Next returns io.EOF.
func (s *Stream) Next(ctx context.Context) (protocol.Response, error) {
	for {
		s.mu.Lock()
		if s.finished {
			s.mu.Unlock()
			return protocol.Response{}, io.EOF
		}
		if len(s.frames) > 0 {
			resp := s.frames[0]
			s.frames = s.frames[1:]
			if resp.Status.IsTerminal() {
				s.finished = true
			}
			s.mu.Unlock()
			if err := protocol.Classify(resp.Status, s.query); err != nil {
				return resp, err
			}
			return resp, nil
		}
		if s.err != nil {
			err := s.err
			s.mu.Unlock()
			return protocol.Response{}, err
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return protocol.Response{}, ctx.Err()
		}
	}
}

// Collect reads the stream to its end and returns the data payload of every frame.
// Frames without data, such as 204 responses, contribute nothing.
func (s *Stream) Collect(ctx context.Context) ([]any, error) {
	var data []any
	for {
		resp, err := s.Next(ctx)
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
		if resp.Result.Data != nil {
			data = append(data, resp.Result.Data)
		}
	}
}
