package download

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// WriterSink streams payloads to a writer, typically stdout.
type WriterSink struct {
	W io.Writer

	mu     sync.Mutex
	staged map[uuid.UUID][]byte
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{W: w, staged: make(map[uuid.UUID][]byte)}
}

func (s *WriterSink) Acquire(p Payload) (Handle, error) {
	h := Handle{ID: uuid.New()}
	h.Ref = h.ID.String()
	s.mu.Lock()
	if s.staged == nil {
		s.staged = make(map[uuid.UUID][]byte)
	}
	s.staged[h.ID] = p.Data
	s.mu.Unlock()
	return h, nil
}

func (s *WriterSink) Trigger(h Handle, filename string) (string, error) {
	s.mu.Lock()
	data, ok := s.staged[h.ID]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown handle %s", h.ID)
	}
	if _, err := s.W.Write(data); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	return "-", nil
}

func (s *WriterSink) Release(h Handle) error {
	s.mu.Lock()
	delete(s.staged, h.ID)
	s.mu.Unlock()
	return nil
}
