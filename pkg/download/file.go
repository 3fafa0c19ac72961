package download

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileSink writes payloads into a directory. Colliding names get a " (1)",
// " (2)", ... suffix before the extension.
type FileSink struct {
	Dir string

	mu     sync.Mutex
	staged map[uuid.UUID]string
}

// NewFileSink returns a sink rooted at dir. An empty dir means the working
// directory.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{Dir: dir, staged: make(map[uuid.UUID]string)}
}

func (s *FileSink) Acquire(p Payload) (Handle, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Handle{}, fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".iacgen-*.part")
	if err != nil {
		return Handle{}, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(p.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return Handle{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return Handle{}, fmt.Errorf("close temp file: %w", err)
	}

	h := Handle{ID: uuid.New(), Ref: tmp.Name()}
	s.mu.Lock()
	if s.staged == nil {
		s.staged = make(map[uuid.UUID]string)
	}
	s.staged[h.ID] = h.Ref
	s.mu.Unlock()
	return h, nil
}

func (s *FileSink) Trigger(h Handle, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.staged[h.ID]; !ok {
		return "", fmt.Errorf("unknown handle %s", h.ID)
	}
	target, err := claimName(h.Ref, s.Dir, SanitizeFilename(filename))
	if err != nil {
		return "", err
	}
	_ = os.Remove(h.Ref)
	return target, nil
}

func (s *FileSink) Release(h Handle) error {
	s.mu.Lock()
	delete(s.staged, h.ID)
	s.mu.Unlock()

	if err := os.Remove(h.Ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// claimName links tmp under the first free name. Link fails on an existing
// target, so concurrent sinks never replace each other's files.
func claimName(tmp, dir, filename string) (string, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	candidate := filepath.Join(dir, filename)
	for i := 1; ; i++ {
		err := os.Link(tmp, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("link %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}
}

// SanitizeFilename strips directory components and characters that are not
// valid in file names on common platforms.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return -1
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return DefaultFilename
	}
	return name
}
