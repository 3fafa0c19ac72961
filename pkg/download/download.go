package download

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultFilename is used when a payload carries no name.
const DefaultFilename = "download"

// Payload is an artifact ready to be saved.
type Payload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Handle references a transient resource acquired for one payload. Ref is
// sink specific (a temp file path, a buffer key).
type Handle struct {
	ID  uuid.UUID
	Ref string
}

// Sink performs the platform side of a save.
type Sink interface {
	// Acquire stages the payload and returns a handle to it.
	Acquire(Payload) (Handle, error)
	// Trigger saves the staged payload under filename and returns where it
	// ended up.
	Trigger(h Handle, filename string) (string, error)
	// Release frees the handle. It is called exactly once per acquired handle.
	Release(Handle) error
}

// Saver is implemented by Executor and accepted by the workflow.
type Saver interface {
	Save(ctx context.Context, p Payload) (string, error)
}

// Executor saves payloads through a Sink.
type Executor struct {
	sink   Sink
	logger *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor wraps sink.
func NewExecutor(sink Sink, opts ...Option) *Executor {
	e := &Executor{sink: sink, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Save stages p, triggers the save and releases the handle. The handle is
// released exactly once whether Trigger returns an error, panics or
// succeeds; a panic is reported as an error.
func (e *Executor) Save(ctx context.Context, p Payload) (location string, err error) {
	if e == nil || e.sink == nil {
		return "", errors.New("download: sink is not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Filename == "" {
		p.Filename = DefaultFilename
	}

	handle, err := e.sink.Acquire(p)
	if err != nil {
		return "", fmt.Errorf("download: acquire: %w", err)
	}

	defer func() {
		if releaseErr := e.sink.Release(handle); releaseErr != nil {
			e.logger.Warn("release download handle", zap.String("handle", handle.ID.String()), zap.Error(releaseErr))
			if err == nil {
				err = fmt.Errorf("download: release: %w", releaseErr)
			}
		}
	}()
	defer func() {
		if recovered := recover(); recovered != nil {
			location = ""
			err = fmt.Errorf("download: trigger panicked: %v", recovered)
		}
	}()

	location, err = e.sink.Trigger(handle, p.Filename)
	if err != nil {
		return "", fmt.Errorf("download: trigger: %w", err)
	}
	e.logger.Debug("download saved",
		zap.String("handle", handle.ID.String()),
		zap.String("filename", p.Filename),
		zap.Int("bytes", len(p.Data)),
	)
	return location, nil
}
