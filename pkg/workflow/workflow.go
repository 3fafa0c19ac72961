package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-iacgen/pkg/client"
	"github.com/goliatone/go-iacgen/pkg/download"
	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/mapper"
	"github.com/goliatone/go-iacgen/pkg/validation"
)

// ErrPending is returned by Submit while a submission is in flight.
var ErrPending = errors.New("workflow: submission already in progress")

// State is a phase of a submission.
type State string

const (
	StateIdle                State = "idle"
	StateValidating          State = "validating"
	StateRequesting          State = "requesting"
	StateRepackaging         State = "repackaging"
	StateRequestingSecondary State = "requesting_secondary"
	StateSaving              State = "saving"
	StateFailed              State = "failed"
)

// Transition is reported to observers on every state change.
type Transition struct {
	SubmissionID uuid.UUID
	From         State
	To           State
	Err          error
}

// Result describes a saved artifact.
type Result struct {
	SubmissionID uuid.UUID
	Body         mapper.Body
	Filename     string
	Location     string
	Bytes        int
}

// Transport is the HTTP surface the workflow needs. *client.Client
// implements it.
type Transport interface {
	PostJSON(ctx context.Context, target client.Target, body any) (*client.Response, error)
	PostMultipart(ctx context.Context, target client.Target, part client.FilePart) (*client.Response, error)
	Get(ctx context.Context, target client.Target) (*client.Response, error)
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(message string)

func (fn NotifierFunc) Notify(message string) { fn(message) }

// Option configures an Instance.
type Option func(*Instance)

// WithTransport sets the HTTP transport. It is required.
func WithTransport(t Transport) Option {
	return func(i *Instance) { i.transport = t }
}

// WithSaver sets how artifacts are saved. Defaults to a file sink in the
// working directory.
func WithSaver(s download.Saver) Option {
	return func(i *Instance) {
		if s != nil {
			i.saver = s
		}
	}
}

// WithNotifier sets the failure notifier.
func WithNotifier(n Notifier) Option {
	return func(i *Instance) {
		if n != nil {
			i.notifier = n
		}
	}
}

// WithObserver registers a state transition callback. Observers run
// synchronously on the submitting goroutine.
func WithObserver(fn func(Transition)) Option {
	return func(i *Instance) {
		if fn != nil {
			i.observers = append(i.observers, fn)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Instance) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// Instance runs submissions for one Definition.
type Instance struct {
	def       Definition
	templates compiled
	mapper    mapper.Mapper
	resolver  validation.Resolver

	transport Transport
	saver     download.Saver
	notifier  Notifier
	observers []func(Transition)
	logger    *zap.Logger

	pending atomic.Bool
	mu      sync.Mutex
	state   State
}

// New validates def and builds an instance.
func New(def Definition, opts ...Option) (*Instance, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	templates, err := compile(def)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		def:       def,
		templates: templates,
		mapper:    def.Mapper,
		resolver:  def.Resolver,
		notifier:  NotifierFunc(func(string) {}),
		logger:    zap.NewNop(),
		state:     StateIdle,
	}
	if inst.mapper == nil {
		inst.mapper = mapper.Default()
	}
	if len(def.Defaults) > 0 {
		inst.mapper = mapper.WithDefaults(inst.mapper, def.Defaults)
	}
	if inst.resolver == nil {
		inst.resolver = validation.SchemaResolver{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inst)
		}
	}
	if inst.transport == nil {
		return nil, fmt.Errorf("workflow %s: transport is required", def.ID)
	}
	if inst.saver == nil {
		inst.saver = download.NewExecutor(download.NewFileSink("."), download.WithLogger(inst.logger))
	}
	return inst, nil
}

// Definition returns the definition the instance runs.
func (i *Instance) Definition() Definition {
	return i.def
}

// State returns the current state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Pending reports whether a submission is in flight.
func (i *Instance) Pending() bool {
	return i.pending.Load()
}

// Submit validates input and, when valid, runs the workflow to completion.
//
// Invalid input returns a *validation.Error without any network activity or
// notification. Any later failure raises exactly one notification and is
// returned. The input is copied; later changes by the caller do not affect
// the submission.
func (i *Instance) Submit(ctx context.Context, input forminput.Values) (Result, error) {
	if !i.pending.CompareAndSwap(false, true) {
		return Result{}, ErrPending
	}

	id := uuid.New()
	logger := i.logger.With(
		zap.String("submission_id", id.String()),
		zap.String("workflow", i.def.ID),
	)
	values := input.Clone()

	i.transition(id, StateValidating, nil)
	if result := i.resolver.Resolve(i.def.Form, values); !result.Valid() {
		logger.Debug("submission rejected", zap.Int("issues", len(result.Issues)))
		i.finish(id, nil)
		return Result{}, &validation.Error{Result: result}
	}

	res, err := i.run(ctx, id, values, logger)
	if err != nil {
		logger.Warn("submission failed", zap.Error(err))
		i.transition(id, StateFailed, err)
		i.notifier.Notify(MessageFor(err))
		i.finish(id, err)
		return Result{}, err
	}

	logger.Info("artifact saved",
		zap.String("filename", res.Filename),
		zap.String("location", res.Location),
		zap.Int("bytes", res.Bytes),
	)
	i.finish(id, nil)
	return res, nil
}

func (i *Instance) run(ctx context.Context, id uuid.UUID, values forminput.Values, logger *zap.Logger) (Result, error) {
	body, err := i.mapper.Map(i.def.Form, values)
	if err != nil {
		return Result{}, fmt.Errorf("workflow %s: map input: %w", i.def.ID, err)
	}

	primary := i.def.Primary
	if primary.Path, err = render(i.templates.path, body); err != nil {
		return Result{}, fmt.Errorf("workflow %s: render path: %w", i.def.ID, err)
	}

	i.transition(id, StateRequesting, nil)
	logger.Debug("primary request", zap.String("target", primary.String()))
	resp, err := i.primary(ctx, primary, body)
	if err != nil {
		return Result{}, err
	}

	payload, err := i.artifact(ctx, id, body, resp, logger)
	if err != nil {
		return Result{}, err
	}

	if payload.Filename, err = i.filename(body, payload.Filename); err != nil {
		return Result{}, err
	}

	i.transition(id, StateSaving, nil)
	location, err := i.saver.Save(ctx, payload)
	if err != nil {
		return Result{}, fmt.Errorf("workflow %s: save: %w", i.def.ID, err)
	}

	return Result{
		SubmissionID: id,
		Body:         body,
		Filename:     payload.Filename,
		Location:     location,
		Bytes:        len(payload.Data),
	}, nil
}

func (i *Instance) primary(ctx context.Context, target client.Target, body mapper.Body) (*client.Response, error) {
	if strings.EqualFold(target.Method, http.MethodGet) {
		return i.transport.Get(ctx, target)
	}
	return i.transport.PostJSON(ctx, target, body)
}

// artifact turns a successful primary response into the payload to save.
func (i *Instance) artifact(ctx context.Context, id uuid.UUID, body mapper.Body, resp *client.Response, logger *zap.Logger) (download.Payload, error) {
	switch i.def.Response {
	case ResponseJSON:
		text, err := outputText(resp.Body, i.outputField())
		if err != nil {
			return download.Payload{}, fmt.Errorf("workflow %s: %w", i.def.ID, err)
		}
		return download.Payload{
			Filename:    resp.Filename,
			ContentType: i.contentType("text/plain; charset=utf-8"),
			Data:        []byte(text),
		}, nil

	case ResponseDownload:
		target, err := i.downloadTarget(body)
		if err != nil {
			return download.Payload{}, err
		}
		logger.Debug("download request", zap.String("target", target.String()))
		blob, err := i.transport.Get(ctx, target)
		if err != nil {
			return download.Payload{}, err
		}
		return download.Payload{
			Filename:    blob.Filename,
			ContentType: i.contentType(blob.ContentType),
			Data:        blob.Body,
		}, nil
	}

	if i.def.Secondary == nil {
		return download.Payload{
			Filename:    resp.Filename,
			ContentType: i.contentType(resp.ContentType),
			Data:        resp.Body,
		}, nil
	}

	i.transition(id, StateRepackaging, nil)
	part := client.FilePart{
		Field:       i.def.Secondary.Field,
		Filename:    i.def.Secondary.Filename,
		ContentType: i.def.Secondary.ContentType,
		Data:        resp.Body,
	}
	if part.Field == "" {
		part.Field = DefaultSecondaryField
	}
	if part.Filename == "" {
		part.Filename = DefaultSecondaryName
	}

	i.transition(id, StateRequestingSecondary, nil)
	logger.Debug("secondary request", zap.String("target", i.def.Secondary.Target.String()), zap.Int("bytes", len(part.Data)))
	final, err := i.transport.PostMultipart(ctx, i.def.Secondary.Target, part)
	if err != nil {
		return download.Payload{}, err
	}
	return download.Payload{
		Filename:    final.Filename,
		ContentType: i.contentType(final.ContentType),
		Data:        final.Body,
	}, nil
}

func (i *Instance) downloadTarget(body mapper.Body) (client.Target, error) {
	folder, err := render(i.templates.folder, body)
	if err != nil {
		return client.Target{}, fmt.Errorf("workflow %s: render download folder: %w", i.def.ID, err)
	}
	source, err := render(i.templates.source, body)
	if err != nil {
		return client.Target{}, fmt.Errorf("workflow %s: render download source: %w", i.def.ID, err)
	}
	return client.Target{
		Service: i.def.Download.Service,
		Method:  http.MethodGet,
		Path:    client.DownloadFolderPath(folder, source),
	}, nil
}

// filename prefers the rendered template, then the server suggested name,
// then the workflow id.
func (i *Instance) filename(body mapper.Body, suggested string) (string, error) {
	name, err := render(i.templates.filename, body)
	if err != nil {
		return "", fmt.Errorf("workflow %s: render filename: %w", i.def.ID, err)
	}
	if name == "" {
		name = suggested
	}
	if name == "" {
		name = i.def.ID
	}
	return download.SanitizeFilename(name), nil
}

func (i *Instance) outputField() string {
	if i.def.OutputField != "" {
		return i.def.OutputField
	}
	return DefaultOutputField
}

func (i *Instance) contentType(fallback string) string {
	if i.def.ContentType != "" {
		return i.def.ContentType
	}
	return fallback
}

func outputText(data []byte, field string) (string, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	raw, ok := envelope[field]
	if !ok {
		return "", fmt.Errorf("response has no %q field", field)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("response field %q is not a string", field)
	}
	return text, nil
}

func (i *Instance) transition(id uuid.UUID, to State, err error) {
	i.mu.Lock()
	from := i.state
	i.state = to
	i.mu.Unlock()

	for _, observe := range i.observers {
		observe(Transition{SubmissionID: id, From: from, To: to, Err: err})
	}
}

// finish returns to Idle and releases the pending guard before observers
// see the Idle transition.
func (i *Instance) finish(id uuid.UUID, err error) {
	i.mu.Lock()
	from := i.state
	i.state = StateIdle
	i.mu.Unlock()
	i.pending.Store(false)

	for _, observe := range i.observers {
		observe(Transition{SubmissionID: id, From: from, To: StateIdle, Err: err})
	}
}
