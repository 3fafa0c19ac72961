package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Config describes the identity provider.
type Config struct {
	ClientID      string
	DeviceAuthURL string
	TokenURL      string
	Scopes        []string
}

func (c Config) oauth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.ClientID,
		Scopes:   c.Scopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: c.DeviceAuthURL,
			TokenURL:      c.TokenURL,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHTTPClient sets the client used to talk to the identity provider.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) {
		if hc != nil {
			m.http = hc
		}
	}
}

// Manager owns the session lifecycle.
type Manager struct {
	cfg    Config
	store  Store
	http   *http.Client
	logger *zap.Logger

	mu      sync.RWMutex
	current *Session
	idToken string
}

// NewManager returns a manager persisting to store.
func NewManager(cfg Config, store Store, opts ...Option) *Manager {
	m := &Manager{cfg: cfg, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Manager) context(ctx context.Context) context.Context {
	if m.http != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, m.http)
	}
	return ctx
}

// Init loads the stored session. It returns ErrUnauthenticated when none is
// stored or the stored one has expired without a refresh token.
func (m *Manager) Init(_ context.Context) (*Session, error) {
	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	user, err := UserFromIDToken(rec.IDToken)
	if err != nil {
		m.logger.Warn("stored id_token unreadable", zap.Error(err))
	}
	sess := &Session{Token: rec.token(), User: user}
	if sess.Expired() {
		return nil, ErrUnauthenticated
	}

	m.mu.Lock()
	m.current = sess
	m.idToken = rec.IDToken
	m.mu.Unlock()
	return sess, nil
}

// SignIn runs the device authorization flow. prompt receives the
// verification URL and user code to show; SignIn then polls until the user
// approves, the code expires or ctx ends.
func (m *Manager) SignIn(ctx context.Context, prompt func(*oauth2.DeviceAuthResponse)) (*Session, error) {
	if m.cfg.ClientID == "" || m.cfg.DeviceAuthURL == "" || m.cfg.TokenURL == "" {
		return nil, errors.New("session: identity provider is not configured")
	}
	conf := m.cfg.oauth2()
	ctx = m.context(ctx)

	auth, err := conf.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: device authorization: %w", err)
	}
	if prompt != nil {
		prompt(auth)
	}

	tok, err := conf.DeviceAccessToken(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("session: device token: %w", err)
	}
	idToken := idTokenOf(tok)
	user, err := UserFromIDToken(idToken)
	if err != nil {
		return nil, fmt.Errorf("session: read id_token: %w", err)
	}
	if err := m.store.Save(recordFrom(tok, idToken)); err != nil {
		return nil, err
	}

	sess := &Session{Token: tok, User: user}
	m.mu.Lock()
	m.current = sess
	m.idToken = idToken
	m.mu.Unlock()
	m.logger.Info("signed in", zap.String("user", user.Display()))
	return sess, nil
}

// SignOut forgets the session.
func (m *Manager) SignOut(_ context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.idToken = ""
	m.mu.Unlock()
	return m.store.Clear()
}

// Current returns the active session or ErrUnauthenticated.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrUnauthenticated
	}
	return m.current, nil
}

// HTTPClient returns a client that sends the session's bearer token and
// refreshes it when needed. Refreshed tokens are written back to the store.
func (m *Manager) HTTPClient(ctx context.Context) (*http.Client, error) {
	sess, err := m.Current()
	if err != nil {
		return nil, err
	}
	ctx = m.context(ctx)
	src := &persistingSource{
		manager: m,
		base:    m.cfg.oauth2().TokenSource(ctx, sess.Token),
		last:    sess.Token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(sess.Token, src)), nil
}

type persistingSource struct {
	manager *Manager
	base    oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken

	m := s.manager
	m.mu.Lock()
	idToken := m.idToken
	if refreshed := idTokenOf(tok); refreshed != "" {
		idToken = refreshed
		m.idToken = refreshed
	}
	if m.current != nil {
		m.current.Token = tok
	}
	m.mu.Unlock()

	if err := m.store.Save(recordFrom(tok, idToken)); err != nil {
		m.logger.Warn("persist refreshed token", zap.Error(err))
	}
	return tok, nil
}
