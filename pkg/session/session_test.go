package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-iacgen/pkg/session"
)

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

type provider struct {
	*httptest.Server
	idToken     string
	tokenCalls  atomic.Int32
	refreshes   atomic.Int32
	accessToken string
}

func newProvider(t *testing.T) *provider {
	t.Helper()
	p := &provider{
		idToken: signedIDToken(t, jwt.MapClaims{
			"sub":   "user-1",
			"email": "ada@example.com",
			"name":  "Ada",
		}),
		accessToken: "access-1",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "iacgen-cli", r.Form.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "dev-code",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://login.example.com/device",
			"expires_in":       60,
			"interval":         1,
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "refresh_token":
			p.refreshes.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-2",
				"token_type":    "Bearer",
				"refresh_token": "refresh-2",
				"expires_in":    3600,
			})
		default:
			p.tokenCalls.Add(1)
			assert.Equal(t, "dev-code", r.Form.Get("device_code"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  p.accessToken,
				"token_type":    "Bearer",
				"refresh_token": "refresh-1",
				"expires_in":    3600,
				"id_token":      p.idToken,
			})
		}
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func (p *provider) config() session.Config {
	return session.Config{
		ClientID:      "iacgen-cli",
		DeviceAuthURL: p.URL + "/device",
		TokenURL:      p.URL + "/token",
		Scopes:        []string{"openid", "email"},
	}
}

func TestManagerSignInPersistsSession(t *testing.T) {
	p := newProvider(t)
	store := session.NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	manager := session.NewManager(p.config(), store)

	var shown *oauth2.DeviceAuthResponse
	sess, err := manager.SignIn(context.Background(), func(auth *oauth2.DeviceAuthResponse) {
		shown = auth
	})
	require.NoError(t, err)
	require.NotNil(t, shown)
	assert.Equal(t, "ABCD-EFGH", shown.UserCode)
	assert.Equal(t, "access-1", sess.Token.AccessToken)
	assert.Equal(t, session.User{Subject: "user-1", Email: "ada@example.com", Name: "Ada"}, sess.User)
	assert.Equal(t, "Ada <ada@example.com>", sess.User.Display())

	info, err := os.Stat(store.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored := session.NewManager(p.config(), store)
	again, err := restored.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", again.Token.AccessToken)
	assert.Equal(t, sess.User, again.User)
}

func TestManagerInitWithoutSession(t *testing.T) {
	manager := session.NewManager(session.Config{}, session.NewFileStore(filepath.Join(t.TempDir(), "missing.json")))

	_, err := manager.Init(context.Background())
	assert.ErrorIs(t, err, session.ErrUnauthenticated)

	_, err = manager.Current()
	assert.ErrorIs(t, err, session.ErrUnauthenticated)

	_, err = manager.HTTPClient(context.Background())
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestManagerInitRejectsExpiredSessionWithoutRefresh(t *testing.T) {
	store := &session.MemoryStore{}
	require.NoError(t, store.Save(session.Record{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Hour),
	}))

	_, err := session.NewManager(session.Config{}, store).Init(context.Background())
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestManagerSignOutClearsStore(t *testing.T) {
	p := newProvider(t)
	store := &session.MemoryStore{}
	manager := session.NewManager(p.config(), store)

	_, err := manager.SignIn(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, manager.SignOut(context.Background()))
	_, err = manager.Current()
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	_, err = store.Load()
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestManagerSignInRequiresProvider(t *testing.T) {
	_, err := session.NewManager(session.Config{}, &session.MemoryStore{}).SignIn(context.Background(), nil)
	assert.Error(t, err)
}

func TestManagerHTTPClientRefreshesAndPersists(t *testing.T) {
	p := newProvider(t)
	store := &session.MemoryStore{}
	require.NoError(t, store.Save(session.Record{
		AccessToken:  "expired",
		TokenType:    "Bearer",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Minute),
		IDToken:      p.idToken,
	}))
	manager := session.NewManager(p.config(), store)
	_, err := manager.Init(context.Background())
	require.NoError(t, err)

	var seen string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(api.Close)

	hc, err := manager.HTTPClient(context.Background())
	require.NoError(t, err)
	resp, err := hc.Get(api.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "Bearer access-2", seen)
	assert.Equal(t, int32(1), p.refreshes.Load())

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-2", rec.AccessToken)
	assert.Equal(t, "refresh-2", rec.RefreshToken)
	assert.Equal(t, p.idToken, rec.IDToken, "id_token survives a refresh that omits it")
}

func TestUserFromIDToken(t *testing.T) {
	raw := signedIDToken(t, jwt.MapClaims{"sub": "u", "preferred_username": "ada"})
	user, err := session.UserFromIDToken(raw)
	require.NoError(t, err)
	assert.Equal(t, session.User{Subject: "u", Name: "ada"}, user)

	_, err = session.UserFromIDToken("not-a-jwt")
	assert.Error(t, err)

	empty, err := session.UserFromIDToken("")
	require.NoError(t, err)
	assert.Equal(t, "", empty.Display())
}
