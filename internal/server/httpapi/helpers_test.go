package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/cryptox"
	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/dmitrijs2005/keyproxy/internal/server/metrics"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/keyproxy/internal/server/services"
	"github.com/dmitrijs2005/keyproxy/internal/server/store"
	"github.com/dmitrijs2005/keyproxy/internal/server/upstream"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv      *httptest.Server
	client   *http.Client
	upstream *httptest.Server
	upCalls  atomic.Int32
	store    *store.Store
	metrics  *metrics.Metrics
}

type options struct {
	envKey    string
	autoLogin bool
	upstream  http.HandlerFunc
}

func newFixture(t *testing.T, o options) *fixture {
	t.Helper()

	f := &fixture{}
	up := o.upstream
	if up == nil {
		up = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"draw-1"}`))
		}
	}
	f.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.upCalls.Add(1)
		up(w, r)
	}))
	t.Cleanup(f.upstream.Close)

	f.store = store.New(repotest.NewSQLiteDB(t), repomanager.NewSQLiteRepositoryManager())
	f.metrics = metrics.New()

	cipher, err := cryptox.NewCipher("test-secret")
	require.NoError(t, err)

	log := logging.Nop{}
	validator := services.NewValidator(3, 1024*1024)
	authSvc := services.NewAuthService(
		f.store,
		services.NewLoginThrottle(5, 10*time.Minute, nil),
		services.AuthConfig{SecretKey: "test-secret", SessionTTL: time.Hour, SeedUsername: "admin", SeedPassword: "banana123"},
		f.metrics,
		log,
	)
	keys := services.NewAPIKeyService(f.store, f.store, cipher, validator, o.envKey, log)
	proxy := services.NewProxyService(keys, f.store, upstream.NewClient(5*time.Second, f.metrics, log),
		upstream.NewEndpoints(f.upstream.URL), validator, log)

	s := NewServer("127.0.0.1:0", log, Services{Auth: authSvc, Keys: keys, Proxy: proxy, Health: f.store}, f.metrics, o.autoLogin)
	f.srv = httptest.NewServer(s.Router())
	t.Cleanup(f.srv.Close)

	f.client = f.srv.Client()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

// login signs in as the seed user and returns the session token.
func (f *fixture) login(t *testing.T) string {
	t.Helper()
	resp, _ := f.do(t, http.MethodPost, "/login", map[string]string{"username": "admin", "password": "banana123"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := sessionCookie(resp)
	require.NotNil(t, c)
	return c.Value
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}
