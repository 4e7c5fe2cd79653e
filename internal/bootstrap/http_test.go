package bootstrap

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/casgate/config"
)

func testAppConfig() *config.AppConfig {
	auth := memoryAuthConfig()
	cfg := &config.AppConfig{IsDev: true, CAS: auth.CAS, Session: auth.Session}
	cfg.HTTP.Sanitize()
	return cfg
}

func TestBuildHTTPServer_RequiresAuth(t *testing.T) {
	_, err := BuildHTTPServer(&HTTPServerConfig{Config: testAppConfig()})
	assert.Error(t, err)
}

func TestBuildHTTPServer_GatesAdmin(t *testing.T) {
	cfg := testAppConfig()
	components, err := BuildAuth(memoryAuthConfig())
	require.NoError(t, err)

	server, err := BuildHTTPServer(&HTTPServerConfig{Config: cfg, Auth: components, Logger: discardLogger()})
	require.NoError(t, err)
	assert.Equal(t, ":8080", server.Addr)
	assert.Equal(t, 30*time.Second, server.ReadTimeout)

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Fadmin%2F", rec.Header().Get("Location"))
}

func TestBuildHTTPServer_ProxiesUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(upstream.Close)

	cfg := testAppConfig()
	cfg.HTTP.UpstreamURL = upstream.URL
	components, err := BuildAuth(memoryAuthConfig())
	require.NoError(t, err)

	server, err := BuildHTTPServer(&HTTPServerConfig{Config: cfg, Auth: components, Logger: discardLogger()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public/page", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, ln, time.Second, discardLogger()) }()

	require.Eventually(t, func() bool {
		resp, getErr := http.Get("http://" + ln.Addr().String() + "/")
		if getErr != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestShutdownHTTPServer_NilServer(t *testing.T) {
	assert.NoError(t, ShutdownHTTPServer(ShutdownConfig{}))
}

func TestRunSweeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 4)
	go runSweeper(ctx, func() int {
		select {
		case calls <- struct{}{}:
		default:
		}
		return 1
	}, 5*time.Millisecond, discardLogger())

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not run")
	}
	cancel()
}
