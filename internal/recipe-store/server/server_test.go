package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloud-platform/recipe-store/shared/config"
	"github.com/cloud-platform/recipe-store/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer 在临时目录中准备静态文件和文档
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "js"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "data.json"), []byte(`{"recipes": []}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "js", "script.js"), []byte("console.log('hi');"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello"), 0644))

	cfg := *config.Default()
	cfg.Storage.Root = root

	srv, err := New(cfg, logger.NewNop())
	require.NoError(t, err)
	return srv, root
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)
	return resp
}

func assertCORS(t *testing.T, resp *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, PUT, OPTIONS", resp.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header().Get("Access-Control-Allow-Headers"))
}

func TestServer_GetStaticFile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(srv, http.MethodGet, "/hello.txt", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "hello", resp.Body.String())
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/plain")
	assertCORS(t, resp)

	resp = do(srv, http.MethodGet, "/js/script.js", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "javascript")
}

func TestServer_GetDirectoryListing(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(srv, http.MethodGet, "/js/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `<a href="script.js">script.js</a>`)
	assertCORS(t, resp)

	resp = do(srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "hello.txt")
}

func TestServer_GetMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(srv, http.MethodGet, "/does/not/exist.json", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assertCORS(t, resp)
}

func TestServer_Options(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/", "/data/data.json", "/anything/at/all"} {
		resp := do(srv, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.Empty(t, resp.Body.String(), path)
		assertCORS(t, resp)
	}
}

func TestServer_PutThenGetRoundTrip(t *testing.T) {
	srv, root := newTestServer(t)

	payload := `{"recipes":[{"category":"Kuchen","items":[{"name":"Apfelstrudel","zutaten":["Äpfel","Zimt"]}]}]}`
	resp := do(srv, http.MethodPut, "/data/data.json", payload)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `{"status": "success"}`, resp.Body.String())
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	resp = do(srv, http.MethodGet, "/data/data.json", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "application/json")

	var want, got interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &want))
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, want, got)

	onDisk, err := os.ReadFile(filepath.Join(root, "data", "data.json"))
	require.NoError(t, err)
	assert.Contains(t, string(onDisk), "\"Äpfel\"")
	assert.True(t, strings.HasPrefix(string(onDisk), "{\n  \"recipes\": ["))
}

func TestServer_PutConcreteScenario(t *testing.T) {
	srv, root := newTestServer(t)

	resp := do(srv, http.MethodPut, "/data/data.json", `{"a":1}`)
	assert.Equal(t, http.StatusOK, resp.Code)

	content, err := os.ReadFile(filepath.Join(root, "data", "data.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(content))
}

func TestServer_PutInvalidJSON(t *testing.T) {
	srv, root := newTestServer(t)
	path := filepath.Join(root, "data", "data.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	resp := do(srv, http.MethodPut, "/data/data.json", "not json")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, `{"status": "error"}`, resp.Body.String())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestServer_PutOtherPath(t *testing.T) {
	srv, root := newTestServer(t)

	paths := []string{"/hello.txt", "/data/other.json", "/data/data.json/", "/", "/data/data.json?x=1"}
	for _, path := range paths {
		resp := do(srv, http.MethodPut, path, `{"q":1}`)
		assert.Equal(t, http.StatusNotFound, resp.Code, path)
		assert.Empty(t, resp.Body.String(), path)
	}

	content, err := os.ReadFile(filepath.Join(root, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	document, err := os.ReadFile(filepath.Join(root, "data", "data.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"recipes": []}`, string(document))
}

func TestServer_UnsupportedMethod(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(srv, http.MethodPost, "/data/data.json", `{"a":1}`)
	assert.Equal(t, http.StatusNotImplemented, resp.Code)
}

func TestServer_CustomDocumentPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "state"), 0755))

	cfg := *config.Default()
	cfg.Storage.Root = root
	cfg.Storage.DocumentPath = "state/recipes.json"

	srv, err := New(cfg, logger.NewNop())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(srv, http.MethodPut, "/state/recipes.json", `[1]`).Code)
	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodPut, "/data/data.json", `[1]`).Code)
	assert.FileExists(t, filepath.Join(root, "state", "recipes.json"))
}

func TestNew_InvalidRoot(t *testing.T) {
	cfg := *config.Default()

	cfg.Storage.Root = filepath.Join(t.TempDir(), "missing")
	_, err := New(cfg, logger.NewNop())
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	cfg.Storage.Root = file
	_, err = New(cfg, logger.NewNop())
	assert.Error(t, err)

	cfg = *config.Default()
	cfg.Server.Port = -1
	_, err = New(cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + addr + "/hello.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err)
}

func TestServer_ListenPortInUse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := *config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = occupied.Addr().(*net.TCPAddr).Port
	cfg.Storage.Root = t.TempDir()

	srv, err := New(cfg, logger.NewNop())
	require.NoError(t, err)

	_, err = srv.Listen()
	assert.Error(t, err)
}

func TestLocalAddress(t *testing.T) {
	hostname := func() (string, error) { return "kitchen", nil }

	tests := []struct {
		name     string
		hostname func() (string, error)
		resolve  Resolver
		want     string
		wantErr  bool
	}{
		{
			name:     "优先返回IPv4",
			hostname: hostname,
			resolve:  func(string) ([]string, error) { return []string{"fe80::1", "192.168.1.20"}, nil },
			want:     "192.168.1.20",
		},
		{
			name:     "解析失败回退到回环地址",
			hostname: hostname,
			resolve:  func(string) ([]string, error) { return nil, errors.New("no such host") },
			want:     "127.0.0.1",
			wantErr:  true,
		},
		{
			name:     "只有IPv6",
			hostname: hostname,
			resolve:  func(string) ([]string, error) { return []string{"::1"}, nil },
			want:     "127.0.0.1",
			wantErr:  true,
		},
		{
			name:     "主机名获取失败",
			hostname: func() (string, error) { return "", errors.New("uts namespace") },
			resolve:  func(string) ([]string, error) { return []string{"10.0.0.2"}, nil },
			want:     "127.0.0.1",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalAddress(tt.hostname, tt.resolve)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServer_DisplayURLs(t *testing.T) {
	srv, _ := newTestServer(t)

	urls := srv.DisplayURLs()
	assert.Equal(t, "http://localhost:8000", urls.Local)
	assert.True(t, strings.HasPrefix(urls.Network, "http://"))
	assert.True(t, strings.HasSuffix(urls.Network, ":8000"))
}
