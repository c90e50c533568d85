package server

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nczempin/tinyhttpd/client"
	"github.com/nczempin/tinyhttpd/errors"
	"github.com/nczempin/tinyhttpd/transport"
)

// syncBuffer is a bytes.Buffer safe to write from the server goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testServer struct {
	client *client.HttpClient
	addr   string
	stop   func()
}

func startServer(t *testing.T, engine transport.Engine, h *Handler) *testServer {
	t.Helper()

	l, err := transport.ListenTCP(0, engine)
	if err != nil {
		if errors.IsTransport(err, errors.TransportErrorIoUringInit) {
			t.Skipf("io_uring unavailable: %v", err)
		}
		t.Fatalf("ListenTCP failed: %v", err)
	}

	srv := New(l, h, nil)
	done := make(chan error, 1)
	go func() {
		done <- srv.Run()
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", l.Port())
	ts := &testServer{
		client: client.NewHttpClient("tcp", addr),
		addr:   addr,
	}
	ts.stop = func() {
		srv.Close()
		select {
		case err := <-done:
			if !errors.IsTransport(err, errors.TransportErrorAcceptFailure) {
				t.Errorf("Expected Run to end with AcceptFailure, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after Close")
		}
	}
	return ts
}

func writeFile(t *testing.T, path, data string, perm os.FileMode) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(data), perm); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("Failed to chmod %s: %v", path, err)
	}
}

const adderScript = "#!/bin/sh\nprintf 'Content-type: text/plain\\r\\n\\r\\nargs=%s' \"$QUERY_STRING\"\n"

// newDocRoot lays out a document root with static files and CGI programs
func newDocRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "home.html"), "<html>hi</html>", 0644)
	writeFile(t, filepath.Join(root, "notes.txt"), "plain notes\n", 0644)
	writeFile(t, filepath.Join(root, "docs", "home.html"), "<html>docs</html>", 0644)
	writeFile(t, filepath.Join(root, "secret.html"), "hidden", 0200)
	writeFile(t, filepath.Join(root, "cgi-bin", "adder"), adderScript, 0755)
	writeFile(t, filepath.Join(root, "cgi-bin", "noexec"), adderScript, 0644)
	return root
}

func TestServer_HomePageScenario(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	raw, err := ts.client.Send([]byte("GET / HTTP/1.0\r\n\r\n"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	want := "HTTP/1.0 200 OK\r\nServer: Tiny Web Server\r\nContent-length:15\r\nContent-type:text/html\r\n\r\n<html>hi</html>"
	if string(raw) != want {
		t.Errorf("Expected %q, got %q", want, raw)
	}
}

func TestServer_StaticRoundTrip(t *testing.T) {
	root := newDocRoot(t)
	data := make([]byte, 3*8192+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(filepath.Join(root, "big.jpg"), data, 0644); err != nil {
		t.Fatalf("Failed to write big.jpg: %v", err)
	}

	ts := startServer(t, transport.EngineStd, &Handler{Root: root})
	defer ts.stop()

	resp, err := ts.client.Get("/big.jpg")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.ContentLength != len(data) {
		t.Errorf("Expected Content-length %d, got %d", len(data), resp.ContentLength)
	}
	if ct, _ := resp.Header("Content-type"); ct != "image/jpg" {
		t.Errorf("Expected image/jpg, got %q", ct)
	}
	if !bytes.Equal(resp.Body, data) {
		t.Error("Expected body bytes to equal file bytes")
	}
}

func TestServer_DirectoryDefaultsToHome(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	resp, err := ts.client.Get("/docs/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != "<html>docs</html>" {
		t.Errorf("Expected docs home page, got %d %q", resp.StatusCode, resp.Body)
	}
}

func TestServer_MethodCaseInsensitive(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	for _, method := range []string{"GET", "get", "Get", "gEt"} {
		resp, err := ts.client.Do(method, "/notes.txt")
		if err != nil {
			t.Fatalf("%s failed: %v", method, err)
		}
		if resp.StatusCode != 200 {
			t.Errorf("Expected %s to succeed, got %d", method, resp.StatusCode)
		}
		if ct, _ := resp.Header("Content-type"); ct != "text/plain" {
			t.Errorf("Expected text/plain, got %q", ct)
		}
	}
}

func TestServer_UnsupportedMethods(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	for _, method := range []string{"POST", "HEAD", "put", "GETX"} {
		resp, err := ts.client.Do(method, "/home.html")
		if err != nil {
			t.Fatalf("%s failed: %v", method, err)
		}
		if resp.StatusCode != 501 || resp.StatusMessage != "Not Implemented" {
			t.Errorf("Expected 501 Not Implemented for %s, got %d %s", method, resp.StatusCode, resp.StatusMessage)
		}
		if !strings.Contains(string(resp.Body), method) {
			t.Errorf("Expected error body to name the method %s, got %q", method, resp.Body)
		}
	}
}

func TestServer_ClientErrors(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	tests := []struct {
		uri    string
		status int
	}{
		{"/missing.html", 404},
		{"/cgi-bin/missing", 404},
		{"/secret.html", 403},
		{"/docs", 403},
		{"/cgi-bin/noexec", 403},
		{"/../etc/passwd", 403},
	}

	for _, tt := range tests {
		resp, err := ts.client.Get(tt.uri)
		if err != nil {
			t.Fatalf("GET %s failed: %v", tt.uri, err)
		}
		if resp.StatusCode != tt.status {
			t.Errorf("GET %s: expected %d, got %d", tt.uri, tt.status, resp.StatusCode)
		}
		if ct, _ := resp.Header("Content-type"); ct != "text/html" {
			t.Errorf("GET %s: expected text/html error page, got %q", tt.uri, ct)
		}
		if resp.ContentLength != len(resp.Body) {
			t.Errorf("GET %s: Content-length %d does not match body %d", tt.uri, resp.ContentLength, len(resp.Body))
		}
	}
}

func TestServer_Dynamic(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	tests := []struct {
		uri  string
		body string
	}{
		{"/cgi-bin/adder?x=1&y=2", "args=x=1&y=2"},
		{"/cgi-bin/adder", "args="},
	}

	for _, tt := range tests {
		raw, err := ts.client.DoRaw("GET", tt.uri)
		if err != nil {
			t.Fatalf("GET %s failed: %v", tt.uri, err)
		}
		want := "HTTP/1.0 200 OK\r\nServer: Tiny Web Server\r\nContent-type: text/plain\r\n\r\n" + tt.body
		if string(raw) != want {
			t.Errorf("GET %s: expected %q, got %q", tt.uri, want, raw)
		}
	}
}

func TestServer_Idempotent(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	var first []byte
	for i := 0; i < 5; i++ {
		raw, err := ts.client.DoRaw("GET", "/home.html")
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
		if i == 0 {
			first = raw
			continue
		}
		if !bytes.Equal(raw, first) {
			t.Errorf("Request %d: expected %q, got %q", i, first, raw)
		}
	}
}

func TestServer_EchoesHeaders(t *testing.T) {
	echo := &syncBuffer{}
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t), HeaderEcho: echo})
	defer ts.stop()

	request := "GET /home.html HTTP/1.0\r\nHost: example\r\nUser-Agent: test\r\n\r\n"
	if _, err := ts.client.Send([]byte(request)); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	want := "Host: example\r\nUser-Agent: test\r\n"
	if echo.String() != want {
		t.Errorf("Expected echoed headers %q, got %q", want, echo.String())
	}
}

func TestServer_ServesOneConnectionAtATime(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	// The first client stalls inside its headers
	slow, err := net.Dial("tcp", ts.addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer slow.Close()
	if _, err := slow.Write([]byte("GET /home.html HTTP/1.0\r\nHost: slow\r\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	second := make(chan error, 1)
	go func() {
		_, err := ts.client.Get("/notes.txt")
		second <- err
	}()

	select {
	case err := <-second:
		t.Fatalf("Expected second request to wait for the first, it finished with %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	if _, err := slow.Write([]byte("\r\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	first, err := io.ReadAll(slow)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !strings.HasPrefix(string(first), "HTTP/1.0 200 OK\r\n") {
		t.Errorf("Expected first response to succeed, got %q", first)
	}

	select {
	case err := <-second:
		if err != nil {
			t.Errorf("Second request failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Second request never completed")
	}
}

func TestServer_SurvivesAbandonedConnection(t *testing.T) {
	ts := startServer(t, transport.EngineStd, &Handler{Root: newDocRoot(t)})
	defer ts.stop()

	conn, err := net.Dial("tcp", ts.addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	conn.Write([]byte("GET / HTTP/1.0\r\n"))
	conn.Close()

	resp, err := ts.client.Get("/")
	if err != nil {
		t.Fatalf("GET after abandoned connection failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_IOURingEngines(t *testing.T) {
	for _, engine := range []transport.Engine{transport.EngineIOURing, transport.EngineURing} {
		t.Run(string(engine), func(t *testing.T) {
			root := newDocRoot(t)
			data := bytes.Repeat([]byte("0123456789abcdef"), 1500)
			if err := os.WriteFile(filepath.Join(root, "big.txt"), data, 0644); err != nil {
				t.Fatalf("Failed to write big.txt: %v", err)
			}

			ts := startServer(t, engine, &Handler{Root: root})
			defer ts.stop()

			raw, err := ts.client.Send([]byte("GET / HTTP/1.0\r\n\r\n"))
			if err != nil {
				t.Fatalf("GET failed: %v", err)
			}
			want := "HTTP/1.0 200 OK\r\nServer: Tiny Web Server\r\nContent-length:15\r\nContent-type:text/html\r\n\r\n<html>hi</html>"
			if string(raw) != want {
				t.Errorf("Expected %q, got %q", want, raw)
			}

			resp, err := ts.client.Get("/big.txt")
			if err != nil {
				t.Fatalf("GET big.txt failed: %v", err)
			}
			if resp.StatusCode != 200 || !bytes.Equal(resp.Body, data) {
				t.Errorf("Expected %d body bytes, got %d %d bytes", len(data), resp.StatusCode, len(resp.Body))
			}

			// CGI output goes straight to the accepted socket via File
			raw, err = ts.client.DoRaw("GET", "/cgi-bin/adder?n=7")
			if err != nil {
				t.Fatalf("GET dynamic failed: %v", err)
			}
			want = "HTTP/1.0 200 OK\r\nServer: Tiny Web Server\r\nContent-type: text/plain\r\n\r\nargs=n=7"
			if string(raw) != want {
				t.Errorf("Expected %q, got %q", want, raw)
			}

			resp, err = ts.client.Get("/missing.html")
			if err != nil {
				t.Fatalf("GET missing failed: %v", err)
			}
			if resp.StatusCode != 404 {
				t.Errorf("Expected 404, got %d", resp.StatusCode)
			}
		})
	}
}

func TestServer_UnixListener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.sock")
	l, err := transport.ListenUnix(path, transport.EngineStd)
	if err != nil {
		t.Fatalf("ListenUnix failed: %v", err)
	}
	defer l.Close()

	srv := New(l, &Handler{Root: newDocRoot(t)}, nil)
	go srv.serveOne(t)

	resp, err := client.NewHttpClient("unix", path).Get("/")
	if err != nil {
		t.Fatalf("GET over unix socket failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

// serveOne accepts and serves a single connection
func (s *Server) serveOne(t *testing.T) {
	conn, err := s.Listener.Accept()
	if err != nil {
		t.Errorf("Accept failed: %v", err)
		return
	}
	s.serve(conn)
}
