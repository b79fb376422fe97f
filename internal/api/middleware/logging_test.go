package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func captureLogs(t *testing.T) *logBuffer {
	t.Helper()
	prev := log.Logger
	out := &logBuffer{}
	log.Logger = zerolog.New(out)
	t.Cleanup(func() { log.Logger = prev })
	return out
}

// accessEntry waits for the access log line of a finished request.
func accessEntry(t *testing.T, logs *logBuffer) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, line := range logs.lines() {
			if !strings.Contains(line, `"http request"`) {
				continue
			}
			entry := map[string]any{}
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				t.Fatalf("decode log line %q: %v", line, err)
			}
			return entry
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no access log entry in %v", logs.lines())
	return nil
}

func TestLoggingRecordsWebsocketUpgrade(t *testing.T) {
	logs := captureLogs(t)

	upgrader := websocket.Upgrader{}
	handler := Chain(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade through middleware chain: %v", err)
			return
		}
		conn.Close()
	}, CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}), Logging())

	server := httptest.NewServer(handler)
	defer server.Close()

	header := http.Header{}
	header.Set(RequestIDHeader, "req-ws-1")
	header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws?chatroom_id=1", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	entry := accessEntry(t, logs)
	if entry["status"] != float64(http.StatusSwitchingProtocols) {
		t.Fatalf("expected logged status 101, got %v", entry["status"])
	}
	if entry["uri"] != "/ws" || entry["method"] != http.MethodGet {
		t.Fatalf("unexpected request fields %v", entry)
	}
	if entry["request_id"] != "req-ws-1" {
		t.Fatalf("expected propagated request id, got %v", entry["request_id"])
	}
	if entry["client_ip"] != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop as client ip, got %v", entry["client_ip"])
	}
}

func TestLoggingHijackWithoutSupport(t *testing.T) {
	logs := captureLogs(t)

	handler := Logging()(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("response writer should implement http.Hijacker")
		}
		if _, _, err := hj.Hijack(); err == nil {
			t.Fatal("expected hijack to fail on a plain recorder")
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws?chatroom_id=1", nil))

	entry := accessEntry(t, logs)
	if entry["status"] != float64(http.StatusBadRequest) || entry["level"] != "warn" {
		t.Fatalf("expected warn entry with status 400, got %v", entry)
	}
}
