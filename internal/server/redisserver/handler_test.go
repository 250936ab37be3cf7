package redisserver

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/pkg/resp"
)

// lockedBuffer is written by connection goroutines and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) entries(t *testing.T, msg string) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("parse log line %q: %v", line, err)
		}
		if entry["msg"] == msg {
			out = append(out, entry)
		}
	}
	return out
}

func TestHandler_DebugLogsCommandAndReply(t *testing.T) {
	var buf lockedBuffer
	log, err := logger.New(logger.Config{Level: "debug", Output: &buf, MaxValueLen: 32})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	ts := startServer(t, &Config{}, newStore(t), WithLogger(log))
	c := dial(t, ts.addr)

	c.send("SET", "k", strings.Repeat("v", 100))
	c.expect(resp.Simple("OK"))
	c.send("GET", "missing")
	c.expect(resp.Null())

	got := buf.entries(t, "command")
	if len(got) != 2 {
		t.Fatalf("command log entries = %d, want 2", len(got))
	}

	set := got[0]
	if cmd, _ := set["cmd"].(string); !strings.HasPrefix(cmd, `["SET" "k" "vvv`) || !strings.HasSuffix(cmd, "more bytes)") {
		t.Errorf("SET cmd = %q, want clipped request frame", cmd)
	}
	if set["reply"] != "OK" {
		t.Errorf("SET reply = %v, want OK", set["reply"])
	}
	if id, _ := set["conn_id"].(string); id == "" {
		t.Error("command entry has no conn_id")
	}

	if got[1]["cmd"] != `["GET" "missing"]` || got[1]["reply"] != "(nil)" {
		t.Errorf("GET entry = %v", got[1])
	}
}

func TestHandler_NoCommandLogAtInfo(t *testing.T) {
	var buf lockedBuffer
	log, err := logger.New(logger.Config{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	ts := startServer(t, &Config{}, newStore(t), WithLogger(log))
	c := dial(t, ts.addr)

	c.send("PING")
	c.expect(resp.Simple("PONG"))

	if got := buf.entries(t, "command"); len(got) != 0 {
		t.Errorf("command entries at info = %v, want none", got)
	}
}
