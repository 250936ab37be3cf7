package benchmark

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

// KeyCounts defines the store sizes for benchmarking.
var KeyCounts = []int{1000, 10000, 100000}

// ValueSizes defines the value sizes for benchmarking.
var ValueSizes = []int{16, 256, 4096}

func key(i int) string {
	return fmt.Sprintf("key:%08d", i)
}

func value(size int) []byte {
	v := make([]byte, size)
	for i := range v {
		v[i] = 'a' + byte(i%26)
	}
	return v
}

// prefillStore stores count keys, every other one with an expiration
// far in the future.
func prefillStore(store *memory.Store, count int) {
	v := value(64)
	for i := 0; i < count; i++ {
		ttl := time.Duration(0)
		if i%2 == 0 {
			ttl = time.Hour
		}
		store.Set(key(i), v, ttl)
	}
}

// startServer runs a server on a loopback port until the benchmark ends.
func startServer(b *testing.B, store *memory.Store) string {
	b.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		b.Fatalf("listen: %v", err)
	}

	srv := redisserver.New(&redisserver.Config{}, store)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx, ln)

	b.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	})
	return ln.Addr().String()
}

func command(args ...string) resp.Frame {
	items := make([]resp.Frame, len(args))
	for i, a := range args {
		items[i] = resp.BulkString(a)
	}
	return resp.Array(items...)
}
