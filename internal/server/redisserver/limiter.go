package redisserver

import (
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/respkv/pkg/cmap"
)

// clientLimiter is the token bucket of one client IP.
type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// ipLimiter rate limits commands per client IP. Buckets are shared by
// every connection from the same address.
type ipLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	clients *cmap.Map[*clientLimiter]
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		clients: cmap.New[*clientLimiter](),
	}
}

// allow reports whether a command from addr may run now.
func (l *ipLimiter) allow(addr net.Addr) bool {
	ip := clientIP(addr)
	c, _ := l.clients.GetOrCompute(ip, func() *clientLimiter {
		return &clientLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
	})
	now := l.now()
	c.lastSeen.Store(now.UnixNano())
	return c.lim.AllowN(now, 1)
}

// prune drops buckets idle for longer than idle and returns how many
// were removed. An idle bucket has refilled completely, so dropping it
// does not change any client's allowance.
func (l *ipLimiter) prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle).UnixNano()
	return l.clients.DeleteIf(func(_ string, c *clientLimiter) bool {
		return c.lastSeen.Load() < cutoff
	})
}

// idleAfter is how long a bucket takes to refill from empty.
func (l *ipLimiter) idleAfter() time.Duration {
	if l.limit <= 0 {
		return time.Minute
	}
	d := time.Duration(float64(l.burst) / float64(l.limit) * float64(time.Second))
	return max(d, time.Minute)
}

func clientIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
