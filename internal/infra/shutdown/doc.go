// Package shutdown coordinates graceful shutdown for respkv.
//
// It provides three pieces:
//
//   - WithSignals: a context canceled on SIGINT or SIGTERM
//   - Notifier: a one-shot broadcast latched by every Listener
//   - Handler: ordered shutdown hooks run under a timeout
//
// Usage:
//
//	ctx, cancel := shutdown.WithSignals(context.Background())
//	defer cancel()
//
//	n := shutdown.NewNotifier()
//	l := n.Subscribe()
//	// ... per connection: if l.Poll() { return }
//
//	<-ctx.Done()
//	n.Fire()
package shutdown
