package memory

import "time"

// reap runs until Close. Each pass evicts every key whose deadline has
// passed, then sleeps until the next deadline or a wake notification.
func (s *Store) reap() {
	defer close(s.done)

	s.logger.Debug("expiration reaper started")

	for {
		next, evicted, shutdown := s.purgeExpired()
		if shutdown {
			s.logger.Debug("expiration reaper stopped")
			return
		}

		if evicted > 0 {
			s.logger.Debug("expired keys evicted", "count", evicted)
			if s.onExpire != nil {
				s.onExpire(evicted)
			}
		}

		if next.IsZero() {
			<-s.wake
			continue
		}

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-timer.C:
		case <-s.wake:
		}
		timer.Stop()
	}
}

// purgeExpired removes every pair whose instant is not after now, along
// with its entry. It returns the next deadline, or the zero time when no
// key carries an expiration.
func (s *Store) purgeExpired() (next time.Time, evicted int, shutdown bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return time.Time{}, 0, true
	}

	now := s.now()
	for {
		exp, ok := s.expirations.earliest()
		if !ok {
			return time.Time{}, evicted, false
		}
		if exp.when.After(now) {
			return exp.when, evicted, false
		}

		s.expirations.popEarliest()
		delete(s.entries, exp.key)
		evicted++
	}
}
