package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner displays a progress animation. Nothing is drawn unless the
// operation outlasts the delay, so fast operations print nothing.
type Spinner struct {
	w       io.Writer
	message string
	frames  []string
	delay   time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	drawn    bool
}

// NewSpinner creates a new spinner.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		delay:   300 * time.Millisecond,
		done:    make(chan struct{}),
	}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-s.done:
			return
		case <-timer.C:
		}

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
			s.drawn = true
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner and clears the line if anything was drawn.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		if s.drawn {
			fmt.Fprint(s.w, "\r\033[K")
		}
	})
}
