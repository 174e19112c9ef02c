// Package spinner renders a single-line terminal spinner for long waits.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const frameInterval = 80 * time.Millisecond

// Spinner animates a message on one terminal line. The message can change
// while the spinner runs, so one spinner can track a sequence of tasks.
type Spinner struct {
	w io.Writer

	mu      sync.Mutex
	message string
	width   int
	done    chan struct{}
	cleared chan struct{}
	once    *sync.Once
}

// New creates a stopped spinner writing to w.
func New(w io.Writer) *Spinner {
	return &Spinner{w: w}
}

// Start begins the animation with the given message. Starting an already
// running spinner just updates the message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = message
	if s.done != nil {
		return
	}

	s.done = make(chan struct{})
	s.cleared = make(chan struct{})
	s.once = &sync.Once{}
	go s.spin(s.done, s.cleared)
}

// SetMessage replaces the displayed message.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. Safe to call repeatedly.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done, cleared, once := s.done, s.cleared, s.once
	s.mu.Unlock()
	if done == nil {
		return
	}

	once.Do(func() { close(done) })
	<-cleared

	s.mu.Lock()
	s.done = nil
	s.cleared = nil
	s.mu.Unlock()
}

func (s *Spinner) spin(done, cleared chan struct{}) {
	i := 0
	for {
		select {
		case <-done:
			s.mu.Lock()
			width := s.width
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
			close(cleared)
			return
		case <-time.After(frameInterval):
			s.mu.Lock()
			line := fmt.Sprintf("%s %s", frames[i%len(frames)], s.message)
			if len(line) > s.width {
				s.width = len(line)
			}
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r%s", line) //nolint:errcheck
			i++
		}
	}
}

// Start displays an animated spinner with the given message on w.
// Call the returned function to stop the spinner and clear the line.
func Start(w io.Writer, message string) (stop func()) {
	s := New(w)
	s.Start(message)
	return s.Stop
}
