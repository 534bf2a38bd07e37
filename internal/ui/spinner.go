// Package ui holds terminal helpers for the epibac CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Spinner provides a simple command-line spinner for long-running operations
type Spinner struct {
	out         io.Writer
	interactive bool
	chars       []string
	message     string
	active      bool
	mu          sync.Mutex
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewSpinner creates a spinner on stderr. It animates only when stderr is
// a terminal and NO_COLOR is unset.
func NewSpinner(message string) *Spinner {
	return NewSpinnerTo(os.Stderr, message, isTerminal(os.Stderr) && os.Getenv("NO_COLOR") == "")
}

// NewSpinnerTo creates a spinner writing to w. A non-interactive spinner
// prints the message once instead of animating.
func NewSpinnerTo(w io.Writer, message string, interactive bool) *Spinner {
	return &Spinner{
		out:         w,
		interactive: interactive,
		chars:       []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message:     message,
		done:        make(chan struct{}),
	}
}

// Start begins spinning, showing feedback within 100ms
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true

	if !s.interactive {
		fmt.Fprintf(s.out, "%s...\n", s.message)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.done:
				fmt.Fprintf(s.out, "\r\033[K")
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r%s %s", s.chars[i], s.message)
				s.mu.Unlock()
				i = (i + 1) % len(s.chars)
			}
		}
	}()
}

// Stop stops the spinner and optionally shows a final message
func (s *Spinner) Stop(finalMessage string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()

	if finalMessage == "" {
		return
	}
	if s.interactive {
		fmt.Fprintf(s.out, "\r\033[K%s\n", finalMessage)
	} else {
		fmt.Fprintln(s.out, finalMessage)
	}
}

// Update changes the spinner message while it's running
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// isTerminal checks if f is a terminal
func isTerminal(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShowSpinner is a convenience function for simple spinner usage
func ShowSpinner(message string, fn func() error) error {
	spinner := NewSpinner(message)
	spinner.Start()
	err := fn()
	if err != nil {
		spinner.Stop(fmt.Sprintf("✗ %s", err.Error()))
	} else {
		spinner.Stop("✓ Done")
	}
	return err
}
