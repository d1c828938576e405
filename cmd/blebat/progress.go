package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter shows "<prefix> (Ns)" with the elapsed seconds on one
// terminal line while an operation runs. It prints nothing unless the writer
// is a terminal.
//
//	p := NewProgressPrinter(cmd.ErrOrStderr(), "Reading battery")
//	p.Start()
//	defer p.Stop()
//
// A ProgressPrinter is single-use; Stop is safe to call more than once.
type ProgressPrinter struct {
	w       io.Writer
	prefix  string
	enabled bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	done      chan struct{}
}

// NewProgressPrinter creates a printer that is active only on a terminal.
func NewProgressPrinter(w io.Writer, prefix string) *ProgressPrinter {
	return newProgressPrinter(w, prefix, isTerminal(w))
}

func newProgressPrinter(w io.Writer, prefix string, enabled bool) *ProgressPrinter {
	return &ProgressPrinter{
		w:        w,
		prefix:   prefix,
		enabled:  enabled,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressPrinter) Start() {
	if !p.enabled {
		return
	}
	p.startOnce.Do(func() {
		start := time.Now()
		fmt.Fprintf(p.w, "\r%s...   ", p.prefix)

		go func() {
			defer close(p.done)
			ticker := time.NewTicker(progressUpdateInterval)
			defer ticker.Stop()

			for {
				select {
				case <-p.stopChan:
					return
				case <-ticker.C:
					if seconds := int(time.Since(start).Seconds()); seconds > 0 {
						fmt.Fprintf(p.w, "\r%s (%ds)   ", p.prefix, seconds)
					}
				}
			}
		}()
	})
}

// Stop stops the progress display and clears the line.
func (p *ProgressPrinter) Stop() {
	if !p.enabled {
		return
	}
	p.stopOnce.Do(func() {
		close(p.stopChan)
		started := true
		p.startOnce.Do(func() { started = false })
		if started {
			<-p.done
			fmt.Fprint(p.w, clearLineSequence)
		}
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
