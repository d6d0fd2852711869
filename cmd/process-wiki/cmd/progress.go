package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/wikivault/process-wiki/internal/stats"
)

// progressInterval is how often the live indicator repaints.
const progressInterval = 500 * time.Millisecond

// startProgressIndicator renders a single overwritten line of running
// counters to out while a run is in flight, when out is an interactive
// terminal. Piped or redirected output (CI logs, `| tee`) instead relies
// purely on the structured log lines, since a carriage-return-overwritten
// line is meaningless there. Returns a stop function that clears the line.
func startProgressIndicator(out io.Writer, run *stats.Run) (stop func()) {
	if !isTerminal(out) {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				printProgress(out, run)
			case <-done:
				fmt.Fprint(out, "\r\033[K")
				return
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

func printProgress(out io.Writer, run *stats.Run) {
	snap := run.Snapshot()
	fmt.Fprintf(out, "\r\033[K pages=%d chunks=%d ingested=%d batches=%d",
		snap.PagesSeen, snap.ChunksCreated, snap.ChunksIngested, snap.BatchesWritten)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
