package success

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Reveal prints the staged success screen. The staging is cosmetic: a
// zero delay collapses it into a single immediate reveal without changing
// anything observable downstream.
type Reveal struct {
	Delay time.Duration
	Out   io.Writer
}

var stages = []string{
	"",
	"  ✅ Handover confirmed!",
	"     The transaction is complete.",
	"     Payment settlement is handled by the marketplace.",
	"",
}

// Run writes the stages, pausing Delay between them. Cancelling the
// context skips straight to the remaining output.
func (r *Reveal) Run(ctx context.Context) {
	delay := r.Delay
	for i, stage := range stages {
		fmt.Fprintln(r.Out, stage)
		if delay <= 0 || i == len(stages)-1 {
			continue
		}
		select {
		case <-ctx.Done():
			delay = 0
		case <-time.After(delay):
		}
	}
}
