// Package dispatch implements the bounded-concurrency, order-preserving
// engine behind the streaming endpoints. Tasks cover contiguous ranges of
// paragraph indices; at most Concurrency model invocations run at once, and
// results are written to the sink strictly in ascending index order no matter
// in what order the invocations complete.
package dispatch

import (
	"context"
	"fmt"
	"time"
)

// Task is one schedulable invocation covering the paragraph indices
// [First, First+Count). Grammar mode uses one task per paragraph (Count 1);
// translation mode uses one task per chunk.
type Task struct {
	Ordinal int
	First   int
	Count   int
}

// Result is the outcome for a single paragraph index. A failed or timed-out
// invocation produces one error Result per covered index; there is never an
// unresolved gap.
type Result struct {
	Index int
	Text  string
	Err   error
}

// Invoker runs one task against the model host and returns one text per
// covered index. A short return slice is padded with empty strings by the
// dispatcher; on error the texts are ignored.
type Invoker func(ctx context.Context, t Task) ([]string, error)

// Sink receives the ordered results, one at a time.
type Sink interface {
	Emit(r Result) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(r Result) error

func (f SinkFunc) Emit(r Result) error { return f(r) }

type Dispatcher struct {
	// Concurrency caps the number of simultaneously running invocations.
	// Values below 1 are treated as 1.
	Concurrency int

	// Pacing, when positive, is slept between consecutive emits to smooth
	// downstream consumption. It has no effect on ordering.
	Pacing time.Duration
}

type completion struct {
	task  Task
	texts []string
	err   error
}

// Run processes tasks and emits one Result per covered index, in strict index
// order. Per-task failures become error Results and never abort the run; the
// only error Run itself returns is a sink write failure (a stream fault) or a
// malformed task list. Zero tasks complete immediately with zero emits.
//
// All coordination state (the slot array and both cursors) is touched only by
// this goroutine; workers communicate completions over a buffered channel, so
// no further locking is needed.
func (d *Dispatcher) Run(ctx context.Context, tasks []Task, invoke Invoker, sink Sink) error {
	limit := d.Concurrency
	if limit < 1 {
		limit = 1
	}

	total := 0
	for _, t := range tasks {
		if t.First != total || t.Count < 1 {
			return fmt.Errorf("task %d: non-contiguous index range (first=%d count=%d, want first=%d)",
				t.Ordinal, t.First, t.Count, total)
		}
		total += t.Count
	}
	if total == 0 {
		return nil
	}

	// Buffered to the full task count so late completions never block a
	// worker after Run has bailed out on a sink fault.
	done := make(chan completion, len(tasks))

	slots := make([]*Result, total)
	nextLaunch := 0
	nextEmit := 0
	inFlight := 0

	launch := func() {
		for inFlight < limit && nextLaunch < len(tasks) {
			t := tasks[nextLaunch]
			nextLaunch++
			inFlight++
			go func() {
				texts, err := invoke(ctx, t)
				done <- completion{task: t, texts: texts, err: err}
			}()
		}
	}

	emit := func() error {
		for nextEmit < total && slots[nextEmit] != nil {
			if d.Pacing > 0 && nextEmit > 0 {
				time.Sleep(d.Pacing)
			}
			if err := sink.Emit(*slots[nextEmit]); err != nil {
				return err
			}
			slots[nextEmit] = nil
			nextEmit++
		}
		return nil
	}

	launch()
	for nextEmit < total || inFlight > 0 {
		c := <-done
		inFlight--

		for i := 0; i < c.task.Count; i++ {
			r := Result{Index: c.task.First + i}
			switch {
			case c.err != nil:
				r.Err = c.err
			case i < len(c.texts):
				r.Text = c.texts[i]
			}
			slots[r.Index] = &r
		}

		if err := emit(); err != nil {
			return fmt.Errorf("sink emit: %w", err)
		}
		launch()
	}

	return nil
}
