// Package driver optimizes a batch of basic blocks. Each block is an
// independent job; the driver is a ticking component that takes one job per
// tick, so a run is driven by an akita engine like any other component.
package driver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/quadopt/blockfile"
	"github.com/sarchlab/quadopt/dag"
	"github.com/sarchlab/quadopt/instr"
	"github.com/sarchlab/quadopt/verify"
)

// Job is one block to optimize.
type Job struct {
	ID      string
	Code    []instr.Inst
	LiveOut []string
}

// Result is the outcome of one job. Code is nil when Err is set.
type Result struct {
	ID     string
	Input  int
	Code   []instr.Inst
	Dump   string
	Stats  dag.Stats
	Issues []verify.Issue
	Err    error
}

// Sink receives every result as soon as its job finishes.
type Sink interface {
	Emit(r Result) error
}

// Driver runs optimization jobs.
type Driver interface {
	// Enqueue adds a job. Jobs run in the order they are enqueued.
	Enqueue(job Job)

	// Run runs all the jobs that have been enqueued. It only fails when the
	// sink does; failed jobs are reported in their results.
	Run() error

	// Results returns the results of all finished jobs, in job order.
	Results() []Result

	// RunFile optimizes every block of a container and writes the optimized
	// code back into it. Blocks that fail are left untouched and their errors
	// are joined into the returned error.
	RunFile(f *blockfile.File) (*verify.Report, error)
}

type driverImpl struct {
	*sim.TickingComponent

	sink   Sink
	logger *slog.Logger

	dump   bool
	verify bool
	trials int
	seed   int64

	queue   []Job
	results []Result
	sinkErr error
	started bool
}

func (d *driverImpl) Enqueue(job Job) {
	d.queue = append(d.queue, job)
}

func (d *driverImpl) Results() []Result {
	return d.results
}

// Tick optimizes one pending job.
func (d *driverImpl) Tick() (madeProgress bool) {
	if len(d.queue) == 0 {
		return false
	}

	job := d.queue[0]
	d.queue = d.queue[1:]

	r := d.optimize(job)
	d.results = append(d.results, r)

	if d.sink != nil {
		if err := d.sink.Emit(r); err != nil && d.sinkErr == nil {
			d.sinkErr = fmt.Errorf("sink rejected block %s: %w", r.ID, err)
		}
	}

	return true
}

func (d *driverImpl) optimize(job Job) Result {
	r := Result{
		ID:     job.ID,
		Input:  len(job.Code),
		Issues: verify.Lint(job.Code),
	}

	out, g, err := dag.OptimizeBlock(job.Code, job.LiveOut, dag.WithLogger(d.logger))
	if d.dump {
		r.Dump = g.String()
	}
	r.Stats = g.Stats()

	if err != nil {
		r.Err = fmt.Errorf("block %s: %w", job.ID, err)
		d.logger.Warn("BlockFailed", "block", job.ID, "error", err)
		return r
	}

	if d.verify {
		if err := verify.Equivalent(job.Code, out, job.LiveOut, d.trials, d.seed); err != nil {
			r.Err = fmt.Errorf("block %s: %w", job.ID, err)
			d.logger.Warn("BlockNotEquivalent", "block", job.ID, "error", err)
			return r
		}
	}

	r.Code = out

	dag.Trace("BlockOptimized",
		"Time", float64(d.Engine.CurrentTime()*1e9),
		"block", job.ID,
		"before", len(job.Code),
		"after", len(out),
	)

	return r
}

// Run runs all the jobs in the driver.
func (d *driverImpl) Run() error {
	d.sinkErr = nil

	// After the first run the scheduler already holds the current time as its
	// last tick, so TickNow would be ignored.
	if d.started {
		d.TickLater()
	} else {
		d.TickNow()
		d.started = true
	}
	d.Engine.Run()

	if len(d.queue) > 0 {
		return fmt.Errorf("driver stopped with %d jobs pending", len(d.queue))
	}

	return d.sinkErr
}

func (d *driverImpl) RunFile(f *blockfile.File) (*verify.Report, error) {
	report := &verify.Report{}

	var errs []error
	for i := 0; i < f.Summary.TotalBlocks; i++ {
		id := strconv.Itoa(i)

		block, err := f.Block(i)
		if err != nil {
			report.Add(verify.BlockReport{ID: id, Err: err})
			errs = append(errs, err)
			continue
		}

		code, err := instr.ParseBlock(block.Lines())
		if err != nil {
			err = fmt.Errorf("block %s: %w", id, err)
			report.Add(verify.BlockReport{ID: id, Before: len(block.Code), Err: err})
			errs = append(errs, err)
			continue
		}

		d.Enqueue(Job{ID: id, Code: code, LiveOut: block.LiveOut()})
	}

	start := len(d.results)
	if err := d.Run(); err != nil {
		errs = append(errs, err)
	}

	for _, r := range d.results[start:] {
		report.Add(verify.BlockReport{
			ID:     r.ID,
			Before: r.Input,
			After:  len(r.Code),
			Issues: r.Issues,
			Err:    r.Err,
		})

		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}

		f.Blocks[r.ID].Code = instr.FormatBlock(r.Code)
	}

	return report, errors.Join(errs...)
}

// WriteDump writes the graph dump of every result that carries one, each
// under a BLOCK<id> header and closed by a line of stars.
func WriteDump(w io.Writer, results []Result) error {
	separator := strings.Repeat("*", 50)

	for _, r := range results {
		if r.Dump == "" {
			continue
		}

		if _, err := fmt.Fprintf(w, "BLOCK%s: \n%s%s\n\n", r.ID, r.Dump, separator); err != nil {
			return fmt.Errorf("write dump: %w", err)
		}
	}

	return nil
}

// LogSink logs one line per finished block.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(r Result) error {
	if r.Err != nil {
		s.Logger.Error("BlockDone", "block", r.ID, "error", r.Err)
		return nil
	}

	s.Logger.Info("BlockDone",
		"block", r.ID,
		"before", r.Input,
		"after", len(r.Code),
		"nodes", r.Stats.Nodes,
		"killed", r.Stats.Killed,
		"lint", len(r.Issues),
	)
	return nil
}
