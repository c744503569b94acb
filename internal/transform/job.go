package transform

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"vidfetch/internal/logging"
	"vidfetch/internal/runner"
	"vidfetch/internal/services"
)

// Job is one transform request. It owns every child process and temp file it
// creates and releases them all when it reaches a terminal state.
type Job struct {
	id       string
	request  Request
	started  time.Time
	tempBase string

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	onDone func(*Job)

	mu      sync.Mutex
	state   State
	path    Path
	err     error
	procs   []*runner.Process
	temps   []string
	closers []io.Closer

	bytes       atomic.Int64
	finishedAt  time.Time
	cleanupOnce sync.Once
	done        chan struct{}
}

// ID is the job's unique identifier.
func (j *Job) ID() string { return j.id }

// Request returns the request the job was opened with.
func (j *Job) Request() Request { return j.request }

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Path returns the acquisition route, PathNone until one is chosen.
func (j *Job) Path() Path {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.path
}

// Err returns the failure that ended the job, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed once cleanup has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Bytes is the number of bytes delivered to the reader so far.
func (j *Job) Bytes() int64 { return j.bytes.Load() }

// Elapsed is the wall time from open until the terminal state, or until now
// for a job still running.
func (j *Job) Elapsed() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finishedAt.IsZero() {
		return time.Since(j.started)
	}
	return j.finishedAt.Sub(j.started)
}

// Cancel stops the job, killing running processes and removing temp files.
// It is safe to call any number of times, including after completion.
func (j *Job) Cancel() {
	j.finish(StateCancelled, services.Wrap(services.ErrCancelled, "transform", "cancel", "job cancelled", nil))
}

// transition moves the job to a non-terminal state.
func (j *Job) transition(to State) error {
	if to.Terminal() {
		return &TransitionError{From: j.State(), To: to}
	}
	j.mu.Lock()
	from := j.state
	if !CanTransition(from, to) {
		j.mu.Unlock()
		if from.Terminal() {
			return j.terminalErr()
		}
		return &TransitionError{From: from, To: to}
	}
	j.state = to
	j.mu.Unlock()
	j.logger.Debug("transform state changed",
		logging.String("from", string(from)),
		logging.String("to", string(to)),
	)
	return nil
}

func (j *Job) setPath(path Path) {
	j.mu.Lock()
	j.path = path
	j.mu.Unlock()
}

// fail ends the job with err. Cancellation errors end it as Cancelled.
func (j *Job) fail(err error) {
	if services.KindOf(err) == services.KindCancelled {
		j.finish(StateCancelled, err)
		return
	}
	j.finish(StateFailed, err)
}

func (j *Job) complete() {
	j.finish(StateCompleted, nil)
}

// finish enters a terminal state and runs cleanup. Only the first call has
// any effect.
func (j *Job) finish(to State, err error) {
	j.mu.Lock()
	if !CanTransition(j.state, to) {
		j.mu.Unlock()
		return
	}
	from := j.state
	j.state = to
	j.err = err
	j.finishedAt = time.Now()
	j.mu.Unlock()

	j.logger.Debug("transform state changed",
		logging.String("from", string(from)),
		logging.String("to", string(to)),
	)
	j.cleanup()
}

// terminalErr is returned to steps that try to proceed after the job ended.
func (j *Job) terminalErr() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	return services.Wrap(services.ErrCancelled, "transform", "step", "job already finished", nil)
}

// tempPath names a temp file for one stage of this job.
func (j *Job) tempPath(stage string) string {
	return j.tempBase + "." + stage + ".mp4"
}

// track registers a temp file for cleanup before it is created.
func (j *Job) track(path string) error {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return j.terminalErr()
	}
	j.temps = append(j.temps, path)
	j.mu.Unlock()
	return nil
}

// release removes a temp file as soon as its stage no longer needs it.
func (j *Job) release(path string) {
	j.mu.Lock()
	j.temps = slices.DeleteFunc(j.temps, func(p string) bool { return p == path })
	j.mu.Unlock()
	removeTemp(path, j.logger)
}

// attach takes ownership of a started process. A process attached after the
// job ended is killed at once.
func (j *Job) attach(proc *runner.Process) error {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		_ = proc.Close()
		return j.terminalErr()
	}
	j.procs = append(j.procs, proc)
	j.mu.Unlock()
	return nil
}

func (j *Job) addCloser(c io.Closer) error {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		_ = c.Close()
		return j.terminalErr()
	}
	j.closers = append(j.closers, c)
	j.mu.Unlock()
	return nil
}

func (j *Job) cleanup() {
	j.cleanupOnce.Do(func() {
		j.cancel()

		j.mu.Lock()
		procs := j.procs
		temps := j.temps
		closers := j.closers
		j.procs, j.temps, j.closers = nil, nil, nil
		j.mu.Unlock()

		// Processes go first so nothing is still writing when files are removed.
		for _, proc := range procs {
			_ = proc.Close()
		}
		for _, c := range closers {
			_ = c.Close()
		}
		for _, path := range temps {
			removeTemp(path, j.logger)
		}
		// The extractor leaves fragments and .part files next to its output.
		if leftovers, err := filepath.Glob(j.tempBase + "*"); err == nil {
			for _, path := range leftovers {
				removeTemp(path, j.logger)
			}
		}

		if j.onDone != nil {
			j.onDone(j)
		}
		close(j.done)
	})
}

func removeTemp(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to remove transform temp file", "transform_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check temp dir permissions"),
			logging.String(logging.FieldImpact, "stale file remains until the next startup sweep"),
		)
	}
}
