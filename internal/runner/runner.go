package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vidfetch/internal/logging"
	"vidfetch/internal/metrics"
	"vidfetch/internal/services"
)

// stderrTailBytes bounds the stderr retained for streaming processes.
const stderrTailBytes = 8 * 1024

// waitDelay is how long Wait keeps draining output after a kill before the
// pipes are force-closed.
const waitDelay = 2 * time.Second

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	// Env replaces the inherited environment when non-nil.
	Env []string
	Dir string
}

// String renders the command line for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

// Tool is the base name of the executable, used for metrics and messages.
func (c Command) Tool() string {
	return filepath.Base(c.Name)
}

// Result is the buffered outcome of Run.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner starts external processes. Exec is the OS implementation; tests
// substitute their own.
type Runner interface {
	// Run executes the command to completion. A non-zero exit returns the
	// populated Result along with a *services.ProcessError.
	Run(ctx context.Context, cmd Command) (Result, error)
	// Start launches the command and returns immediately with a handle whose
	// stdout can be streamed.
	Start(ctx context.Context, cmd Command) (*Process, error)
}

// Exec runs commands as OS child processes in their own process group so a
// kill also reaches any grandchildren (yt-dlp spawning ffmpeg, for example).
type Exec struct {
	logger *slog.Logger
}

// NewExec constructs an Exec runner.
func NewExec(logger *slog.Logger) *Exec {
	return &Exec{logger: logging.NewComponentLogger(logger, "runner")}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, command Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, services.Wrap(services.ErrCancelled, "runner", command.Tool(), "not started", err)
	}

	cmd := e.command(ctx, command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, e.spawnFailure(command, err)
	}
	e.started(command, cmd.Process.Pid)
	err := cmd.Wait()
	metrics.ProcessesRunning.Dec()

	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: exitCode(cmd, err)}
	if err != nil {
		return result, e.exitFailure(ctx, command, result.ExitCode, stderr.String(), err, false)
	}
	return result, nil
}

// Start implements Runner. Stdout is delivered through an OS pipe owned by the
// returned Process, so reads are never cut short by Wait.
func (e *Exec) Start(ctx context.Context, command Command) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrCancelled, "runner", command.Tool(), "not started", err)
	}

	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, services.Wrap(services.ErrSpawn, "runner", command.Tool(), "create stdout pipe", err)
	}

	cmd := e.command(ctx, command)
	tail := newTailBuffer(stderrTailBytes)
	cmd.Stdout = writer
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, e.spawnFailure(command, err)
	}
	// The child holds its own copy of the write end.
	_ = writer.Close()
	e.started(command, cmd.Process.Pid)

	proc := &Process{
		command: command,
		cmd:     cmd,
		stdout:  reader,
		stderr:  tail,
		done:    make(chan struct{}),
	}
	go func() {
		waitErr := cmd.Wait()
		metrics.ProcessesRunning.Dec()
		proc.exitCode = exitCode(cmd, waitErr)
		if waitErr != nil {
			proc.err = e.exitFailure(ctx, command, proc.exitCode, tail.String(), waitErr, proc.killed.Load())
		}
		close(proc.done)
	}()
	return proc, nil
}

func (e *Exec) command(ctx context.Context, command Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, command.Name, command.Args...) //nolint:gosec
	if command.Env != nil {
		cmd.Env = command.Env
	}
	cmd.Dir = command.Dir
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

func (e *Exec) started(command Command, pid int) {
	metrics.ProcessSpawnsTotal.WithLabelValues(command.Tool()).Inc()
	metrics.ProcessesRunning.Inc()
	e.log().Debug("process started",
		logging.String("command", command.String()),
		logging.Int("pid", pid),
	)
}

func (e *Exec) spawnFailure(command Command, err error) error {
	metrics.ProcessFailuresTotal.WithLabelValues(command.Tool(), string(services.KindSpawn)).Inc()
	e.log().Warn("process spawn failed",
		logging.String("command", command.Name),
		logging.Error(err),
		logging.String(logging.FieldEventType, "process_spawn_failed"),
		logging.String(logging.FieldErrorHint, "verify the binary is installed and executable"),
	)
	return services.Wrap(services.ErrSpawn, "runner", command.Tool(), "start", err)
}

func (e *Exec) exitFailure(ctx context.Context, command Command, code int, stderr string, err error, killed bool) error {
	var failure error
	switch {
	case ctx.Err() != nil:
		failure = services.Wrap(services.ErrCancelled, "runner", command.Tool(), "process terminated", ctx.Err())
	case killed:
		failure = services.Wrap(services.ErrCancelled, "runner", command.Tool(), "process killed", nil)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			failure = services.NewProcessError(command.Tool(), code, stderr)
		} else {
			failure = services.Wrap(services.ErrProcessExit, "runner", command.Tool(), "wait", err)
		}
	}
	kind := services.KindOf(failure)
	metrics.ProcessFailuresTotal.WithLabelValues(command.Tool(), string(kind)).Inc()
	if kind != services.KindCancelled {
		e.log().Debug("process failed",
			logging.String("command", command.String()),
			logging.Int("exit_code", code),
			logging.String("stderr", stderr),
		)
	}
	return failure
}

func (e *Exec) log() *slog.Logger {
	if e == nil || e.logger == nil {
		return logging.NewNop()
	}
	return e.logger
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return 1
	}
	return 0
}

// Process is a running command started by Exec.Start.
type Process struct {
	command  Command
	cmd      *exec.Cmd
	stdout   *os.File
	stderr   *tailBuffer
	done     chan struct{}
	exitCode int
	err      error
	killed   atomic.Bool
	killOnce sync.Once
}

// Stdout returns the read end of the process's standard output. Closing it
// early makes further writes by the child fail with EPIPE.
func (p *Process) Stdout() io.ReadCloser {
	return p.stdout
}

// Pid returns the OS process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until exit and returns the classified failure, if any. It may be
// called any number of times.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// ExitCode reports the exit status after Done; -1 when killed by a signal.
func (p *Process) ExitCode() int {
	<-p.done
	return p.exitCode
}

// StderrTail returns the most recent stderr output.
func (p *Process) StderrTail() string {
	return p.stderr.String()
}

// Kill terminates the process group. It is safe to call repeatedly and after
// the process has already exited.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		p.killed.Store(true)
		_ = killProcessGroup(p.cmd)
	})
}

// Close kills the process if still running, closes stdout, and waits for exit.
func (p *Process) Close() error {
	p.Kill()
	_ = p.stdout.Close()
	<-p.done
	return nil
}

func (p *Process) String() string {
	return fmt.Sprintf("%s[%d]", p.command.Tool(), p.Pid())
}
