// Package child launches and owns the process a relay supervises.
package child

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCommand is returned when Spec has no executable.
var ErrInvalidCommand = errors.New("invalid command: executable path is required")

// ErrAlreadyExited is returned by Stop and Kill once the process is gone.
var ErrAlreadyExited = errors.New("process already exited")

// SpawnError reports that the executable could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Spec describes what to launch.
type Spec struct {
	Path string
	Args []string
	// InjectArgs are appended after Args.
	InjectArgs []string
	// Dir is the working directory; empty inherits the parent's.
	Dir string
	// Env adds to or overrides the inherited environment.
	Env map[string]string
}

// Argv returns the full argument vector, including the executable.
func (s Spec) Argv() []string {
	argv := make([]string, 0, 1+len(s.Args)+len(s.InjectArgs))
	argv = append(argv, s.Path)
	argv = append(argv, s.Args...)
	argv = append(argv, s.InjectArgs...)
	return argv
}

// Process is a running child and the parent's ends of its stdio.
type Process struct {
	id        string
	spec      Spec
	cmd       *exec.Cmd
	startTime time.Time

	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File

	done     chan struct{}
	mu       sync.Mutex
	exitCode int
	waitErr  error

	closeOnce sync.Once
}

// Start launches spec. Output pipes are plain os.Pipes so they can be read
// to EOF independently of Wait; the child's write ends are closed in the
// parent once the process has started.
func Start(spec Spec) (*Process, error) {
	if spec.Path == "" {
		return nil, ErrInvalidCommand
	}

	argv := spec.Argv()
	cmd := exec.Command(argv[0], argv[1:]...)

	if spec.Dir != "" {
		if _, err := os.Stat(spec.Dir); err != nil {
			return nil, &SpawnError{Path: spec.Path, Err: fmt.Errorf("working directory: %w", err)}
		}
		cmd.Dir = spec.Dir
	}

	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	configureProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Path: spec.Path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, &SpawnError{Path: spec.Path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		closeAll(outR, outW)
		return nil, &SpawnError{Path: spec.Path, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		closeAll(outR, outW, errR, errW)
		return nil, &SpawnError{Path: spec.Path, Err: err}
	}
	closeAll(outW, errW)

	p := &Process{
		id:        uuid.New().String(),
		spec:      spec,
		cmd:       cmd,
		startTime: time.Now(),
		stdin:     stdin,
		stdout:    outR,
		stderr:    errR,
		done:      make(chan struct{}),
		exitCode:  -1,
	}
	go p.monitor()

	return p, nil
}

func (p *Process) monitor() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.waitErr = err
	p.exitCode = exitCodeOf(p.cmd.ProcessState, err)
	p.mu.Unlock()

	close(p.done)
}

// exitCodeOf maps a finished process to the code the relay exits with.
// Deaths by signal and unknown statuses become 1.
func exitCodeOf(state *os.ProcessState, err error) int {
	if state != nil {
		if code := state.ExitCode(); code >= 0 {
			return code
		}
		return 1
	}
	if err != nil {
		return 1
	}
	return 0
}

// ID is a unique identifier for this run.
func (p *Process) ID() string { return p.id }

// PID is the operating system process ID.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// Spec returns what was launched.
func (p *Process) Spec() Spec { return p.spec }

// StartTime is when the process was started.
func (p *Process) StartTime() time.Time { return p.startTime }

// Stdin is the child's standard input.
func (p *Process) Stdin() io.WriteCloser { return p.stdin }

// Stdout is the read end of the child's standard output.
func (p *Process) Stdout() io.Reader { return p.stdout }

// Stderr is the read end of the child's standard error.
func (p *Process) Stderr() io.Reader { return p.stderr }

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the process has exited, without blocking.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code, or -1 while the process is running.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Wait blocks until the process exits or ctx is done.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.waitErr
	}
}

// Signal delivers sig to the child's process group.
func (p *Process) Signal(sig os.Signal) error {
	if p.Exited() {
		return ErrAlreadyExited
	}
	return signalGroup(p.cmd, sig)
}

// Stop asks the process to terminate and kills it if it is still running
// when ctx expires.
func (p *Process) Stop(ctx context.Context) error {
	if p.Exited() {
		return ErrAlreadyExited
	}
	if err := signalStop(p.cmd); err != nil {
		return err
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return p.Kill()
	}
}

// Kill terminates the process immediately.
func (p *Process) Kill() error {
	if p.Exited() {
		return ErrAlreadyExited
	}
	return signalKill(p.cmd)
}

// Close releases the parent's ends of the child's streams. Blocked readers
// on stdout or stderr return with an error.
func (p *Process) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		if err := p.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
		for _, f := range []*os.File{p.stdout, p.stderr} {
			if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
