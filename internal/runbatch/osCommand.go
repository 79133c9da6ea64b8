// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/matt-FFFFFF/sysbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/sysbatch/internal/signalbroker"
)

const (
	maxBufferSize  = 8 * 1024 * 1024  // 8MB
	tickerInterval = 30 * time.Second // Interval for the still-running debug message
	logFileMode    = 0o644
)

var _ Runnable = (*OSCommand)(nil)

var (
	// ErrBufferOverflow is returned when the output exceeds the max size.
	ErrBufferOverflow = fmt.Errorf("output exceeds max size of %d bytes", maxBufferSize)
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToReadBuffer is returned when the buffer from the operating system pipe could not be read.
	ErrFailedToReadBuffer = errors.New("failed to read buffer")
	// ErrTimeoutExceeded is returned when the context is done before the process exits.
	ErrTimeoutExceeded = errors.New("context done before process exited")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrFailedToOpenLogFile is returned when the log file could not be created.
	ErrFailedToOpenLogFile = errors.New("failed to open log file")
	// ErrSignalReceived is returned when a operating system signal is received by the child process.
	ErrSignalReceived = errors.New("signal received")
	// ErrDuplicateSignalReceived is returned when a duplicate signal is received, forcing process termination.
	ErrDuplicateSignalReceived = errors.New("duplicate signal received, process forcefully terminated")
)

// OSCommand represents a single process to be run in the batch.
type OSCommand struct {
	*BaseCommand
	Args             []string       // Arguments to the command, do not include the executable name itself.
	Path             string         // The command to run (e.g. executable full path).
	LogFile          string         // When set, stdout and stderr are written here. Relative paths resolve against Cwd.
	SuccessExitCodes []int          // Exit codes that indicate success, defaults to 0.
	SkipExitCodes    []int          // Exit codes that indicate skip remaining tasks, defaults to empty.
	sigCh            chan os.Signal // Channel to receive signals, allows mocking in test.
}

type capture struct {
	stdout, stderr *os.File // child ends
	wait           func() ([]byte, []byte, error)
}

// Run implements the Runnable interface for OSCommand.
func (c *OSCommand) Run(ctx context.Context) Results {
	logger := ctxlog.Logger(ctx).
		With("runnableType", "OSCommand").
		With("label", c.Label)

	logger.Debug("command info", "path", c.Path, "cwd", c.Cwd, "args", c.Args, "logFile", c.LogFile)

	if c.SuccessExitCodes == nil {
		c.SuccessExitCodes = []int{0}
	}

	if c.SkipExitCodes == nil {
		c.SkipExitCodes = []int{}
	}

	if c.sigCh == nil {
		c.sigCh = signalbroker.New(ctx)
		defer func() {
			signalbroker.Stop(c.sigCh)
			c.sigCh = nil
		}()
	}

	res := &Result{
		Label:  c.Label,
		Status: ResultStatusUnknown,
	}

	fail := func(err error) Results {
		res.Error = err
		res.ExitCode = -1
		res.Status = ResultStatusError
		reportComplete(ctx, c.reporter, c, res)

		return Results{res}
	}

	env := os.Environ()

	for k, v := range c.Env {
		logger.Debug("adding environment variable", "key", k, "value", v)
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	var (
		out capture
		err error
	)

	if c.LogFile != "" {
		res.LogFile = c.resolveLogFile()
		out, err = fileCapture(res.LogFile)
	} else {
		out, err = pipeCapture(ctx)
	}

	if err != nil {
		return fail(err)
	}

	stdin, err := os.Open(os.DevNull)
	if err != nil {
		_ = out.stdout.Close()
		_ = out.stderr.Close()

		return fail(errors.Join(ErrCouldNotStartProcess, err))
	}
	defer stdin.Close() //nolint:errcheck

	args := slices.Concat([]string{filepath.Base(c.Path)}, c.Args)

	reportStarted(c.reporter, c, fmt.Sprintf("Starting %s", c.Label))

	startTime := time.Now()

	ps, err := os.StartProcess(c.Path, args, &os.ProcAttr{
		Dir:   c.Cwd,
		Env:   env,
		Files: []*os.File{stdin, out.stdout, out.stderr},
	})

	if err != nil {
		fmt.Fprintf(out.stderr, "could not start %s: %v\n", c.Path, err) //nolint:errcheck
		_ = out.stdout.Close()
		_ = out.stderr.Close()
		_, _, _ = out.wait()

		return fail(errors.Join(ErrCouldNotStartProcess, err))
	}

	logger.Info("process started", "pid", ps.Pid, "cwd", c.Cwd)

	// This is the process watchdog that forwards signals to the process
	// and kills it if the context is done.
	done := make(chan struct{})
	wasKilled := make(chan error, 1)

	var watchdog sync.WaitGroup

	watchdog.Add(1)

	go func() {
		defer watchdog.Done()

		signalCount := make(map[os.Signal]struct{})
		sigCh := c.sigCh

		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logger.Debug("still running", "elapsed", time.Since(startTime).Round(time.Second))

			case s, ok := <-sigCh:
				if !ok {
					sigCh = nil
					continue
				}

				if _, seen := signalCount[s]; seen {
					logger.Info("received duplicate signal, killing process", "signal", s.String())
					killPs(ctx, ps)
					record(wasKilled, ErrDuplicateSignalReceived)

					return
				}

				signalCount[s] = struct{}{}

				logger.Info("received signal", "signal", s.String())

				if err := ps.Signal(s); err != nil {
					logger.Info("failed to send signal", "signal", s.String(), "error", err)
				}

				record(wasKilled, ErrSignalReceived)

			case <-ctx.Done():
				logger.Info("context done, killing process")
				killPs(ctx, ps)
				record(wasKilled, ErrTimeoutExceeded)

				return

			case <-done:
				return
			}
		}
	}()

	state, psErr := ps.Wait()
	res.Duration = time.Since(startTime)

	close(done)
	watchdog.Wait()

	res.ExitCode = state.ExitCode()
	res.Error = psErr

	stdout, stderr, readErr := out.wait()
	res.StdOut = stdout
	res.StdErr = stderr

	logger.Debug("process finished", "exitCode", res.ExitCode, "duration", res.Duration)

	select {
	case e := <-wasKilled:
		res.Error = errors.Join(res.Error, e)
		res.ExitCode = -1
	default:
	}

	switch {
	// Exit code is success and error is nil. Return success.
	case slices.Contains(c.SuccessExitCodes, res.ExitCode) && res.Error == nil:
		res.Status = ResultStatusSuccess
	// Exit code is skippable and error is nil. Return success.
	case slices.Contains(c.SkipExitCodes, res.ExitCode) && res.Error == nil:
		logger.Debug("process exit code indicates skip remaining tasks", "exitCode", res.ExitCode)
		res.Error = ErrSkipIntentional
		res.Status = ResultStatusSuccess
	// A non-zero exit code does not generate an error, so this needs to be an OR.
	default:
		if res.ExitCode == 0 {
			res.ExitCode = -1
		}

		res.Status = ResultStatusError
	}

	if readErr != nil {
		res.Error = errors.Join(res.Error, readErr)
	}

	if res.Status == ResultStatusError {
		logger.Warn("process failed", "exitCode", res.ExitCode, "error", res.Error, "logFile", res.LogFile)
	} else {
		logger.Info("process finished", "exitCode", res.ExitCode, "duration", res.Duration.Round(time.Millisecond))
	}

	reportComplete(ctx, c.reporter, c, res)

	return Results{res}
}

func (c *OSCommand) resolveLogFile() string {
	if filepath.IsAbs(c.LogFile) {
		return c.LogFile
	}

	return filepath.Join(c.Cwd, c.LogFile)
}

// fileCapture sends both output streams to a truncated log file.
func fileCapture(path string) (capture, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, logFileMode)
	if err != nil {
		return capture{}, errors.Join(ErrFailedToOpenLogFile, err)
	}

	closed := false

	return capture{
		stdout: f,
		stderr: f,
		wait: func() ([]byte, []byte, error) {
			if closed {
				return nil, nil, nil
			}

			closed = true

			return nil, nil, f.Close()
		},
	}, nil
}

// pipeCapture reads stdout and stderr concurrently so a chatty child cannot block on a full pipe.
func pipeCapture(ctx context.Context) (capture, error) {
	rOut, wOut, err := os.Pipe()
	if err != nil {
		return capture{}, errors.Join(ErrFailedToCreatePipe, err)
	}

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()

		return capture{}, errors.Join(ErrFailedToCreatePipe, err)
	}

	type read struct {
		b   []byte
		err error
	}

	outCh := make(chan read, 1)
	errCh := make(chan read, 1)

	drain := func(r *os.File, ch chan<- read) {
		defer r.Close() //nolint:errcheck

		b, err := readAllUpToMax(ctx, r, maxBufferSize)
		ch <- read{b, err}
	}

	go drain(rOut, outCh)
	go drain(rErr, errCh)

	var once sync.Once

	return capture{
		stdout: wOut,
		stderr: wErr,
		wait: func() ([]byte, []byte, error) {
			// The parent's write ends must be closed for the readers to see EOF.
			once.Do(func() {
				_ = wOut.Close()
				_ = wErr.Close()
			})

			o := <-outCh
			e := <-errCh

			return o.b, e.b, errors.Join(o.err, e.err)
		},
	}, nil
}

// readAllUpToMax keeps at most maxBufferSize bytes and discards the rest.
func readAllUpToMax(ctx context.Context, r io.Reader, maxBufferSize int64) ([]byte, error) {
	var buf bytes.Buffer

	n, err := io.CopyN(&buf, r, maxBufferSize+1)
	if err != nil && err != io.EOF {
		return buf.Bytes(), errors.Join(ErrFailedToReadBuffer, err)
	}

	if n > maxBufferSize {
		ctxlog.Debug(ctx, "buffer overflow in readAllUpToMax", "bytesRead", n, "maxBytes", maxBufferSize)

		_, _ = io.Copy(io.Discard, r)

		return buf.Bytes()[:maxBufferSize], ErrBufferOverflow
	}

	return buf.Bytes(), nil
}

func record(ch chan error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// killPs kills the process.
func killPs(ctx context.Context, ps *os.Process) {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Debug(ctx, "process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Error(ctx, "process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Info(ctx, "process killed", "pid", ps.Pid)
}
