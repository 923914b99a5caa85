package store

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/Masterminds/vcs"
)

// monitoredCmd wraps a git subprocess, killing it if it stops producing
// output for longer than timeout or the context is canceled — carried over
// near-verbatim from the teacher's cmd.go, since git-clone/fetch/checkout
// are exactly the slow, can-hang subprocesses this type exists for.
type monitoredCmd struct {
	cmd     *exec.Cmd
	timeout time.Duration
	ctx     context.Context
	stdout  *activityBuffer
	stderr  *activityBuffer
}

func newMonitoredCmd(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) *monitoredCmd {
	stdout, stderr := newActivityBuffer(), newActivityBuffer()
	cmd.Stdout, cmd.Stderr = stdout, stderr
	return &monitoredCmd{cmd: cmd, timeout: timeout, ctx: ctx, stdout: stdout, stderr: stderr}
}

func (c *monitoredCmd) run() error {
	ticker := time.NewTicker(c.timeout)
	defer ticker.Stop()
	done := make(chan error, 1)
	go func() { done <- c.cmd.Run() }()

	for {
		select {
		case <-ticker.C:
			if c.hasTimedOut() {
				if err := c.cmd.Process.Kill(); err != nil {
					return &killCmdError{err}
				}
				return &timeoutError{c.timeout}
			}
		case <-c.ctx.Done():
			if err := c.cmd.Process.Kill(); err != nil {
				return &killCmdError{err}
			}
			return c.ctx.Err()
		case err := <-done:
			return err
		}
	}
}

func (c *monitoredCmd) hasTimedOut() bool {
	t := time.Now().Add(-c.timeout)
	return c.stderr.lastActivity().Before(t) && c.stdout.lastActivity().Before(t)
}

func (c *monitoredCmd) combinedOutput() ([]byte, error) {
	if err := c.run(); err != nil {
		return c.stderr.buf.Bytes(), err
	}
	return c.stdout.buf.Bytes(), nil
}

type activityBuffer struct {
	sync.Mutex
	buf          *bytes.Buffer
	lastActivity_ time.Time
}

func newActivityBuffer() *activityBuffer {
	return &activityBuffer{buf: bytes.NewBuffer(nil)}
}

func (b *activityBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	b.lastActivity_ = time.Now()
	return b.buf.Write(p)
}

func (b *activityBuffer) lastActivity() time.Time {
	b.Lock()
	defer b.Unlock()
	return b.lastActivity_
}

type timeoutError struct{ timeout time.Duration }

func (e *timeoutError) Error() string {
	return fmt.Sprintf("command killed after %s of no activity", e.timeout)
}

type killCmdError struct{ err error }

func (e *killCmdError) Error() string {
	return fmt.Sprintf("error killing command: %s", e.err)
}

// runFromRepoDir runs cmd/args inside repo's working directory via
// Masterminds/vcs's CmdFromDir (which picks the right underlying VCS
// binary), under monitoredCmd's activity timeout. Carried over from the
// teacher's identically-named helper in cmd.go.
func runFromRepoDir(ctx context.Context, repo vcs.Repo, timeout time.Duration, cmd string, args ...string) ([]byte, error) {
	mc := newMonitoredCmd(ctx, repo.CmdFromDir(cmd, args...), timeout)
	out, err := mc.combinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %v: %w (%s)", cmd, args, err, string(out))
	}
	return out, nil
}
